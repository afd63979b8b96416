package utils

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "placement_backend"

type Claims struct {
    UserID string `json:"user_id"`
    Role   string `json:"role"`
    Email  string `json:"email"`
    jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token for the account.
func IssueToken(secret string, ttl time.Duration, userID, role, email string, now time.Time) (string, time.Time, error) {
    expires := now.Add(ttl)
    claims := Claims{
        UserID: userID,
        Role:   role,
        Email:  email,
        RegisteredClaims: jwt.RegisteredClaims{
            Issuer:    tokenIssuer,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(expires),
            Subject:   userID,
        },
    }
    tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := tok.SignedString([]byte(secret))
    if err != nil {
        return "", time.Time{}, err
    }
    return signed, expires, nil
}

// ParseToken verifies signature, algorithm and expiry.
func ParseToken(secret, tokenStr string) (*Claims, error) {
    claims := &Claims{}
    token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
    if err != nil {
        return nil, err
    }
    if !token.Valid || claims.UserID == "" {
        return nil, errors.New("invalid token")
    }
    return claims, nil
}
