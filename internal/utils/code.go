package utils

import (
    "crypto/rand"
    "math/big"
    "strings"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // omit easily confused chars

// CollegeCode derives a short tenant code from the college name and appends
// a random suffix, e.g. "Govt Engineering College" -> "GEC-7K2Q".
func CollegeCode(name string) (string, error) {
    var prefix strings.Builder
    for _, w := range strings.Fields(name) {
        r := []rune(strings.ToUpper(w))[0]
        if r >= 'A' && r <= 'Z' {
            prefix.WriteRune(r)
        }
        if prefix.Len() == 6 {
            break
        }
    }
    suffix, err := GenerateCode(4)
    if err != nil {
        return "", err
    }
    if prefix.Len() == 0 {
        return suffix, nil
    }
    return prefix.String() + "-" + suffix, nil
}

func GenerateCode(n int) (string, error) {
    if n <= 0 {
        n = 6
    }
    b := make([]byte, n)
    for i := 0; i < n; i++ {
        idxBig, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
        if err != nil {
            return "", err
        }
        b[i] = codeAlphabet[idxBig.Int64()]
    }
    return string(b), nil
}
