package middleware

import (
    "net/http"
    "strings"

    "github.com/gin-gonic/gin"

    "github.com/zaqqye/placement_backend/internal/apperr"
    "github.com/zaqqye/placement_backend/internal/models"
    "github.com/zaqqye/placement_backend/internal/scope"
    "github.com/zaqqye/placement_backend/internal/store"
    "github.com/zaqqye/placement_backend/internal/utils"
)

const (
    ActorKey = "actor"
    UserKey  = "user"
)

type AuthConfig struct {
    JWTSecret string
}

func abort(c *gin.Context, status int, kind apperr.Kind, msg string) {
    c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": kind})
}

// AuthMiddleware resolves the bearer token to the stored account and builds
// the immutable actor for the request. Websocket clients may pass the token
// as ?token= instead of the header.
func AuthMiddleware(st *store.Store, cfg AuthConfig) gin.HandlerFunc {
    return func(c *gin.Context) {
        tokenStr := ""
        auth := c.GetHeader("Authorization")
        switch {
        case auth != "" && strings.HasPrefix(strings.ToLower(auth), "bearer "):
            tokenStr = strings.TrimSpace(auth[len("Bearer "):])
        case auth == "" && c.Query("token") != "":
            tokenStr = c.Query("token")
        default:
            abort(c, http.StatusUnauthorized, apperr.KindAuthenticationRequired, "missing or invalid authorization header")
            return
        }

        claims, err := utils.ParseToken(cfg.JWTSecret, tokenStr)
        if err != nil {
            abort(c, http.StatusUnauthorized, apperr.KindAuthenticationRequired, "invalid token")
            return
        }

        user, err := st.GetUser(c.Request.Context(), claims.UserID)
        if err != nil || !user.Active {
            abort(c, http.StatusUnauthorized, apperr.KindAuthenticationRequired, "user not found or inactive")
            return
        }

        actor, err := scope.FromAccount(scope.Account{
            UserID:     user.ID,
            Role:       user.Role,
            CollegeID:  user.College(),
            Department: user.Department,
        })
        if err != nil {
            abort(c, http.StatusForbidden, apperr.KindAuthorizationDenied, "account scope is misconfigured")
            return
        }
        if college := scope.CollegeOf(actor); college != "" {
            col, err := st.GetCollege(c.Request.Context(), college)
            if err != nil || col.Status != models.CollegeActive {
                abort(c, http.StatusForbidden, apperr.KindAuthorizationDenied, "college is inactive")
                return
            }
        }

        c.Set(UserKey, *user)
        c.Set(ActorKey, actor)
        c.Next()
    }
}

func CurrentActor(c *gin.Context) (scope.Actor, bool) {
    v, ok := c.Get(ActorKey)
    if !ok {
        return nil, false
    }
    actor, ok := v.(scope.Actor)
    return actor, ok
}

func CurrentUser(c *gin.Context) (models.User, bool) {
    v, ok := c.Get(UserKey)
    if !ok {
        return models.User{}, false
    }
    user, ok := v.(models.User)
    return user, ok
}

// RequireRoles gates a route group by role. The super operator passes
// every gate.
func RequireRoles(roles ...string) gin.HandlerFunc {
    allowed := map[string]struct{}{}
    for _, r := range roles {
        allowed[r] = struct{}{}
    }
    return func(c *gin.Context) {
        actor, ok := CurrentActor(c)
        if !ok {
            abort(c, http.StatusUnauthorized, apperr.KindAuthenticationRequired, "unauthorized")
            return
        }
        if _, ok := allowed[actor.Role()]; !ok && actor.Role() != scope.RoleSuperOperator {
            abort(c, http.StatusForbidden, apperr.KindAuthorizationDenied, "forbidden")
            return
        }
        c.Next()
    }
}
