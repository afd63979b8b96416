package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/store"
	"github.com/zaqqye/placement_backend/internal/testutil"
	"github.com/zaqqye/placement_backend/internal/utils"
)

const secret = "mw-secret"

func authRouter(st *store.Store, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(st, AuthConfig{JWTSecret: secret})}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := CurrentActor(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID(), "role": actor.Role()})
	})
	r.GET("/me", handlers...)
	return r
}

func bearer(t *testing.T, u *models.User) string {
	t.Helper()
	tok, _, err := utils.IssueToken(secret, time.Hour, u.ID, u.Role, u.Email, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func get(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	st := testutil.Store(t)
	ctx := context.Background()
	college := testutil.College(t, st)
	mod, _ := testutil.Account(t, st, scope.RoleModerator, college.ID, "CSE")
	inactive, _ := testutil.Account(t, st, scope.RoleModerator, college.ID, "CSE")
	if err := st.DB().Model(&models.User{}).Where("id = ?", inactive.ID).Update("active", false).Error; err != nil {
		t.Fatal(err)
	}
	closed := testutil.College(t, st)
	orphan, _ := testutil.Account(t, st, scope.RoleModerator, closed.ID, "CSE")
	if err := st.SetCollegeStatus(ctx, closed.ID, models.CollegeInactive); err != nil {
		t.Fatal(err)
	}

	r := authRouter(st)
	tok, _, _ := utils.IssueToken(secret, time.Hour, mod.ID, mod.Role, mod.Email, time.Now())
	cases := []struct {
		name string
		path string
		auth string
		want int
	}{
		{"valid", "/me", bearer(t, mod), http.StatusOK},
		{"query token", "/me?token=" + tok, "", http.StatusOK},
		{"missing", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"garbage", "/me", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"inactive user", "/me", bearer(t, inactive), http.StatusUnauthorized},
		{"inactive college", "/me", bearer(t, orphan), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := get(r, tc.path, tc.auth); w.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	st := testutil.Store(t)
	college := testutil.College(t, st)
	mod, _ := testutil.Account(t, st, scope.RoleModerator, college.ID, "CSE")
	student, _ := testutil.Account(t, st, scope.RoleStudent, college.ID, "CSE")
	super, _ := testutil.Account(t, st, scope.RoleSuperOperator, "", "")

	r := authRouter(st, RequireRoles(scope.RoleModerator, scope.RoleTenantAdmin))
	if w := get(r, "/me", bearer(t, mod)); w.Code != http.StatusOK {
		t.Fatalf("moderator status = %d", w.Code)
	}
	if w := get(r, "/me", bearer(t, super)); w.Code != http.StatusOK {
		t.Fatalf("super operator status = %d", w.Code)
	}
	if w := get(r, "/me", bearer(t, student)); w.Code != http.StatusForbidden {
		t.Fatalf("student status = %d", w.Code)
	}
}

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, time.Minute) {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if l.Allow("k", 3, time.Minute) {
		t.Fatal("fourth request allowed inside the window")
	}
	if !l.Allow("other", 3, time.Minute) {
		t.Fatal("keys must not share a bucket")
	}
	now = now.Add(time.Minute + time.Second)
	if !l.Allow("k", 3, time.Minute) {
		t.Fatal("new window rejected")
	}
}

func TestRateLimitByActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	actor := scope.Student{UserID: "s1", CollegeID: "c1", Department: "CSE"}
	r.GET("/apply", func(c *gin.Context) {
		if c.Query("anon") == "" {
			c.Set(ActorKey, actor)
		}
		c.Next()
	}, RateLimit(NewMemoryLimiter(), ActorKeyFn("apply"), 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, get(r, "/apply", "").Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	// no actor, no key: limiter is bypassed
	if w := get(r, "/apply?anon=1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("anonymous status = %d", w.Code)
	}
}

func TestRedisLimiterNilFailsOpen(t *testing.T) {
	var l *RedisLimiter
	if !l.Allow("k", 1, time.Second) {
		t.Fatal("nil redis limiter must allow")
	}
	if NewRedisLimiter(nil, nil) != nil {
		t.Fatal("expected nil limiter without a client")
	}
}
