package routes

import (
    "time"

    "github.com/gin-gonic/gin"
    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/accounts"
    "github.com/zaqqye/placement_backend/internal/config"
    "github.com/zaqqye/placement_backend/internal/controllers"
    "github.com/zaqqye/placement_backend/internal/jobs"
    "github.com/zaqqye/placement_backend/internal/middleware"
    "github.com/zaqqye/placement_backend/internal/notify"
    "github.com/zaqqye/placement_backend/internal/placement"
    "github.com/zaqqye/placement_backend/internal/profile"
    "github.com/zaqqye/placement_backend/internal/scope"
    "github.com/zaqqye/placement_backend/internal/stats"
    "github.com/zaqqye/placement_backend/internal/store"
    "github.com/zaqqye/placement_backend/internal/verification"
    "github.com/zaqqye/placement_backend/internal/ws"
)

// Deps is everything the route table wires into services.
type Deps struct {
    Store    *store.Store
    Config   *config.Config
    Log      log.FieldLogger
    Notifier notify.Notifier
    Hubs     *ws.Hubs
    Limiter  middleware.Limiter
    Now      func() time.Time
}

func Register(r *gin.Engine, d Deps) {
    cfg := d.Config
    if d.Notifier == nil {
        d.Notifier = notify.Nop{}
    }
    if d.Limiter == nil {
        d.Limiter = middleware.NewMemoryLimiter()
    }

    // Services
    jobSvc := &jobs.Service{Store: d.Store, Log: d.Log, Now: d.Now}
    accountSvc := &accounts.Service{
        Store:     d.Store,
        Notifier:  d.Notifier,
        Log:       d.Log,
        JWTSecret: cfg.JWTSecret,
        TokenTTL:  cfg.AccessTokenTTL,
        Now:       d.Now,
    }
    profileSvc := &profile.Service{
        Store:                 d.Store,
        Notifier:              d.Notifier,
        Log:                   d.Log,
        RequeueRejectedOnEdit: cfg.RequeueRejectedOnEdit,
        Now:                   d.Now,
    }
    verifySvc := &verification.Service{Store: d.Store, Notifier: d.Notifier, Log: d.Log, Now: d.Now}
    placementSvc := &placement.Service{Store: d.Store, Jobs: jobSvc, Notifier: d.Notifier, Log: d.Log, Now: d.Now}
    statsSvc := &stats.Service{Store: d.Store, Log: d.Log, Now: d.Now}

    // Controllers
    authCtrl := &controllers.AuthController{Accounts: accountSvc, Log: d.Log}
    adminCtrl := &controllers.AdminController{Accounts: accountSvc, Log: d.Log}
    verifyCtrl := &controllers.VerificationController{Verification: verifySvc, Profiles: profileSvc, Accounts: accountSvc, Log: d.Log}
    studentCtrl := &controllers.StudentController{Profiles: profileSvc, Jobs: jobSvc, Placement: placementSvc, Log: d.Log}
    jobCtrl := &controllers.JobController{Jobs: jobSvc, Stats: statsSvc, Placement: placementSvc, Log: d.Log}
    appCtrl := &controllers.ApplicationController{Placement: placementSvc, Log: d.Log}

    r.Use(middleware.Timeout(cfg.RequestTimeout))
    if d.Log != nil {
        r.Use(middleware.RequestLogger(d.Log))
    }

    // Public
    auth := r.Group("/api/v1/auth")
    {
        auth.POST("/login", authCtrl.Login)
    }

    // Protected
    authMW := middleware.AuthMiddleware(d.Store, middleware.AuthConfig{JWTSecret: cfg.JWTSecret})
    api := r.Group("/api/v1", authMW)
    {
        api.GET("/auth/me", authCtrl.Me)
        api.POST("/auth/logout", authCtrl.Logout)

        // Super operator
        super := api.Group("/super", middleware.RequireRoles(scope.RoleSuperOperator))
        {
            super.GET("/colleges", adminCtrl.ListColleges)
            super.POST("/colleges", adminCtrl.CreateCollege)
            super.PUT("/colleges/:id/status", adminCtrl.SetCollegeStatus)
            super.DELETE("/colleges/:id", adminCtrl.DeleteCollege)
        }

        // Staff: moderators, tenant admins and the super operator
        staff := api.Group("/staff", middleware.RequireRoles(scope.RoleModerator, scope.RoleTenantAdmin))
        {
            staff.GET("/users", adminCtrl.ListUsers)
            staff.POST("/users", adminCtrl.CreateUser)
            staff.POST("/users/import", adminCtrl.ImportUsers)

            staff.GET("/verification/queue", verifyCtrl.Queue)
            staff.GET("/students/:id", verifyCtrl.Details)
            staff.PUT("/students/:id", verifyCtrl.UpdateStudent)
            staff.DELETE("/students/:id", verifyCtrl.RemoveStudent)
            staff.POST("/students/:id/approve", verifyCtrl.Approve)
            staff.POST("/students/:id/reject", verifyCtrl.Reject)
            staff.POST("/students/:id/lock", verifyCtrl.Lock)
            staff.POST("/students/:id/unlock", verifyCtrl.Unlock)
            staff.POST("/students/:id/block", verifyCtrl.Block)

            staff.GET("/jobs", jobCtrl.List)
            staff.POST("/jobs", jobCtrl.Create)
            staff.GET("/jobs/stats", jobCtrl.ListStats)
            staff.GET("/jobs/:id", jobCtrl.Get)
            staff.GET("/jobs/:id/stats", jobCtrl.JobStats)
            staff.GET("/jobs/:id/applications", jobCtrl.Applications)
            staff.POST("/jobs/:id/close", jobCtrl.Close)
            staff.POST("/jobs/:id/publish", jobCtrl.Publish)

            staff.POST("/applications/:id/status", appCtrl.Advance)
        }

        // Student area
        student := api.Group("/student", middleware.RequireRoles(scope.RoleStudent))
        {
            student.GET("/profile", studentCtrl.GetProfile)
            student.PUT("/profile", studentCtrl.UpdateProfile)
            student.GET("/jobs", studentCtrl.Board)
            student.GET("/jobs/:id", studentCtrl.GetJob)
            student.GET("/jobs/:id/eligibility", studentCtrl.Eligibility)
        }

        applyLimit := middleware.RateLimit(d.Limiter, middleware.ActorKeyFn("apply"), cfg.ApplyRateLimit, cfg.ApplyRateWindow)
        apps := api.Group("/applications", middleware.RequireRoles(scope.RoleStudent))
        {
            apps.GET("", appCtrl.ListMine)
            apps.POST("", applyLimit, appCtrl.Apply)
            apps.POST("/:id/accept", appCtrl.Accept)
            apps.POST("/:id/decline", appCtrl.Decline)
        }

        // Realtime
        api.GET("/ws/staff", middleware.RequireRoles(scope.RoleModerator, scope.RoleTenantAdmin), ws.StaffHandler(d.Hubs))
        api.GET("/ws/student", middleware.RequireRoles(scope.RoleStudent), ws.StudentHandler(d.Hubs))
    }
}
