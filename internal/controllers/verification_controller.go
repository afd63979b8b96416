package controllers

import (
    "net/http"

    "github.com/gin-gonic/gin"
    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/accounts"
    "github.com/zaqqye/placement_backend/internal/profile"
    "github.com/zaqqye/placement_backend/internal/verification"
)

// VerificationController serves the staff review surface.
type VerificationController struct {
    Verification *verification.Service
    Profiles     *profile.Service
    Accounts     *accounts.Service
    Log          log.FieldLogger
}

func (v *VerificationController) Queue(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    queue, err := v.Verification.Queue(c.Request.Context(), actor)
    if err != nil {
        respondError(c, v.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"data": queue, "meta": gin.H{"total": len(queue)}})
}

func (v *VerificationController) Details(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    p, err := v.Verification.Details(c.Request.Context(), actor, id)
    if err != nil {
        respondError(c, v.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{
        "profile":      p,
        "verification": verification.RecordOf(p),
        "completeness": profile.Evaluate(p),
    })
}

type reviewRequest struct {
    Notes           string          `json:"notes"`
    Reason          string          `json:"reason"`
    Section         string          `json:"section"`
    ExpectedVersion *FlexibleString `json:"expected_version"`
}

// bindReview tolerates an empty body; every field is optional at this layer.
func bindReview(c *gin.Context) (reviewRequest, *int64, bool) {
    var req reviewRequest
    if c.Request.ContentLength != 0 {
        if err := c.ShouldBindJSON(&req); err != nil {
            badRequest(c, err)
            return req, nil, false
        }
    }
    version, err := req.ExpectedVersion.Int64()
    if err != nil {
        badRequest(c, err)
        return req, nil, false
    }
    return req, version, true
}

func (v *VerificationController) Approve(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    req, version, ok := bindReview(c)
    if !ok {
        return
    }
    rec, err := v.Verification.Approve(c.Request.Context(), actor, id, req.Notes, version)
    if err != nil {
        respondError(c, v.Log, err)
        return
    }
    c.JSON(http.StatusOK, rec)
}

func (v *VerificationController) Reject(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    req, version, ok := bindReview(c)
    if !ok {
        return
    }
    rec, err := v.Verification.Reject(c.Request.Context(), actor, id, req.Reason, version)
    if err != nil {
        respondError(c, v.Log, err)
        return
    }
    c.JSON(http.StatusOK, rec)
}

func (v *VerificationController) Lock(c *gin.Context) {
    v.setLock(c, true)
}

func (v *VerificationController) Unlock(c *gin.Context) {
    v.setLock(c, false)
}

func (v *VerificationController) setLock(c *gin.Context, locked bool) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    req, version, ok := bindReview(c)
    if !ok {
        return
    }
    ctx := c.Request.Context()
    var err error
    var p any
    if locked {
        p, err = v.Verification.LockSection(ctx, actor, id, req.Section, version)
    } else {
        p, err = v.Verification.UnlockSection(ctx, actor, id, req.Section, version)
    }
    if err != nil {
        respondError(c, v.Log, err)
        return
    }
    c.JSON(http.StatusOK, p)
}

// UpdateStudent is the moderator edit; it ignores section locks.
func (v *VerificationController) UpdateStudent(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    var in profile.Update
    if err := c.ShouldBindJSON(&in); err != nil {
        badRequest(c, err)
        return
    }
    p, err := v.Profiles.ModeratorUpdate(c.Request.Context(), actor, id, in)
    if err != nil {
        respondError(c, v.Log, err)
        return
    }
    c.JSON(http.StatusOK, p)
}

type blockRequest struct {
    Blocked *bool `json:"blocked" binding:"required"`
}

func (v *VerificationController) Block(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    var req blockRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        badRequest(c, err)
        return
    }
    p, err := v.Accounts.SetBlocked(c.Request.Context(), actor, id, *req.Blocked)
    if err != nil {
        respondError(c, v.Log, err)
        return
    }
    c.JSON(http.StatusOK, p)
}

func (v *VerificationController) RemoveStudent(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    if err := v.Accounts.RemoveStudent(c.Request.Context(), actor, id); err != nil {
        respondError(c, v.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
