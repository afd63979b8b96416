package controllers

import (
    "net/http"

    "github.com/gin-gonic/gin"
    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/jobs"
    "github.com/zaqqye/placement_backend/internal/placement"
    "github.com/zaqqye/placement_backend/internal/profile"
    "github.com/zaqqye/placement_backend/internal/verification"
)

// StudentController serves the student's own profile and job board.
type StudentController struct {
    Profiles  *profile.Service
    Jobs      *jobs.Service
    Placement *placement.Service
    Log       log.FieldLogger
}

func (s *StudentController) GetProfile(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    p, err := s.Profiles.Own(c.Request.Context(), actor)
    if err != nil {
        respondError(c, s.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{
        "profile":      p,
        "verification": verification.RecordOf(p),
        "completeness": profile.Evaluate(p),
    })
}

func (s *StudentController) UpdateProfile(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    var in profile.Update
    if err := c.ShouldBindJSON(&in); err != nil {
        badRequest(c, err)
        return
    }
    p, err := s.Profiles.UpdateOwn(c.Request.Context(), actor, in)
    if err != nil {
        respondError(c, s.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{
        "profile":      p,
        "verification": verification.RecordOf(p),
        "completeness": profile.Evaluate(p),
    })
}

func (s *StudentController) Board(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    board, err := s.Jobs.Board(c.Request.Context(), actor)
    if err != nil {
        respondError(c, s.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"data": board})
}

func (s *StudentController) GetJob(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    j, err := s.Jobs.Get(c.Request.Context(), actor, id)
    if err != nil {
        respondError(c, s.Log, err)
        return
    }
    c.JSON(http.StatusOK, j)
}

// Eligibility runs the apply gate without writing anything.
func (s *StudentController) Eligibility(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    d, err := s.Placement.CanApply(c.Request.Context(), actor, id)
    if err != nil {
        respondError(c, s.Log, err)
        return
    }
    c.JSON(http.StatusOK, d)
}
