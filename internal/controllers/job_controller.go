package controllers

import (
    "net/http"

    "github.com/gin-gonic/gin"
    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/jobs"
    "github.com/zaqqye/placement_backend/internal/placement"
    "github.com/zaqqye/placement_backend/internal/stats"
)

// JobController serves job management and statistics for staff.
type JobController struct {
    Jobs      *jobs.Service
    Stats     *stats.Service
    Placement *placement.Service
    Log       log.FieldLogger
}

func (j *JobController) Create(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    var in jobs.CreateInput
    if err := c.ShouldBindJSON(&in); err != nil {
        badRequest(c, err)
        return
    }
    job, err := j.Jobs.Create(c.Request.Context(), actor, in)
    if err != nil {
        respondError(c, j.Log, err)
        return
    }
    c.JSON(http.StatusCreated, job)
}

func (j *JobController) List(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    list, err := j.Jobs.ListForCollege(c.Request.Context(), actor)
    if err != nil {
        respondError(c, j.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"data": list})
}

func (j *JobController) Get(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    job, err := j.Jobs.Get(c.Request.Context(), actor, id)
    if err != nil {
        respondError(c, j.Log, err)
        return
    }
    c.JSON(http.StatusOK, job)
}

func (j *JobController) Close(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    job, err := j.Jobs.Close(c.Request.Context(), actor, id)
    if err != nil {
        respondError(c, j.Log, err)
        return
    }
    c.JSON(http.StatusOK, job)
}

type publishRequest struct {
    Published *bool `json:"published" binding:"required"`
}

func (j *JobController) Publish(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    var req publishRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        badRequest(c, err)
        return
    }
    job, err := j.Jobs.SetPublished(c.Request.Context(), actor, id, *req.Published)
    if err != nil {
        respondError(c, j.Log, err)
        return
    }
    c.JSON(http.StatusOK, job)
}

// ListStats is jobsWithStats for the requested (or the actor's own) department.
func (j *JobController) ListStats(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    list, err := j.Stats.JobsWithStats(c.Request.Context(), actor, c.Query("department"))
    if err != nil {
        respondError(c, j.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"data": list})
}

func (j *JobController) JobStats(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    s, err := j.Stats.ForJob(c.Request.Context(), actor, id, c.Query("department"))
    if err != nil {
        respondError(c, j.Log, err)
        return
    }
    c.JSON(http.StatusOK, s)
}

func (j *JobController) Applications(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    list, err := j.Placement.ListForJob(c.Request.Context(), actor, id)
    if err != nil {
        respondError(c, j.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"data": list})
}
