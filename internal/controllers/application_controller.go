package controllers

import (
    "net/http"

    "github.com/gin-gonic/gin"
    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/placement"
)

type ApplicationController struct {
    Placement *placement.Service
    Log       log.FieldLogger
}

type applyRequest struct {
    JobID FlexibleString `json:"job_id" binding:"required"`
}

// Apply returns 201 with the application, or the first failing gate check
// with its reasons.
func (a *ApplicationController) Apply(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    var req applyRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        badRequest(c, err)
        return
    }
    app, err := a.Placement.Apply(c.Request.Context(), actor, req.JobID.String())
    if err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusCreated, app)
}

func (a *ApplicationController) ListMine(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    list, err := a.Placement.ListMine(c.Request.Context(), actor)
    if err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusOK, gin.H{"data": list})
}

func (a *ApplicationController) Accept(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    app, err := a.Placement.AcceptOffer(c.Request.Context(), actor, id)
    if err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusOK, app)
}

func (a *ApplicationController) Decline(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    app, err := a.Placement.DeclineOffer(c.Request.Context(), actor, id)
    if err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusOK, app)
}

type advanceRequest struct {
    Status string `json:"status" binding:"required"`
}

func (a *ApplicationController) Advance(c *gin.Context) {
    actor, ok := actorOf(c)
    if !ok {
        return
    }
    id, ok := pathID(c, "id")
    if !ok {
        return
    }
    var req advanceRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        badRequest(c, err)
        return
    }
    app, err := a.Placement.Advance(c.Request.Context(), actor, id, req.Status)
    if err != nil {
        respondError(c, a.Log, err)
        return
    }
    c.JSON(http.StatusOK, app)
}
