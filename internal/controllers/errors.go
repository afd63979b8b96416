package controllers

import (
    "errors"
    "net/http"

    "github.com/gin-gonic/gin"
    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/apperr"
    "github.com/zaqqye/placement_backend/internal/middleware"
    "github.com/zaqqye/placement_backend/internal/scope"
)

var statusByKind = map[apperr.Kind]int{
    apperr.KindAuthenticationRequired: http.StatusUnauthorized,
    apperr.KindAuthorizationDenied:    http.StatusForbidden,
    apperr.KindNotFound:               http.StatusNotFound,
    apperr.KindValidation:             http.StatusUnprocessableEntity,
    apperr.KindConflict:               http.StatusConflict,
    apperr.KindIneligible:             http.StatusUnprocessableEntity,
    apperr.KindInternal:               http.StatusInternalServerError,
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
    if s, ok := statusByKind[kind]; ok {
        return s
    }
    return http.StatusInternalServerError
}

// respondError writes {"error", "code"} plus reasons or fields when the
// error carries them. Internal causes are logged, never returned.
func respondError(c *gin.Context, logger log.FieldLogger, err error) {
    var ae *apperr.Error
    if !errors.As(err, &ae) {
        ae = apperr.Internal("internal error", err)
    }
    status := StatusOf(ae.Kind)
    body := gin.H{"error": ae.Message, "code": ae.Kind}
    if len(ae.Reasons) > 0 {
        body["reasons"] = ae.Reasons
    }
    if len(ae.Fields) > 0 {
        body["fields"] = ae.Fields
    }
    if status >= http.StatusInternalServerError {
        if logger == nil {
            logger = log.StandardLogger()
        }
        logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
    }
    c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
    c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
        "error": "invalid request body: " + err.Error(),
        "code":  apperr.KindValidation,
    })
}

// actorOf returns the request's actor or writes 401.
func actorOf(c *gin.Context) (scope.Actor, bool) {
    actor, ok := middleware.CurrentActor(c)
    if !ok {
        c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": apperr.KindAuthenticationRequired})
    }
    return actor, ok
}
