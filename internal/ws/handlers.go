package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/zaqqye/placement_backend/internal/middleware"
	"github.com/zaqqye/placement_backend/internal/scope"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; rely on JWT auth.
		return true
	},
}

// StaffHandler subscribes a moderator, tenant admin or super operator to
// events of their tenant (and department, when they have one).
func StaffHandler(hubs *Hubs) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hubs == nil || hubs.Staff == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not available"})
			return
		}
		actor, ok := middleware.CurrentActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		var client *staffClient
		switch a := actor.(type) {
		case scope.SuperOperator:
			client = newStaffClient(hubs.Staff, nil, true, "", "")
		case scope.TenantAdmin:
			client = newStaffClient(hubs.Staff, nil, false, a.CollegeID, a.Department)
		case scope.Moderator:
			client = newStaffClient(hubs.Staff, nil, false, a.CollegeID, a.Department)
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client.conn = conn
		hubs.Staff.register <- client

		go client.writePump()
		client.readPump()
	}
}

func StudentHandler(hubs *Hubs) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hubs == nil || hubs.Student == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not available"})
			return
		}
		actor, ok := middleware.CurrentActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		student, ok := actor.(scope.Student)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newStudentClient(hubs.Student, conn, student.UserID)
		hubs.Student.register <- client

		go client.writePump()
		client.readPump()
	}
}
