package ws

import (
	"time"

	"github.com/zaqqye/placement_backend/internal/notify"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Hubs implements notify.Notifier by pushing every event to the staff
// dashboards of its tenant/department and to the student it concerns.
type Hubs struct {
	Staff   *StaffHub
	Student *StudentHub
}

func NewHubs() *Hubs {
	return &Hubs{
		Staff:   NewStaffHub(),
		Student: NewStudentHub(),
	}
}

// Run starts both hub loops.
func (h *Hubs) Run() {
	go h.Staff.Run()
	go h.Student.Run()
}

func (h *Hubs) Notify(e notify.Event) {
	if h == nil {
		return
	}
	h.Staff.Broadcast(e)
	if e.UserID != "" {
		h.Student.Notify(e.UserID, e)
	}
}
