// Package notify carries fire-and-forget notifications about verification
// and application changes. A Notifier must never block the caller and its
// failures never roll back the change that triggered it.
package notify

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	EventProfileApproved      = "profile.approved"
	EventProfileRejected      = "profile.rejected"
	EventProfileRequeued      = "profile.requeued"
	EventSectionLocked        = "profile.section_locked"
	EventSectionUnlocked      = "profile.section_unlocked"
	EventStudentBlocked       = "student.blocked"
	EventApplicationSubmitted = "application.submitted"
	EventApplicationStatus    = "application.status"
	EventOfferAccepted        = "application.offer_accepted"
	EventOfferDeclined        = "application.offer_declined"
)

// Event is routed to staff of CollegeID/Department and to the student
// account UserID.
type Event struct {
	Type          string    `json:"type"`
	CollegeID     string    `json:"college_id"`
	Department    string    `json:"department,omitempty"`
	StudentID     string    `json:"student_id,omitempty"`
	UserID        string    `json:"-"`
	ApplicationID string    `json:"application_id,omitempty"`
	JobID         string    `json:"job_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	Message       string    `json:"message,omitempty"`
	At            time.Time `json:"at"`
}

type Notifier interface {
	Notify(Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(Event) {}

// Multi fans an event out to every notifier.
type Multi []Notifier

func (m Multi) Notify(e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(e)
		}
	}
}

// Logger writes each event as a structured log line.
type Logger struct {
	Log log.FieldLogger
}

func (l Logger) Notify(e Event) {
	if l.Log == nil {
		return
	}
	l.Log.WithFields(log.Fields{
		"event":          e.Type,
		"college_id":     e.CollegeID,
		"department":     e.Department,
		"student_id":     e.StudentID,
		"application_id": e.ApplicationID,
		"status":         e.Status,
	}).Info("notification")
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists recorded event types in order.
func (r *Recorder) Types() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
