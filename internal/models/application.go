package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Application funnel statuses.
const (
	AppSubmitted   = "submitted"
	AppShortlisted = "shortlisted"
	AppInterview   = "interview"
	AppOffered     = "offered"
	AppRejected    = "rejected"
	AppAccepted    = "accepted"
	AppDeclined    = "declined"
)

// Application links one StudentProfile to one JobPosting; the composite
// unique index is the final arbiter against duplicate applies.
type Application struct {
	ID             string    `gorm:"size:36;primaryKey" json:"id"`
	StudentID      string    `gorm:"size:36;uniqueIndex:uniq_application_student_job;index" json:"student_id"`
	JobID          string    `gorm:"size:36;uniqueIndex:uniq_application_student_job;index" json:"job_id"`
	CollegeID      string    `gorm:"size:36;index" json:"college_id"`
	Status         string    `gorm:"size:16;index" json:"status"`
	InterviewRound int       `json:"interview_round"`
	Version        int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AppSubmitted
	}
	if a.Version == 0 {
		a.Version = 1
	}
	return nil
}
