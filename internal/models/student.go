package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Verification statuses.
const (
	VerificationPending  = "PENDING"
	VerificationVerified = "VERIFIED"
	VerificationRejected = "REJECTED"
)

// BacklogRecord is one historical backlog entry.
type BacklogRecord struct {
	Subject  string `json:"subject"`
	Semester int    `json:"semester"`
	Cleared  bool   `json:"cleared"`
}

// TriggerEvent records a profile change that caused (or would cause) re-review.
type TriggerEvent struct {
	Field string    `json:"field"`
	At    time.Time `json:"at"`
}

// StudentProfile is one per student account. It is never hard-deleted.
// Version increments on every write and guards compare-and-set updates.
type StudentProfile struct {
	ID         string `gorm:"size:36;primaryKey" json:"id"`
	UserID     string `gorm:"size:36;uniqueIndex" json:"user_id"`
	CollegeID  string `gorm:"size:36;index" json:"college_id"`
	Department string `gorm:"size:128;index" json:"department"`

	// personal section
	FullName    string     `json:"full_name"`
	Phone       string     `gorm:"size:32" json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Address     string     `gorm:"type:text" json:"address"`

	// academic section
	Branch          string         `gorm:"size:128" json:"branch"`
	CGPA            float64        `json:"cgpa"`
	CurrentBacklogs int            `json:"current_backlogs"`
	BacklogHistory  datatypes.JSON `json:"backlog_history"`
	TenthPercent    float64        `json:"tenth_percent"`
	TwelfthPercent  float64        `json:"twelfth_percent"`
	GraduationYear  int            `json:"graduation_year"`

	VerificationStatus string         `gorm:"size:16;index" json:"verification_status"`
	ReviewedBy         string         `gorm:"size:64" json:"reviewed_by"`
	ReviewedAt         *time.Time     `json:"reviewed_at"`
	RejectionReason    string         `gorm:"type:text" json:"rejection_reason"`
	ReviewNotes        string         `gorm:"type:text" json:"review_notes"`
	TriggerEvents      datatypes.JSON `json:"trigger_events"`

	PersonalLocked   bool       `json:"personal_locked"`
	PersonalLockedBy string     `gorm:"size:64" json:"personal_locked_by"`
	PersonalLockedAt *time.Time `json:"personal_locked_at"`
	AcademicLocked   bool       `json:"academic_locked"`
	AcademicLockedBy string     `gorm:"size:64" json:"academic_locked_by"`
	AcademicLockedAt *time.Time `json:"academic_locked_at"`

	Deleted             bool    `gorm:"index" json:"deleted"`
	Blocked             bool    `json:"blocked"`
	IsPlaced            bool    `json:"is_placed"`
	PlacedApplicationID *string `gorm:"size:36" json:"placed_application_id"`

	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *StudentProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.VerificationStatus == "" {
		p.VerificationStatus = VerificationPending
	}
	if p.Version == 0 {
		p.Version = 1
	}
	// NULL does not scan into datatypes.JSON
	if len(p.BacklogHistory) == 0 {
		p.BacklogHistory = datatypes.JSON("[]")
	}
	if len(p.TriggerEvents) == 0 {
		p.TriggerEvents = datatypes.JSON("[]")
	}
	return nil
}

// Backlogs decodes BacklogHistory; malformed JSON reads as empty.
func (p StudentProfile) Backlogs() []BacklogRecord {
	var out []BacklogRecord
	if len(p.BacklogHistory) == 0 {
		return out
	}
	_ = json.Unmarshal(p.BacklogHistory, &out)
	return out
}

// Triggers decodes TriggerEvents; malformed JSON reads as empty.
func (p StudentProfile) Triggers() []TriggerEvent {
	var out []TriggerEvent
	if len(p.TriggerEvents) == 0 {
		return out
	}
	_ = json.Unmarshal(p.TriggerEvents, &out)
	return out
}

// EncodeJSON marshals v for a datatypes.JSON column.
func EncodeJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}
