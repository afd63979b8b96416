// Package verification governs a student profile's review status and its
// two independent section locks.
package verification

import (
	"strings"
	"time"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/profile"
)

// Record is the verification view of a profile.
type Record struct {
	StudentID       string                `json:"student_id"`
	Status          string                `json:"status"`
	ReviewedBy      string                `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time            `json:"reviewed_at,omitempty"`
	RejectionReason string                `json:"rejection_reason,omitempty"`
	ReviewNotes     string                `json:"review_notes,omitempty"`
	TriggerEvents   []models.TriggerEvent `json:"trigger_events"`
	PersonalLocked  bool                  `json:"personal_locked"`
	AcademicLocked  bool                  `json:"academic_locked"`
	Version         int64                 `json:"version"`
}

func RecordOf(p *models.StudentProfile) Record {
	events := p.Triggers()
	if events == nil {
		events = []models.TriggerEvent{}
	}
	return Record{
		StudentID:       p.ID,
		Status:          p.VerificationStatus,
		ReviewedBy:      p.ReviewedBy,
		ReviewedAt:      p.ReviewedAt,
		RejectionReason: p.RejectionReason,
		ReviewNotes:     p.ReviewNotes,
		TriggerEvents:   events,
		PersonalLocked:  p.PersonalLocked,
		AcademicLocked:  p.AcademicLocked,
		Version:         p.Version,
	}
}

// Approve moves PENDING or REJECTED to VERIFIED and locks both sections.
func Approve(p *models.StudentProfile, reviewer, notes string, now time.Time) error {
	switch p.VerificationStatus {
	case models.VerificationPending, models.VerificationRejected:
	case models.VerificationVerified:
		return apperr.Conflict("profile is already verified")
	default:
		return apperr.Conflict("profile has unknown verification status " + p.VerificationStatus)
	}
	p.VerificationStatus = models.VerificationVerified
	p.RejectionReason = ""
	p.ReviewNotes = strings.TrimSpace(notes)
	p.ReviewedBy = reviewer
	p.ReviewedAt = &now
	setLock(p, profile.SectionPersonal, true, reviewer, now)
	setLock(p, profile.SectionAcademic, true, reviewer, now)
	return nil
}

// Reject moves PENDING or VERIFIED to REJECTED and unlocks both sections so
// the student can fix the data. The reason is required.
func Reject(p *models.StudentProfile, reviewer, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Invalid("rejection reason is required", map[string]string{"reason": "must not be empty"})
	}
	switch p.VerificationStatus {
	case models.VerificationPending, models.VerificationVerified:
	case models.VerificationRejected:
		return apperr.Conflict("profile is already rejected")
	default:
		return apperr.Conflict("profile has unknown verification status " + p.VerificationStatus)
	}
	p.VerificationStatus = models.VerificationRejected
	p.RejectionReason = reason
	p.ReviewedBy = reviewer
	p.ReviewedAt = &now
	setLock(p, profile.SectionPersonal, false, reviewer, now)
	setLock(p, profile.SectionAcademic, false, reviewer, now)
	return nil
}

// SetSectionLock locks or unlocks one section at any status. Requesting
// the current state is a conflict.
func SetSectionLock(p *models.StudentProfile, section string, locked bool, reviewer string, now time.Time) error {
	section = strings.ToLower(strings.TrimSpace(section))
	var current bool
	switch section {
	case profile.SectionPersonal:
		current = p.PersonalLocked
	case profile.SectionAcademic:
		current = p.AcademicLocked
	default:
		return apperr.Invalid("unknown section", map[string]string{"section": "must be personal or academic"})
	}
	if current == locked {
		state := "unlocked"
		if locked {
			state = "locked"
		}
		return apperr.Conflict(section + " section is already " + state)
	}
	setLock(p, section, locked, reviewer, now)
	return nil
}

// setLock records who changed the lock and when, for either direction.
func setLock(p *models.StudentProfile, section string, locked bool, reviewer string, now time.Time) {
	at := now
	switch section {
	case profile.SectionPersonal:
		p.PersonalLocked = locked
		p.PersonalLockedBy = reviewer
		p.PersonalLockedAt = &at
	case profile.SectionAcademic:
		p.AcademicLocked = locked
		p.AcademicLockedBy = reviewer
		p.AcademicLockedAt = &at
	}
}
