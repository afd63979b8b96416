// Package profile owns student profile edits: section-lock enforcement,
// review triggers and the completeness flag consumed by the application gate.
package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/eligibility"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/notify"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/store"
)

const (
	SectionPersonal = "personal"
	SectionAcademic = "academic"
)

// Completeness reports whether the mandatory fields are filled and which
// are missing.
type Completeness struct {
	Complete bool     `json:"complete"`
	Missing  []string `json:"missing"`
}

func Evaluate(p *models.StudentProfile) Completeness {
	missing := make([]string, 0)
	if strings.TrimSpace(p.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(p.Branch) == "" {
		missing = append(missing, "branch")
	}
	if p.CGPA <= 0 {
		missing = append(missing, "cgpa")
	}
	if p.TenthPercent <= 0 {
		missing = append(missing, "tenth_percent")
	}
	if p.TwelfthPercent <= 0 {
		missing = append(missing, "twelfth_percent")
	}
	if p.GraduationYear <= 0 {
		missing = append(missing, "graduation_year")
	}
	return Completeness{Complete: len(missing) == 0, Missing: missing}
}

// IsComplete is the boolean the application gate consumes.
func IsComplete(p *models.StudentProfile) bool {
	return Evaluate(p).Complete
}

// SnapshotOf is the eligibility view of a profile.
func SnapshotOf(p *models.StudentProfile) eligibility.Snapshot {
	return eligibility.Snapshot{
		Branch:          p.Branch,
		CGPA:            p.CGPA,
		CurrentBacklogs: p.CurrentBacklogs,
		TenthPercent:    p.TenthPercent,
		TwelfthPercent:  p.TwelfthPercent,
		GraduationYear:  p.GraduationYear,
	}
}

// Resource is the scope view of a profile.
func Resource(p *models.StudentProfile) scope.Resource {
	return scope.Resource{
		Kind:       scope.KindStudent,
		CollegeID:  p.CollegeID,
		Department: p.Department,
		OwnerID:    p.UserID,
	}
}

// Update is a partial edit; nil fields are left unchanged.
type Update struct {
	FullName    *string    `json:"full_name"`
	Phone       *string    `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Address     *string    `json:"address"`

	Branch          *string                 `json:"branch"`
	CGPA            *float64                `json:"cgpa"`
	CurrentBacklogs *int                    `json:"current_backlogs"`
	BacklogHistory  *[]models.BacklogRecord `json:"backlog_history"`
	TenthPercent    *float64                `json:"tenth_percent"`
	TwelfthPercent  *float64                `json:"twelfth_percent"`
	GraduationYear  *int                    `json:"graduation_year"`

	ExpectedVersion *int64 `json:"expected_version"`
}

func (u Update) validate() error {
	fields := map[string]string{}
	if u.FullName != nil && strings.TrimSpace(*u.FullName) == "" {
		fields["full_name"] = "must not be empty"
	}
	if u.Phone != nil && len(strings.TrimSpace(*u.Phone)) > 32 {
		fields["phone"] = "must be at most 32 characters"
	}
	if u.CGPA != nil && (*u.CGPA < 0 || *u.CGPA > 10) {
		fields["cgpa"] = "must be between 0 and 10"
	}
	if u.CurrentBacklogs != nil && *u.CurrentBacklogs < 0 {
		fields["current_backlogs"] = "must not be negative"
	}
	if u.TenthPercent != nil && (*u.TenthPercent < 0 || *u.TenthPercent > 100) {
		fields["tenth_percent"] = "must be between 0 and 100"
	}
	if u.TwelfthPercent != nil && (*u.TwelfthPercent < 0 || *u.TwelfthPercent > 100) {
		fields["twelfth_percent"] = "must be between 0 and 100"
	}
	if u.GraduationYear != nil && (*u.GraduationYear < 1950 || *u.GraduationYear > 2100) {
		fields["graduation_year"] = "must be between 1950 and 2100"
	}
	if u.BacklogHistory != nil {
		for i, b := range *u.BacklogHistory {
			if strings.TrimSpace(b.Subject) == "" {
				fields[fmt.Sprintf("backlog_history[%d].subject", i)] = "must not be empty"
			}
		}
	}
	if len(fields) > 0 {
		return apperr.Invalid("invalid profile data", fields)
	}
	return nil
}

type change struct {
	field     string
	section   string
	sensitive bool
}

// apply copies the set fields onto p and returns the fields whose value
// actually changed.
func (u Update) apply(p *models.StudentProfile) []change {
	var changes []change
	note := func(field, section string, sensitive bool) {
		changes = append(changes, change{field: field, section: section, sensitive: sensitive})
	}

	if u.FullName != nil && strings.TrimSpace(*u.FullName) != p.FullName {
		p.FullName = strings.TrimSpace(*u.FullName)
		note("full_name", SectionPersonal, true)
	}
	if u.Phone != nil && strings.TrimSpace(*u.Phone) != p.Phone {
		p.Phone = strings.TrimSpace(*u.Phone)
		note("phone", SectionPersonal, false)
	}
	if u.DateOfBirth != nil && (p.DateOfBirth == nil || !p.DateOfBirth.Equal(*u.DateOfBirth)) {
		dob := u.DateOfBirth.UTC()
		p.DateOfBirth = &dob
		note("date_of_birth", SectionPersonal, true)
	}
	if u.Address != nil && strings.TrimSpace(*u.Address) != p.Address {
		p.Address = strings.TrimSpace(*u.Address)
		note("address", SectionPersonal, false)
	}

	if u.Branch != nil && strings.TrimSpace(*u.Branch) != p.Branch {
		p.Branch = strings.TrimSpace(*u.Branch)
		note("branch", SectionAcademic, true)
	}
	if u.CGPA != nil && *u.CGPA != p.CGPA {
		p.CGPA = *u.CGPA
		note("cgpa", SectionAcademic, true)
	}
	if u.CurrentBacklogs != nil && *u.CurrentBacklogs != p.CurrentBacklogs {
		p.CurrentBacklogs = *u.CurrentBacklogs
		note("current_backlogs", SectionAcademic, true)
	}
	if u.BacklogHistory != nil {
		next := encodeBacklogs(*u.BacklogHistory)
		if string(next) != string(encodeBacklogs(p.Backlogs())) {
			p.BacklogHistory = next
			note("backlog_history", SectionAcademic, true)
		}
	}
	if u.TenthPercent != nil && *u.TenthPercent != p.TenthPercent {
		p.TenthPercent = *u.TenthPercent
		note("tenth_percent", SectionAcademic, true)
	}
	if u.TwelfthPercent != nil && *u.TwelfthPercent != p.TwelfthPercent {
		p.TwelfthPercent = *u.TwelfthPercent
		note("twelfth_percent", SectionAcademic, true)
	}
	if u.GraduationYear != nil && *u.GraduationYear != p.GraduationYear {
		p.GraduationYear = *u.GraduationYear
		note("graduation_year", SectionAcademic, true)
	}
	return changes
}

func encodeBacklogs(b []models.BacklogRecord) datatypes.JSON {
	if b == nil {
		b = []models.BacklogRecord{}
	}
	return models.EncodeJSON(b)
}

// touches reports which sections an update would write, regardless of
// whether values change.
func (u Update) touches() map[string]bool {
	out := map[string]bool{}
	if u.FullName != nil || u.Phone != nil || u.DateOfBirth != nil || u.Address != nil {
		out[SectionPersonal] = true
	}
	if u.Branch != nil || u.CGPA != nil || u.CurrentBacklogs != nil || u.BacklogHistory != nil ||
		u.TenthPercent != nil || u.TwelfthPercent != nil || u.GraduationYear != nil {
		out[SectionAcademic] = true
	}
	return out
}

type Service struct {
	Store    *store.Store
	Notifier notify.Notifier
	Log      log.FieldLogger
	// RequeueRejectedOnEdit moves a REJECTED profile back to PENDING when
	// the student edits a review-sensitive field.
	RequeueRejectedOnEdit bool
	Now                   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) notify(e notify.Event) {
	if s.Notifier != nil {
		s.Notifier.Notify(e)
	}
}

// Own returns the calling student's profile.
func (s *Service) Own(ctx context.Context, actor scope.Actor) (*models.StudentProfile, error) {
	student, ok := actor.(scope.Student)
	if !ok {
		return nil, apperr.Denied("only students have an own profile")
	}
	p, err := s.Store.GetStudentByUser(ctx, student.UserID)
	if err != nil {
		return nil, err
	}
	if p.Deleted || !scope.Check(actor, scope.ActionRead, Resource(p)).Allowed {
		return nil, apperr.NotFound("student not found")
	}
	return p, nil
}

// UpdateOwn applies a student's self-edit. Writes to a locked section are
// refused; review-sensitive edits on a VERIFIED profile send it back to
// PENDING and are recorded as trigger events.
func (s *Service) UpdateOwn(ctx context.Context, actor scope.Actor, in Update) (*models.StudentProfile, error) {
	student, ok := actor.(scope.Student)
	if !ok {
		return nil, apperr.Denied("only students can edit their own profile")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		out      *models.StudentProfile
		requeued bool
	)
	err := s.Store.Tx(ctx, func(tx *store.Store) error {
		current, err := tx.GetStudentByUser(ctx, student.UserID)
		if err != nil {
			return err
		}
		p, err := tx.LockStudent(ctx, current.ID)
		if err != nil {
			return err
		}
		if p.Deleted || !scope.Check(actor, scope.ActionWrite, Resource(p)).Allowed {
			return apperr.NotFound("student not found")
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != p.Version {
			return apperr.Conflict("profile was modified concurrently")
		}
		touched := in.touches()
		if touched[SectionPersonal] && p.PersonalLocked {
			return apperr.Conflict("personal section is locked")
		}
		if touched[SectionAcademic] && p.AcademicLocked {
			return apperr.Conflict("academic section is locked")
		}

		changes := in.apply(p)
		if len(changes) == 0 {
			out = p
			return nil
		}
		requeued = s.recordTriggers(p, changes)
		if err := tx.SaveStudent(ctx, p); err != nil {
			return err
		}
		if requeued {
			// back in the queue: the approval badge goes with it
			if err := tx.SetAccountApproval(ctx, p.UserID, false, true); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if requeued {
		s.notify(notify.Event{
			Type:       notify.EventProfileRequeued,
			CollegeID:  out.CollegeID,
			Department: out.Department,
			StudentID:  out.ID,
			UserID:     out.UserID,
			Status:     out.VerificationStatus,
			At:         s.now(),
		})
	}
	return out, nil
}

// recordTriggers appends trigger events for sensitive changes and applies
// the status consequence. It reports whether the profile was requeued.
func (s *Service) recordTriggers(p *models.StudentProfile, changes []change) bool {
	var sensitive []string
	for _, c := range changes {
		if c.sensitive {
			sensitive = append(sensitive, c.field)
		}
	}
	if len(sensitive) == 0 {
		return false
	}
	if p.VerificationStatus != models.VerificationVerified && p.VerificationStatus != models.VerificationRejected {
		return false
	}

	now := s.now()
	events := p.Triggers()
	for _, f := range sensitive {
		events = append(events, models.TriggerEvent{Field: f, At: now})
	}
	p.TriggerEvents = models.EncodeJSON(events)

	if p.VerificationStatus == models.VerificationVerified ||
		(p.VerificationStatus == models.VerificationRejected && s.RequeueRejectedOnEdit) {
		p.VerificationStatus = models.VerificationPending
		return true
	}
	return false
}

// ModeratorUpdate lets staff correct any field regardless of section locks.
// Verification status is left alone.
func (s *Service) ModeratorUpdate(ctx context.Context, actor scope.Actor, studentID string, in Update) (*models.StudentProfile, error) {
	if !scope.IsStaff(actor) {
		return nil, apperr.Denied("only staff can edit student profiles")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *models.StudentProfile
	err := s.Store.Tx(ctx, func(tx *store.Store) error {
		p, err := tx.LockStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if p.Deleted || !scope.Check(actor, scope.ActionWrite, Resource(p)).Allowed {
			return apperr.NotFound("student not found")
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != p.Version {
			return apperr.Conflict("profile was modified concurrently")
		}
		if len(in.apply(p)) > 0 {
			if err := tx.SaveStudent(ctx, p); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Log != nil {
		s.Log.WithFields(log.Fields{"student_id": out.ID, "actor_id": actor.ID()}).Info("profile edited by staff")
	}
	return out, nil
}
