package verification

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/notify"
	"github.com/zaqqye/placement_backend/internal/profile"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/store"
)

type Service struct {
	Store    *store.Store
	Notifier notify.Notifier
	Log      log.FieldLogger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Summary is one row of the verification queue.
type Summary struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	FullName      string                `json:"full_name"`
	Department    string                `json:"department"`
	Branch        string                `json:"branch"`
	CGPA          float64               `json:"cgpa"`
	Status        string                `json:"status"`
	Complete      bool                  `json:"complete"`
	TriggerEvents []models.TriggerEvent `json:"trigger_events"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func requireStaff(actor scope.Actor) error {
	if !scope.IsStaff(actor) {
		return apperr.Denied("only staff can review student profiles")
	}
	return nil
}

// Queue lists PENDING students inside the actor's college and department.
func (s *Service) Queue(ctx context.Context, actor scope.Actor) ([]Summary, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	f := scope.FilterFor(actor)
	students, err := s.Store.ListStudents(ctx, store.StudentFilter{
		CollegeID:  f.CollegeID,
		Department: f.Department,
		Status:     models.VerificationPending,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(students))
	for i := range students {
		p := &students[i]
		if !scope.Check(actor, scope.ActionReview, profile.Resource(p)).Allowed {
			continue
		}
		events := p.Triggers()
		if events == nil {
			events = []models.TriggerEvent{}
		}
		out = append(out, Summary{
			ID:            p.ID,
			UserID:        p.UserID,
			FullName:      p.FullName,
			Department:    p.Department,
			Branch:        p.Branch,
			CGPA:          p.CGPA,
			Status:        p.VerificationStatus,
			Complete:      profile.IsComplete(p),
			TriggerEvents: events,
			UpdatedAt:     p.UpdatedAt,
		})
	}
	return out, nil
}

// Details returns the full profile. Out-of-scope students read as NotFound.
func (s *Service) Details(ctx context.Context, actor scope.Actor, studentID string) (*models.StudentProfile, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	p, err := s.Store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if p.Deleted || !scope.Check(actor, scope.ActionRead, profile.Resource(p)).Allowed {
		return nil, apperr.NotFound("student not found")
	}
	return p, nil
}

func (s *Service) Approve(ctx context.Context, actor scope.Actor, studentID, notes string, expectedVersion *int64) (Record, error) {
	now := s.now()
	p, err := s.transition(ctx, actor, studentID, expectedVersion, func(tx *store.Store, p *models.StudentProfile) error {
		if err := Approve(p, actor.ID(), notes, now); err != nil {
			return err
		}
		if err := tx.SaveStudent(ctx, p); err != nil {
			return err
		}
		return tx.SetAccountApproval(ctx, p.UserID, true, true)
	})
	if err != nil {
		return Record{}, err
	}
	s.emit(notify.EventProfileApproved, p, actor, "")
	return RecordOf(p), nil
}

func (s *Service) Reject(ctx context.Context, actor scope.Actor, studentID, reason string, expectedVersion *int64) (Record, error) {
	now := s.now()
	p, err := s.transition(ctx, actor, studentID, expectedVersion, func(tx *store.Store, p *models.StudentProfile) error {
		if err := Reject(p, actor.ID(), reason, now); err != nil {
			return err
		}
		if err := tx.SaveStudent(ctx, p); err != nil {
			return err
		}
		// approval badge cleared, account kept signed-in capable
		return tx.SetAccountApproval(ctx, p.UserID, false, true)
	})
	if err != nil {
		return Record{}, err
	}
	s.emit(notify.EventProfileRejected, p, actor, p.RejectionReason)
	return RecordOf(p), nil
}

func (s *Service) LockSection(ctx context.Context, actor scope.Actor, studentID, section string, expectedVersion *int64) (*models.StudentProfile, error) {
	return s.setLock(ctx, actor, studentID, section, true, expectedVersion)
}

func (s *Service) UnlockSection(ctx context.Context, actor scope.Actor, studentID, section string, expectedVersion *int64) (*models.StudentProfile, error) {
	return s.setLock(ctx, actor, studentID, section, false, expectedVersion)
}

func (s *Service) setLock(ctx context.Context, actor scope.Actor, studentID, section string, locked bool, expectedVersion *int64) (*models.StudentProfile, error) {
	now := s.now()
	p, err := s.transition(ctx, actor, studentID, expectedVersion, func(tx *store.Store, p *models.StudentProfile) error {
		if err := SetSectionLock(p, section, locked, actor.ID(), now); err != nil {
			return err
		}
		return tx.SaveStudent(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	event := notify.EventSectionUnlocked
	if locked {
		event = notify.EventSectionLocked
	}
	s.emit(event, p, actor, section)
	return p, nil
}

// transition loads the profile under a row lock, enforces scope and the
// caller's expected version, and runs apply in the same transaction.
// SaveStudent's version compare-and-set catches writers that raced past
// the lock.
func (s *Service) transition(ctx context.Context, actor scope.Actor, studentID string, expectedVersion *int64, apply func(*store.Store, *models.StudentProfile) error) (*models.StudentProfile, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	var out *models.StudentProfile
	err := s.Store.Tx(ctx, func(tx *store.Store) error {
		p, err := tx.LockStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if p.Deleted || !scope.Check(actor, scope.ActionReview, profile.Resource(p)).Allowed {
			return apperr.NotFound("student not found")
		}
		if expectedVersion != nil && *expectedVersion != p.Version {
			return apperr.Conflict("profile was modified concurrently")
		}
		if err := apply(tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) emit(eventType string, p *models.StudentProfile, actor scope.Actor, message string) {
	if s.Log != nil {
		s.Log.WithFields(log.Fields{
			"event":      eventType,
			"student_id": p.ID,
			"actor_id":   actor.ID(),
			"status":     p.VerificationStatus,
		}).Info("verification updated")
	}
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(notify.Event{
		Type:       eventType,
		CollegeID:  p.CollegeID,
		Department: p.Department,
		StudentID:  p.ID,
		UserID:     p.UserID,
		Status:     p.VerificationStatus,
		Message:    message,
		At:         s.now(),
	})
}
