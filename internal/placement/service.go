package placement

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/jobs"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/notify"
	"github.com/zaqqye/placement_backend/internal/profile"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/store"
)

type Service struct {
	Store    *store.Store
	Jobs     *jobs.Service
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

func asStudent(actor scope.Actor) (scope.Student, error) {
	st, ok := actor.(scope.Student)
	if !ok {
		return scope.Student{}, apperr.Denied("only students can apply to jobs")
	}
	return st, nil
}

func ownProfile(ctx context.Context, st *store.Store, student scope.Student) (*models.StudentProfile, error) {
	p, err := st.GetStudentByUser(ctx, student.UserID)
	if err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, apperr.NotFound("student not found")
	}
	return p, nil
}

// loadJob returns nil without error when the job does not exist, so a
// missing job and an out-of-scope job produce the same scope denial.
func loadJob(ctx context.Context, st *store.Store, jobID string) (*models.JobPosting, error) {
	j, err := st.GetJob(ctx, jobID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	return j, err
}

func hasApplication(ctx context.Context, st *store.Store, studentID, jobID string) (bool, error) {
	_, err := st.FindApplication(ctx, studentID, jobID)
	switch {
	case err == nil:
		return true, nil
	case apperr.IsKind(err, apperr.KindNotFound):
		return false, nil
	default:
		return false, err
	}
}

// refreshJob persists the lazy close outside any apply transaction so a
// denied apply does not roll it back.
func (s *Service) refreshJob(ctx context.Context, j *models.JobPosting) error {
	if j == nil || s.Jobs == nil {
		return nil
	}
	return s.Jobs.Refresh(ctx, s.Store, j)
}

// CanApply is the read-only path of the gate.
func (s *Service) CanApply(ctx context.Context, actor scope.Actor, jobID string) (Decision, error) {
	student, err := asStudent(actor)
	if err != nil {
		return Decision{}, err
	}
	p, err := ownProfile(ctx, s.Store, student)
	if err != nil {
		return Decision{}, err
	}
	j, err := loadJob(ctx, s.Store, jobID)
	if err != nil {
		return Decision{}, err
	}
	if err := s.refreshJob(ctx, j); err != nil {
		return Decision{}, err
	}
	existing, err := hasApplication(ctx, s.Store, p.ID, jobID)
	if err != nil {
		return Decision{}, err
	}
	return evaluate(input{actor: actor, student: p, job: j, hasExisting: existing, now: s.now()}), nil
}

// Apply re-runs every check inside one transaction holding the student row
// lock and inserts the application. The (student, job) unique index
// settles any race the lock does not cover.
func (s *Service) Apply(ctx context.Context, actor scope.Actor, jobID string) (*models.Application, error) {
	student, err := asStudent(actor)
	if err != nil {
		return nil, err
	}
	if j, err := loadJob(ctx, s.Store, jobID); err != nil {
		return nil, err
	} else if err := s.refreshJob(ctx, j); err != nil {
		return nil, err
	}

	var app *models.Application
	err = s.Store.Tx(ctx, func(tx *store.Store) error {
		p, err := ownProfile(ctx, tx, student)
		if err != nil {
			return err
		}
		if p, err = tx.LockStudent(ctx, p.ID); err != nil {
			return err
		}
		j, err := loadJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		existing, err := hasApplication(ctx, tx, p.ID, jobID)
		if err != nil {
			return err
		}
		d := evaluate(input{actor: actor, student: p, job: j, hasExisting: existing, now: s.now()})
		if !d.Allowed {
			return d.Err()
		}
		app = &models.Application{StudentID: p.ID, JobID: j.ID, CollegeID: j.CollegeID, Status: models.AppSubmitted}
		return tx.CreateApplication(ctx, app)
	})
	if err != nil {
		return nil, err
	}
	s.emit(notify.EventApplicationSubmitted, app, student.Department, student.UserID, actor)
	return app, nil
}

// AcceptOffer moves an offered application to accepted and marks the
// student placed, both as compare-and-set writes in one transaction. Other
// applications stay as they are but are frozen for staff.
func (s *Service) AcceptOffer(ctx context.Context, actor scope.Actor, applicationID string) (*models.Application, error) {
	student, err := asStudent(actor)
	if err != nil {
		return nil, err
	}
	var app *models.Application
	err = s.Store.Tx(ctx, func(tx *store.Store) error {
		a, p, err := s.ownApplication(ctx, tx, student, applicationID)
		if err != nil {
			return err
		}
		if p.IsPlaced {
			return apperr.Conflict(ReasonPlaced)
		}
		if a.Status != models.AppOffered {
			return apperr.Conflict("application has no open offer (status " + a.Status + ")")
		}
		if err := tx.TransitionApplication(ctx, a, models.AppAccepted, a.InterviewRound); err != nil {
			return err
		}
		if err := tx.MarkPlaced(ctx, p.ID, a.ID); err != nil {
			return err
		}
		app = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(notify.EventOfferAccepted, app, student.Department, student.UserID, actor)
	return app, nil
}

// DeclineOffer moves an offered application to declined.
func (s *Service) DeclineOffer(ctx context.Context, actor scope.Actor, applicationID string) (*models.Application, error) {
	student, err := asStudent(actor)
	if err != nil {
		return nil, err
	}
	var app *models.Application
	err = s.Store.Tx(ctx, func(tx *store.Store) error {
		a, _, err := s.ownApplication(ctx, tx, student, applicationID)
		if err != nil {
			return err
		}
		if a.Status != models.AppOffered {
			return apperr.Conflict("application has no open offer (status " + a.Status + ")")
		}
		if err := tx.TransitionApplication(ctx, a, models.AppDeclined, a.InterviewRound); err != nil {
			return err
		}
		app = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(notify.EventOfferDeclined, app, student.Department, student.UserID, actor)
	return app, nil
}

func (s *Service) ownApplication(ctx context.Context, tx *store.Store, student scope.Student, applicationID string) (*models.Application, *models.StudentProfile, error) {
	a, err := tx.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	p, err := tx.LockStudent(ctx, a.StudentID)
	if err != nil {
		return nil, nil, err
	}
	if p.Deleted || !scope.Check(student, scope.ActionWrite, profile.Resource(p)).Allowed {
		return nil, nil, apperr.NotFound("application not found")
	}
	return a, p, nil
}

// Advance moves an application along the funnel on behalf of staff.
func (s *Service) Advance(ctx context.Context, actor scope.Actor, applicationID, next string) (*models.Application, error) {
	if !scope.IsStaff(actor) {
		return nil, apperr.Denied("only staff can change application status")
	}
	if !isStaffTarget(next) {
		return nil, apperr.Invalid("invalid status", map[string]string{
			"status": "must be one of shortlisted, interview, offered, rejected",
		})
	}
	var (
		app  *models.Application
		prof *models.StudentProfile
	)
	err := s.Store.Tx(ctx, func(tx *store.Store) error {
		a, err := tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		p, err := tx.LockStudent(ctx, a.StudentID)
		if err != nil {
			return err
		}
		if p.Deleted || !scope.Check(actor, scope.ActionWrite, profile.Resource(p)).Allowed {
			return apperr.NotFound("application not found")
		}
		if p.IsPlaced {
			return apperr.Conflict("student is already placed; other applications are frozen")
		}
		if !canAdvance(a.Status, next) {
			return apperr.Conflict("cannot move application from " + a.Status + " to " + next)
		}
		round := a.InterviewRound
		if next == models.AppInterview {
			round++
		}
		if err := tx.TransitionApplication(ctx, a, next, round); err != nil {
			return err
		}
		app, prof = a, p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(notify.EventApplicationStatus, app, prof.Department, prof.UserID, actor)
	return app, nil
}

// MineEntry is an application with the job it targets.
type MineEntry struct {
	Application models.Application `json:"application"`
	JobTitle    string             `json:"job_title"`
	Company     string             `json:"company"`
}

func (s *Service) ListMine(ctx context.Context, actor scope.Actor) ([]MineEntry, error) {
	student, err := asStudent(actor)
	if err != nil {
		return nil, err
	}
	p, err := ownProfile(ctx, s.Store, student)
	if err != nil {
		return nil, err
	}
	apps, err := s.Store.ListApplications(ctx, store.ApplicationFilter{StudentID: p.ID})
	if err != nil {
		return nil, err
	}
	out := make([]MineEntry, 0, len(apps))
	for _, a := range apps {
		e := MineEntry{Application: a}
		if j, err := s.Store.GetJob(ctx, a.JobID); err == nil {
			e.JobTitle, e.Company = j.Title, j.Company
		}
		out = append(out, e)
	}
	return out, nil
}

// JobEntry is an application as staff see it on a job.
type JobEntry struct {
	Application models.Application `json:"application"`
	StudentName string             `json:"student_name"`
	Department  string             `json:"department"`
	IsPlaced    bool               `json:"is_placed"`
}

// ListForJob lists a job's applications from students the actor may read.
func (s *Service) ListForJob(ctx context.Context, actor scope.Actor, jobID string) ([]JobEntry, error) {
	if !scope.IsStaff(actor) {
		return nil, apperr.Denied("only staff can list job applications")
	}
	j, err := s.Store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !scope.Check(actor, scope.ActionRead, jobs.Resource(j)).Allowed {
		return nil, apperr.NotFound("job not found")
	}
	apps, err := s.Store.ListApplications(ctx, store.ApplicationFilter{JobID: j.ID})
	if err != nil {
		return nil, err
	}
	out := make([]JobEntry, 0, len(apps))
	for _, a := range apps {
		p, err := s.Store.GetStudent(ctx, a.StudentID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				continue
			}
			return nil, err
		}
		if p.Deleted || !scope.Check(actor, scope.ActionRead, profile.Resource(p)).Allowed {
			continue
		}
		out = append(out, JobEntry{Application: a, StudentName: p.FullName, Department: p.Department, IsPlaced: p.IsPlaced})
	}
	return out, nil
}

func (s *Service) emit(eventType string, a *models.Application, department, userID string, actor scope.Actor) {
	if s.Log != nil {
		s.Log.WithFields(log.Fields{
			"event":          eventType,
			"application_id": a.ID,
			"job_id":         a.JobID,
			"status":         a.Status,
			"actor_id":       actor.ID(),
		}).Info("application updated")
	}
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(notify.Event{
		Type:          eventType,
		CollegeID:     a.CollegeID,
		Department:    department,
		StudentID:     a.StudentID,
		UserID:        userID,
		ApplicationID: a.ID,
		JobID:         a.JobID,
		Status:        a.Status,
		At:            s.now(),
	})
}
