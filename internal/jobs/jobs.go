// Package jobs manages job postings: creation with validated criteria,
// the lazy active->closed transition and the student job board.
package jobs

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/eligibility"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/profile"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/store"
)

// CriteriaOf maps stored criteria to the eligibility engine. A nil
// AllowBacklogs means backlogs are allowed.
func CriteriaOf(j *models.JobPosting) eligibility.Criteria {
	allow := true
	if j.AllowBacklogs != nil {
		allow = *j.AllowBacklogs
	}
	return eligibility.Criteria{
		AllowedBranches:   j.Branches(),
		MinCGPA:           j.MinCGPA,
		MaxBacklogs:       j.MaxBacklogs,
		AllowBacklogs:     allow,
		MinTenthPercent:   j.MinTenthPercent,
		MinTwelfthPercent: j.MinTwelfthPercent,
		GraduationYears:   j.Years(),
	}
}

// Resource is the scope view of a job posting. Jobs are college-wide.
func Resource(j *models.JobPosting) scope.Resource {
	return scope.Resource{Kind: scope.KindJob, CollegeID: j.CollegeID, Published: j.Published}
}

type CreateInput struct {
	CollegeID         string    `json:"college_id"`
	Title             string    `json:"title"`
	Company           string    `json:"company"`
	Description       string    `json:"description"`
	AllowedBranches   []string  `json:"allowed_branches"`
	MinCGPA           *float64  `json:"min_cgpa"`
	MaxBacklogs       *int      `json:"max_backlogs"`
	AllowBacklogs     *bool     `json:"allow_backlogs"`
	MinTenthPercent   *float64  `json:"min_tenth_percent"`
	MinTwelfthPercent *float64  `json:"min_twelfth_percent"`
	GraduationYears   []int     `json:"graduation_years"`
	Deadline          time.Time `json:"deadline"`
	Published         bool      `json:"published"`
}

type Service struct {
	Store *store.Store
	Log   log.FieldLogger
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) Create(ctx context.Context, actor scope.Actor, in CreateInput) (*models.JobPosting, error) {
	collegeID := scope.CollegeOf(actor)
	if _, ok := actor.(scope.SuperOperator); ok {
		collegeID = strings.TrimSpace(in.CollegeID)
		if collegeID == "" {
			return nil, apperr.Invalid("college_id is required", map[string]string{"college_id": "must not be empty"})
		}
		if _, err := s.Store.GetCollege(ctx, collegeID); err != nil {
			return nil, err
		}
	}
	if d := scope.Check(actor, scope.ActionManageJobs, scope.Resource{Kind: scope.KindJob, CollegeID: collegeID}); !d.Allowed {
		return nil, apperr.Denied(d.Reason)
	}

	branches := make([]string, 0, len(in.AllowedBranches))
	for _, b := range in.AllowedBranches {
		if b = strings.TrimSpace(b); b != "" {
			branches = append(branches, b)
		}
	}
	years := in.GraduationYears
	if years == nil {
		years = []int{}
	}
	allow := true
	if in.AllowBacklogs != nil {
		allow = *in.AllowBacklogs
	}
	criteria := eligibility.Criteria{
		AllowedBranches:   branches,
		MinCGPA:           in.MinCGPA,
		MaxBacklogs:       in.MaxBacklogs,
		AllowBacklogs:     allow,
		MinTenthPercent:   in.MinTenthPercent,
		MinTwelfthPercent: in.MinTwelfthPercent,
		GraduationYears:   years,
	}
	fields := criteria.Validate()
	if fields == nil {
		fields = map[string]string{}
	}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "must not be empty"
	}
	if strings.TrimSpace(in.Company) == "" {
		fields["company"] = "must not be empty"
	}
	if !in.Deadline.After(s.now()) {
		fields["deadline"] = "must be in the future"
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid("invalid job posting", fields)
	}

	j := &models.JobPosting{
		CollegeID:         collegeID,
		Title:             strings.TrimSpace(in.Title),
		Company:           strings.TrimSpace(in.Company),
		Description:       in.Description,
		AllowedBranches:   models.EncodeJSON(branches),
		MinCGPA:           in.MinCGPA,
		MaxBacklogs:       in.MaxBacklogs,
		AllowBacklogs:     in.AllowBacklogs,
		MinTenthPercent:   in.MinTenthPercent,
		MinTwelfthPercent: in.MinTwelfthPercent,
		GraduationYears:   models.EncodeJSON(years),
		Status:            models.JobActive,
		Published:         in.Published,
		Deadline:          in.Deadline,
		CreatedBy:         actor.ID(),
	}
	if err := s.Store.CreateJob(ctx, j); err != nil {
		return nil, err
	}
	if s.Log != nil {
		s.Log.WithFields(log.Fields{"job_id": j.ID, "college_id": collegeID, "actor_id": actor.ID()}).Info("job created")
	}
	return j, nil
}

// Refresh persists the lazy close when the deadline has passed and updates
// j in place.
func (s *Service) Refresh(ctx context.Context, st *store.Store, j *models.JobPosting) error {
	if j.Status != models.JobActive || s.now().Before(j.Deadline) {
		return nil
	}
	if _, err := st.CloseIfExpired(ctx, j.ID, s.now()); err != nil {
		return err
	}
	j.Status = models.JobClosed
	return nil
}

// Get returns a job visible to the actor. Students only see published jobs
// of their college; anything else reads as NotFound.
func (s *Service) Get(ctx context.Context, actor scope.Actor, id string) (*models.JobPosting, error) {
	j, err := s.Store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Check(actor, scope.ActionRead, Resource(j)).Allowed {
		return nil, apperr.NotFound("job not found")
	}
	if err := s.Refresh(ctx, s.Store, j); err != nil {
		return nil, err
	}
	return j, nil
}

// ListForCollege lists every job staff can see, newest deadline last.
func (s *Service) ListForCollege(ctx context.Context, actor scope.Actor) ([]models.JobPosting, error) {
	if !scope.IsStaff(actor) {
		return nil, apperr.Denied("only staff can list all jobs")
	}
	if _, err := s.Store.CloseExpiredJobs(ctx, s.now()); err != nil {
		return nil, err
	}
	all, err := s.Store.ListJobs(ctx, store.JobFilter{CollegeID: scope.CollegeOf(actor)})
	if err != nil {
		return nil, err
	}
	out := make([]models.JobPosting, 0, len(all))
	for i := range all {
		if scope.Check(actor, scope.ActionRead, Resource(&all[i])).Allowed {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// BoardEntry is one job on the student board with the engine's verdict.
type BoardEntry struct {
	Job               models.JobPosting  `json:"job"`
	Eligibility       eligibility.Result `json:"eligibility"`
	Applied           bool               `json:"applied"`
	ApplicationStatus string             `json:"application_status,omitempty"`
}

// Board lists open published jobs of the student's college, each annotated
// with the student's eligibility and application status.
func (s *Service) Board(ctx context.Context, actor scope.Actor) ([]BoardEntry, error) {
	student, ok := actor.(scope.Student)
	if !ok {
		return nil, apperr.Denied("only students have a job board")
	}
	p, err := s.Store.GetStudentByUser(ctx, student.UserID)
	if err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, apperr.NotFound("student not found")
	}
	if _, err := s.Store.CloseExpiredJobs(ctx, s.now()); err != nil {
		return nil, err
	}
	open, err := s.Store.ListJobs(ctx, store.JobFilter{CollegeID: student.CollegeID, PublishedOnly: true, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	apps, err := s.Store.ListApplications(ctx, store.ApplicationFilter{StudentID: p.ID})
	if err != nil {
		return nil, err
	}
	status := make(map[string]string, len(apps))
	for _, a := range apps {
		status[a.JobID] = a.Status
	}

	snap := profile.SnapshotOf(p)
	out := make([]BoardEntry, 0, len(open))
	for i := range open {
		j := &open[i]
		if !scope.Check(actor, scope.ActionRead, Resource(j)).Allowed {
			continue
		}
		st, applied := status[j.ID]
		out = append(out, BoardEntry{
			Job:               *j,
			Eligibility:       eligibility.Evaluate(snap, CriteriaOf(j)),
			Applied:           applied,
			ApplicationStatus: st,
		})
	}
	return out, nil
}

func (s *Service) Close(ctx context.Context, actor scope.Actor, id string) (*models.JobPosting, error) {
	j, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.Store.SetJobStatus(ctx, j.ID, models.JobClosed); err != nil {
		return nil, err
	}
	j.Status = models.JobClosed
	return j, nil
}

// SetPublished publishes or withdraws a job from the student board.
func (s *Service) SetPublished(ctx context.Context, actor scope.Actor, id string, published bool) (*models.JobPosting, error) {
	j, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if j.Published == published {
		return j, nil
	}
	if err := s.Store.SetJobPublished(ctx, j.ID, published); err != nil {
		return nil, err
	}
	j.Published = published
	return j, nil
}

func (s *Service) manageable(ctx context.Context, actor scope.Actor, id string) (*models.JobPosting, error) {
	j, err := s.Store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Check(actor, scope.ActionRead, Resource(j)).Allowed {
		return nil, apperr.NotFound("job not found")
	}
	if d := scope.Check(actor, scope.ActionManageJobs, Resource(j)); !d.Allowed {
		return nil, apperr.Denied(d.Reason)
	}
	return j, nil
}
