// Package stats derives per-job application counts for a department. Every
// number is recomputed from the store on each call.
package stats

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/eligibility"
	"github.com/zaqqye/placement_backend/internal/jobs"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/profile"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/store"
)

// Counts is the derived view for one department and one job.
type Counts struct {
	DepartmentStudents int64 `json:"department_students"`
	Eligible           int64 `json:"eligible"`
	NotEligible        int64 `json:"not_eligible"`
	Applied            int64 `json:"applied"`
	NotApplied         int64 `json:"not_applied"`
}

type JobStats struct {
	Job        models.JobPosting `json:"job"`
	Department string            `json:"department"`
	Stats      Counts            `json:"stats"`
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

// Department resolves which department the actor's stats are about.
// Moderators and department-restricted admins always get their own.
func Department(actor scope.Actor, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	switch a := actor.(type) {
	case scope.Moderator:
		return a.Department, nil
	case scope.TenantAdmin:
		if a.Department != "" {
			return a.Department, nil
		}
	case scope.SuperOperator:
	default:
		return "", apperr.Denied("only staff can view job statistics")
	}
	if requested == "" {
		return "", apperr.Invalid("department is required", map[string]string{"department": "must not be empty"})
	}
	return requested, nil
}

// JobsWithStats lists every job the actor can read with counts for the
// resolved department.
func (s *Service) JobsWithStats(ctx context.Context, actor scope.Actor, department string) ([]JobStats, error) {
	dept, err := Department(actor, department)
	if err != nil {
		return nil, err
	}
	if _, err := s.Store.CloseExpiredJobs(ctx, s.now()); err != nil {
		return nil, err
	}
	all, err := s.Store.ListJobs(ctx, store.JobFilter{CollegeID: scope.CollegeOf(actor)})
	if err != nil {
		return nil, err
	}

	// students are loaded once per college for this call only
	students := map[string][]models.StudentProfile{}
	out := make([]JobStats, 0, len(all))
	for i := range all {
		j := &all[i]
		if !scope.Check(actor, scope.ActionRead, jobs.Resource(j)).Allowed {
			continue
		}
		roster, ok := students[j.CollegeID]
		if !ok {
			roster, err = s.Store.ListStudents(ctx, store.StudentFilter{CollegeID: j.CollegeID, Department: dept})
			if err != nil {
				return nil, err
			}
			students[j.CollegeID] = roster
		}
		c, err := s.count(ctx, j, dept, roster)
		if err != nil {
			return nil, err
		}
		out = append(out, JobStats{Job: *j, Department: dept, Stats: c})
	}
	if s.Log != nil {
		s.Log.WithFields(log.Fields{"actor_id": actor.ID(), "department": dept, "jobs": len(out)}).Debug("job stats computed")
	}
	return out, nil
}

// ForJob computes the counts for a single job.
func (s *Service) ForJob(ctx context.Context, actor scope.Actor, jobID, department string) (JobStats, error) {
	dept, err := Department(actor, department)
	if err != nil {
		return JobStats{}, err
	}
	j, err := s.Store.GetJob(ctx, jobID)
	if err != nil {
		return JobStats{}, err
	}
	if !scope.Check(actor, scope.ActionRead, jobs.Resource(j)).Allowed {
		return JobStats{}, apperr.NotFound("job not found")
	}
	if j.Status == models.JobActive && !s.now().Before(j.Deadline) {
		if _, err := s.Store.CloseIfExpired(ctx, j.ID, s.now()); err != nil {
			return JobStats{}, err
		}
		j.Status = models.JobClosed
	}
	roster, err := s.Store.ListStudents(ctx, store.StudentFilter{CollegeID: j.CollegeID, Department: dept})
	if err != nil {
		return JobStats{}, err
	}
	c, err := s.count(ctx, j, dept, roster)
	if err != nil {
		return JobStats{}, err
	}
	return JobStats{Job: *j, Department: dept, Stats: c}, nil
}

func (s *Service) count(ctx context.Context, j *models.JobPosting, dept string, roster []models.StudentProfile) (Counts, error) {
	criteria := jobs.CriteriaOf(j)
	var eligible int64
	for i := range roster {
		if eligibility.Evaluate(profile.SnapshotOf(&roster[i]), criteria).Eligible {
			eligible++
		}
	}
	applied, err := s.Store.CountDepartmentApplications(ctx, j.ID, dept)
	if err != nil {
		return Counts{}, err
	}
	return Tally(int64(len(roster)), eligible, applied), nil
}

// Tally derives the remaining counts from the three measured ones.
func Tally(departmentStudents, eligible, applied int64) Counts {
	notApplied := eligible - applied
	if notApplied < 0 {
		notApplied = 0
	}
	return Counts{
		DepartmentStudents: departmentStudents,
		Eligible:           eligible,
		NotEligible:        departmentStudents - eligible,
		Applied:            applied,
		NotApplied:         notApplied,
	}
}
