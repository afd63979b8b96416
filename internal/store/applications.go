package store

import (
	"context"
	"time"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/models"
)

// CreateApplication inserts a new row. The unique (student_id, job_id)
// index turns a lost duplicate race into Conflict.
func (s *Store) CreateApplication(ctx context.Context, a *models.Application) error {
	if err := s.conn(ctx).Create(a).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.Conflict("already applied to this job")
		}
		return apperr.Internal("failed to create application", err)
	}
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	var a models.Application
	if err := s.conn(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFoundOr(err, "application")
	}
	return &a, nil
}

// FindApplication returns the application of a student for a job, or
// NotFound.
func (s *Store) FindApplication(ctx context.Context, studentID, jobID string) (*models.Application, error) {
	var a models.Application
	if err := s.conn(ctx).Where("student_id = ? AND job_id = ?", studentID, jobID).First(&a).Error; err != nil {
		return nil, notFoundOr(err, "application")
	}
	return &a, nil
}

// ApplicationFilter narrows ListApplications.
type ApplicationFilter struct {
	CollegeID string
	StudentID string
	JobID     string
	Status    string
}

func (s *Store) ListApplications(ctx context.Context, f ApplicationFilter) ([]models.Application, error) {
	q := s.conn(ctx).Model(&models.Application{})
	if f.CollegeID != "" {
		q = q.Where("college_id = ?", f.CollegeID)
	}
	if f.StudentID != "" {
		q = q.Where("student_id = ?", f.StudentID)
	}
	if f.JobID != "" {
		q = q.Where("job_id = ?", f.JobID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.Application
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list applications", err)
	}
	return out, nil
}

// CountDepartmentApplications counts applications to jobID from
// non-deleted students of the department (case-insensitive).
func (s *Store) CountDepartmentApplications(ctx context.Context, jobID, department string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Application{}).
		Joins("JOIN student_profiles ON student_profiles.id = applications.student_id").
		Where("applications.job_id = ? AND student_profiles.deleted = ?", jobID, false).
		Where(lowerEq("student_profiles.department"), department).
		Count(&n).Error
	if err != nil {
		return 0, apperr.Internal("failed to count applications", err)
	}
	return n, nil
}

// TransitionApplication moves a from its current status to next if nobody
// else changed it since it was read.
func (s *Store) TransitionApplication(ctx context.Context, a *models.Application, next string, round int) error {
	expected := a.Version
	now := time.Now().UTC()
	res := s.conn(ctx).Model(&models.Application{}).
		Where("id = ? AND status = ? AND version = ?", a.ID, a.Status, expected).
		Updates(map[string]any{
			"status":          next,
			"interview_round": round,
			"version":         expected + 1,
			"updated_at":      now,
		})
	if res.Error != nil {
		return apperr.Internal("failed to update application", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("application was modified concurrently")
	}
	a.Status = next
	a.InterviewRound = round
	a.Version = expected + 1
	a.UpdatedAt = now
	return nil
}
