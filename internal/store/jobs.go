package store

import (
	"context"
	"time"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/models"
)

func (s *Store) CreateJob(ctx context.Context, j *models.JobPosting) error {
	if err := s.conn(ctx).Create(j).Error; err != nil {
		return apperr.Internal("failed to create job", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*models.JobPosting, error) {
	var j models.JobPosting
	if err := s.conn(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, notFoundOr(err, "job")
	}
	return &j, nil
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	CollegeID     string
	PublishedOnly bool
	ActiveOnly    bool
}

func (s *Store) ListJobs(ctx context.Context, f JobFilter) ([]models.JobPosting, error) {
	q := s.conn(ctx).Model(&models.JobPosting{})
	if f.CollegeID != "" {
		q = q.Where("college_id = ?", f.CollegeID)
	}
	if f.PublishedOnly {
		q = q.Where("published = ?", true)
	}
	if f.ActiveOnly {
		q = q.Where("status = ?", models.JobActive)
	}
	var out []models.JobPosting
	if err := q.Order("deadline ASC").Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list jobs", err)
	}
	return out, nil
}

// CloseExpiredJobs marks every active job whose deadline has passed as
// closed and returns how many rows changed.
func (s *Store) CloseExpiredJobs(ctx context.Context, now time.Time) (int64, error) {
	res := s.conn(ctx).Model(&models.JobPosting{}).
		Where("status = ? AND deadline <= ?", models.JobActive, now.UTC()).
		Updates(map[string]any{"status": models.JobClosed, "updated_at": now})
	if res.Error != nil {
		return 0, apperr.Internal("failed to close expired jobs", res.Error)
	}
	return res.RowsAffected, nil
}

// SetJobStatus changes status only when it differs; an unchanged status
// returns Conflict.
func (s *Store) SetJobStatus(ctx context.Context, id, status string) error {
	res := s.conn(ctx).Model(&models.JobPosting{}).
		Where("id = ? AND status <> ?", id, status).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return apperr.Internal("failed to update job", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return err
		}
		return apperr.Conflict("job is already " + status)
	}
	return nil
}

func (s *Store) SetJobPublished(ctx context.Context, id string, published bool) error {
	res := s.conn(ctx).Model(&models.JobPosting{}).
		Where("id = ?", id).
		Updates(map[string]any{"published": published, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return apperr.Internal("failed to update job", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("job not found")
	}
	return nil
}

// CloseIfExpired persists the lazy active->closed transition for one job.
// It reports whether this call performed it.
func (s *Store) CloseIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	res := s.conn(ctx).Model(&models.JobPosting{}).
		Where("id = ? AND status = ? AND deadline <= ?", id, models.JobActive, now.UTC()).
		Updates(map[string]any{"status": models.JobClosed, "updated_at": now})
	if res.Error != nil {
		return false, apperr.Internal("failed to close job", res.Error)
	}
	return res.RowsAffected > 0, nil
}
