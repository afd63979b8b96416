package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/models"
)

func (s *Store) CreateStudent(ctx context.Context, p *models.StudentProfile) error {
	if err := s.conn(ctx).Create(p).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.Conflict("student profile already exists")
		}
		return apperr.Internal("failed to create student profile", err)
	}
	return nil
}

// GetStudent returns the profile including soft-deleted rows; callers
// decide whether deleted profiles are visible.
func (s *Store) GetStudent(ctx context.Context, id string) (*models.StudentProfile, error) {
	var p models.StudentProfile
	if err := s.conn(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFoundOr(err, "student")
	}
	return &p, nil
}

func (s *Store) GetStudentByUser(ctx context.Context, userID string) (*models.StudentProfile, error) {
	var p models.StudentProfile
	if err := s.conn(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, notFoundOr(err, "student")
	}
	return &p, nil
}

// LockStudent reads the profile holding a row lock until the enclosing
// transaction ends. Outside Tx it behaves like GetStudent.
func (s *Store) LockStudent(ctx context.Context, id string) (*models.StudentProfile, error) {
	var p models.StudentProfile
	if err := s.forUpdate(s.conn(ctx)).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFoundOr(err, "student")
	}
	return &p, nil
}

// StudentFilter narrows ListStudents; empty fields are unrestricted.
type StudentFilter struct {
	CollegeID      string
	Department     string
	Status         string
	IncludeDeleted bool
}

func (s *Store) ListStudents(ctx context.Context, f StudentFilter) ([]models.StudentProfile, error) {
	q := s.conn(ctx).Model(&models.StudentProfile{})
	if f.CollegeID != "" {
		q = q.Where("college_id = ?", f.CollegeID)
	}
	if f.Department != "" {
		q = q.Where(lowerEq("department"), f.Department)
	}
	if f.Status != "" {
		q = q.Where("verification_status = ?", f.Status)
	}
	if !f.IncludeDeleted {
		q = q.Where("deleted = ?", false)
	}
	var out []models.StudentProfile
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list students", err)
	}
	return out, nil
}

// CountStudents counts non-deleted students in a college, or in one of its
// departments when department is set.
func (s *Store) CountStudents(ctx context.Context, collegeID, department string) (int64, error) {
	var n int64
	q := s.conn(ctx).Model(&models.StudentProfile{}).
		Where("college_id = ? AND deleted = ?", collegeID, false)
	if department != "" {
		q = q.Where(lowerEq("department"), department)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, apperr.Internal("failed to count students", err)
	}
	return n, nil
}

// SaveStudent writes every mutable column of p if the stored version still
// equals p.Version, then bumps p.Version. A lost race returns Conflict.
func (s *Store) SaveStudent(ctx context.Context, p *models.StudentProfile) error {
	expected := p.Version
	now := time.Now().UTC()
	res := s.conn(ctx).Model(&models.StudentProfile{}).
		Where("id = ? AND version = ?", p.ID, expected).
		Updates(map[string]any{
			"full_name":           p.FullName,
			"phone":               p.Phone,
			"date_of_birth":       p.DateOfBirth,
			"address":             p.Address,
			"branch":              p.Branch,
			"cgpa":                p.CGPA,
			"current_backlogs":    p.CurrentBacklogs,
			"backlog_history":     nonNullJSON(p.BacklogHistory),
			"tenth_percent":       p.TenthPercent,
			"twelfth_percent":     p.TwelfthPercent,
			"graduation_year":     p.GraduationYear,
			"verification_status": p.VerificationStatus,
			"reviewed_by":         p.ReviewedBy,
			"reviewed_at":         p.ReviewedAt,
			"rejection_reason":    p.RejectionReason,
			"review_notes":        p.ReviewNotes,
			"trigger_events":      nonNullJSON(p.TriggerEvents),
			"personal_locked":     p.PersonalLocked,
			"personal_locked_by":  p.PersonalLockedBy,
			"personal_locked_at":  p.PersonalLockedAt,
			"academic_locked":     p.AcademicLocked,
			"academic_locked_by":  p.AcademicLockedBy,
			"academic_locked_at":  p.AcademicLockedAt,
			"deleted":             p.Deleted,
			"blocked":             p.Blocked,
			"version":             expected + 1,
			"updated_at":          now,
		})
	if res.Error != nil {
		return apperr.Internal("failed to save student", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("student was modified concurrently")
	}
	p.Version = expected + 1
	p.UpdatedAt = now
	return nil
}

// MarkPlaced flips is_placed exactly once. The WHERE clause is the guard:
// a second concurrent accept affects zero rows and gets Conflict.
func (s *Store) MarkPlaced(ctx context.Context, studentID, applicationID string) error {
	res := s.conn(ctx).Model(&models.StudentProfile{}).
		Where("id = ? AND is_placed = ?", studentID, false).
		Updates(map[string]any{
			"is_placed":             true,
			"placed_application_id": applicationID,
			"version":               gorm.Expr("version + 1"),
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return apperr.Internal("failed to mark student placed", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("student is already placed")
	}
	return nil
}
