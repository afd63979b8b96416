package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/models"
)

func (s *Store) CreateCollege(ctx context.Context, c *models.College) error {
	if err := s.conn(ctx).Create(c).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.Conflict("college code already exists")
		}
		return apperr.Internal("failed to create college", err)
	}
	return nil
}

func (s *Store) GetCollege(ctx context.Context, id string) (*models.College, error) {
	var c models.College
	if err := s.conn(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFoundOr(err, "college")
	}
	return &c, nil
}

func (s *Store) ListColleges(ctx context.Context) ([]models.College, error) {
	var out []models.College
	if err := s.conn(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list colleges", err)
	}
	return out, nil
}

func (s *Store) SetCollegeStatus(ctx context.Context, id, status string) error {
	res := s.conn(ctx).Model(&models.College{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return apperr.Internal("failed to update college", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("college not found")
	}
	return nil
}

// DeleteCollegeCascade tears down a tenant and every row it owns.
func (s *Store) DeleteCollegeCascade(ctx context.Context, id string) error {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.College
		if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
			return err
		}
		if err := tx.Where("college_id = ?", id).Delete(&models.Application{}).Error; err != nil {
			return err
		}
		if err := tx.Where("college_id = ?", id).Delete(&models.JobPosting{}).Error; err != nil {
			return err
		}
		if err := tx.Where("college_id = ?", id).Delete(&models.StudentProfile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("college_id = ?", id).Delete(&models.User{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.College{}).Error
	})
	if err != nil {
		return notFoundOr(err, "college")
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.conn(ctx).Create(u).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.Conflict("email already exists")
		}
		return apperr.Internal("failed to create user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

// UserFilter narrows ListUsers; empty fields are unrestricted.
type UserFilter struct {
	CollegeID  string
	Department string
	Role       string
}

func (s *Store) ListUsers(ctx context.Context, f UserFilter) ([]models.User, error) {
	q := s.conn(ctx).Model(&models.User{})
	if f.CollegeID != "" {
		q = q.Where("college_id = ?", f.CollegeID)
	}
	if f.Department != "" {
		q = q.Where(lowerEq("department"), f.Department)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	var out []models.User
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return out, nil
}

// SetAccountApproval updates the approval badge; activate also flips the
// account active. It never deactivates.
func (s *Store) SetAccountApproval(ctx context.Context, userID string, approved, activate bool) error {
	updates := map[string]any{"approved": approved}
	if activate {
		updates["active"] = true
	}
	res := s.conn(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return apperr.Internal("failed to update account", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}
