package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// College is a tenant. Every other row belongs to one transitively.
type College struct {
	ID        string    `gorm:"size:36;primaryKey" json:"id"`
	Name      string    `json:"name"`
	Code      string    `gorm:"uniqueIndex;size:64" json:"code"`
	Status    string    `gorm:"size:16;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	CollegeActive   = "active"
	CollegeInactive = "inactive"
)

func (c *College) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = CollegeActive
	}
	return nil
}

// User is an actor account. CollegeID is nil only for the super-operator.
// Approved drives the UI approval badge and follows profile verification.
type User struct {
	ID         string    `gorm:"size:36;primaryKey" json:"id"`
	CollegeID  *string   `gorm:"size:36;index" json:"college_id"`
	Role       string    `gorm:"size:32;index" json:"role"`
	Department string    `gorm:"size:128;index" json:"department"`
	FullName   string    `json:"full_name"`
	Email      string    `gorm:"uniqueIndex;size:255" json:"email"`
	Password   string    `json:"-"`
	Active     bool      `json:"active"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// College returns the tenant id or "" for the super-operator.
func (u User) College() string {
	if u.CollegeID == nil {
		return ""
	}
	return *u.CollegeID
}
