package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	JobActive = "active"
	JobClosed = "closed"
)

// JobPosting belongs to one college. Nullable criteria mean "no constraint".
// AllowBacklogs nil is treated as allowed.
type JobPosting struct {
	ID          string `gorm:"size:36;primaryKey" json:"id"`
	CollegeID   string `gorm:"size:36;index" json:"college_id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `gorm:"type:text" json:"description"`

	AllowedBranches   datatypes.JSON `json:"allowed_branches"`
	MinCGPA           *float64       `json:"min_cgpa"`
	MaxBacklogs       *int           `json:"max_backlogs"`
	AllowBacklogs     *bool          `json:"allow_backlogs"`
	MinTenthPercent   *float64       `json:"min_tenth_percent"`
	MinTwelfthPercent *float64       `json:"min_twelfth_percent"`
	GraduationYears   datatypes.JSON `json:"graduation_years"`

	Status    string    `gorm:"size:16;index" json:"status"`
	Published bool      `json:"published"`
	Deadline  time.Time `json:"deadline"`
	CreatedBy string    `gorm:"size:64" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *JobPosting) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = JobActive
	}
	j.Deadline = j.Deadline.UTC()
	if len(j.AllowedBranches) == 0 {
		j.AllowedBranches = datatypes.JSON("[]")
	}
	if len(j.GraduationYears) == 0 {
		j.GraduationYears = datatypes.JSON("[]")
	}
	return nil
}

// Branches decodes AllowedBranches.
func (j JobPosting) Branches() []string {
	var out []string
	if len(j.AllowedBranches) > 0 {
		_ = json.Unmarshal(j.AllowedBranches, &out)
	}
	return out
}

// Years decodes GraduationYears.
func (j JobPosting) Years() []int {
	var out []int
	if len(j.GraduationYears) > 0 {
		_ = json.Unmarshal(j.GraduationYears, &out)
	}
	return out
}

// OpenAt reports whether the job accepts applications at now.
func (j JobPosting) OpenAt(now time.Time) bool {
	return j.Status == JobActive && now.Before(j.Deadline)
}
