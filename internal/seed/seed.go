// Package seed loads YAML fixtures of colleges, staff, students and job
// postings through the regular services, so every fixture row passes the
// same validation and scope checks as an API call.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/zaqqye/placement_backend/internal/accounts"
	"github.com/zaqqye/placement_backend/internal/jobs"
	"github.com/zaqqye/placement_backend/internal/profile"
	"github.com/zaqqye/placement_backend/internal/scope"
)

//go:embed demo.yaml
var demoFixture []byte

type Fixture struct {
	Colleges []College `yaml:"colleges"`
}

type College struct {
	Name       string    `yaml:"name"`
	Code       string    `yaml:"code"`
	Admin      Account   `yaml:"admin"`
	Moderators []Account `yaml:"moderators"`
	Students   []Student `yaml:"students"`
	Jobs       []Job     `yaml:"jobs"`
}

type Account struct {
	FullName   string `yaml:"full_name"`
	Email      string `yaml:"email"`
	Password   string `yaml:"password"`
	Department string `yaml:"department"`
}

// Student is a pre-registered student. Active false leaves the account
// waiting for approval.
type Student struct {
	Account        `yaml:",inline"`
	Active         *bool    `yaml:"active"`
	Phone          string   `yaml:"phone"`
	Branch         string   `yaml:"branch"`
	CGPA           *float64 `yaml:"cgpa"`
	Backlogs       *int     `yaml:"backlogs"`
	TenthPercent   *float64 `yaml:"tenth_percent"`
	TwelfthPercent *float64 `yaml:"twelfth_percent"`
	GraduationYear *int     `yaml:"graduation_year"`
}

// Job deadlines are relative to the load time so fixtures never go stale.
type Job struct {
	Title             string   `yaml:"title"`
	Company           string   `yaml:"company"`
	Description       string   `yaml:"description"`
	AllowedBranches   []string `yaml:"allowed_branches"`
	MinCGPA           *float64 `yaml:"min_cgpa"`
	MaxBacklogs       *int     `yaml:"max_backlogs"`
	AllowBacklogs     *bool    `yaml:"allow_backlogs"`
	MinTenthPercent   *float64 `yaml:"min_tenth_percent"`
	MinTwelfthPercent *float64 `yaml:"min_twelfth_percent"`
	GraduationYears   []int    `yaml:"graduation_years"`
	DeadlineDays      int      `yaml:"deadline_days"`
	Published         bool     `yaml:"published"`
}

func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Demo is the bundled fixture used by `placementctl -demo`.
func Demo() *Fixture {
	f, err := Parse(demoFixture)
	if err != nil {
		panic(err)
	}
	return f
}

type Seeder struct {
	Accounts *accounts.Service
	Jobs     *jobs.Service
	Profiles *profile.Service
	Log      log.FieldLogger
	Now      func() time.Time
}

type Result struct {
	Colleges int
	Skipped  int
	Accounts int
	Jobs     int
}

// Apply creates every college in f as the super operator. A college whose
// code already exists is skipped whole, so re-running a fixture is safe.
func (s *Seeder) Apply(ctx context.Context, super scope.SuperOperator, f *Fixture) (Result, error) {
	var res Result
	existing, err := s.Accounts.ListColleges(ctx, super)
	if err != nil {
		return res, err
	}
	codes := map[string]bool{}
	for _, c := range existing {
		codes[strings.ToUpper(c.Code)] = true
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	for _, c := range f.Colleges {
		if c.Code != "" && codes[strings.ToUpper(c.Code)] {
			res.Skipped++
			continue
		}
		college, _, err := s.Accounts.CreateCollege(ctx, super, accounts.CollegeInput{
			Name:            c.Name,
			Code:            c.Code,
			AdminEmail:      c.Admin.Email,
			AdminPassword:   c.Admin.Password,
			AdminFullName:   c.Admin.FullName,
			AdminDepartment: c.Admin.Department,
		})
		if err != nil {
			return res, fmt.Errorf("college %q: %w", c.Name, err)
		}
		res.Colleges++
		res.Accounts++

		for _, m := range c.Moderators {
			if _, err := s.Accounts.CreateUser(ctx, super, accounts.UserInput{
				CollegeID:  college.ID,
				Role:       scope.RoleModerator,
				Department: m.Department,
				FullName:   m.FullName,
				Email:      m.Email,
				Password:   m.Password,
			}); err != nil {
				return res, fmt.Errorf("moderator %q: %w", m.Email, err)
			}
			res.Accounts++
		}

		for _, st := range c.Students {
			if err := s.student(ctx, super, college.ID, st); err != nil {
				return res, fmt.Errorf("student %q: %w", st.Email, err)
			}
			res.Accounts++
		}

		for _, j := range c.Jobs {
			days := j.DeadlineDays
			if days <= 0 {
				days = 14
			}
			if _, err := s.Jobs.Create(ctx, super, jobs.CreateInput{
				CollegeID:         college.ID,
				Title:             j.Title,
				Company:           j.Company,
				Description:       j.Description,
				AllowedBranches:   j.AllowedBranches,
				MinCGPA:           j.MinCGPA,
				MaxBacklogs:       j.MaxBacklogs,
				AllowBacklogs:     j.AllowBacklogs,
				MinTenthPercent:   j.MinTenthPercent,
				MinTwelfthPercent: j.MinTwelfthPercent,
				GraduationYears:   j.GraduationYears,
				Deadline:          now.Add(time.Duration(days) * 24 * time.Hour),
				Published:         j.Published,
			}); err != nil {
				return res, fmt.Errorf("job %q: %w", j.Title, err)
			}
			res.Jobs++
		}

		if s.Log != nil {
			s.Log.WithFields(log.Fields{"college_id": college.ID, "code": college.Code}).Info("college seeded")
		}
	}
	return res, nil
}

// student creates the account and fills the profile the way the student
// would, so the academic data lands in the PENDING queue.
func (s *Seeder) student(ctx context.Context, super scope.SuperOperator, collegeID string, in Student) error {
	u, err := s.Accounts.CreateUser(ctx, super, accounts.UserInput{
		CollegeID:  collegeID,
		Role:       scope.RoleStudent,
		Department: in.Department,
		FullName:   in.FullName,
		Email:      in.Email,
		Password:   in.Password,
		Active:     in.Active,
	})
	if err != nil {
		return err
	}
	upd := profile.Update{
		CGPA:            in.CGPA,
		CurrentBacklogs: in.Backlogs,
		TenthPercent:    in.TenthPercent,
		TwelfthPercent:  in.TwelfthPercent,
		GraduationYear:  in.GraduationYear,
	}
	if in.Phone != "" {
		upd.Phone = &in.Phone
	}
	if in.Branch != "" {
		upd.Branch = &in.Branch
	}
	if s.Profiles == nil {
		return nil
	}
	actor := scope.Student{UserID: u.ID, CollegeID: collegeID, Department: u.Department}
	_, err = s.Profiles.UpdateOwn(ctx, actor, upd)
	return err
}
