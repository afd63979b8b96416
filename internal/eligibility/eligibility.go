// Package eligibility decides whether a student snapshot satisfies a job's
// criteria. Evaluate is pure: no I/O, no clock, identical inputs give
// identical results.
package eligibility

import (
	"fmt"
	"strconv"
	"strings"
)

// Reason strings surfaced verbatim to students and staff.
const (
	ReasonBranch         = "branch not eligible"
	ReasonActiveBacklogs = "active backlogs not allowed"
	ReasonTooManyBacklog = "too many backlogs"
	ReasonGraduationYear = "graduation year not eligible"
)

// Snapshot is the normalized student view the engine reads. Fields not
// present here cannot influence a decision.
type Snapshot struct {
	Branch          string
	CGPA            float64
	CurrentBacklogs int
	TenthPercent    float64
	TwelfthPercent  float64
	GraduationYear  int
}

// Criteria are a job's constraints. Nil pointers and empty slices mean
// "no constraint", never zero.
type Criteria struct {
	AllowedBranches   []string
	MinCGPA           *float64
	MaxBacklogs       *int
	AllowBacklogs     bool
	MinTenthPercent   *float64
	MinTwelfthPercent *float64
	GraduationYears   []int
}

// Result lists every failing criterion, in rule order.
type Result struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}

// Evaluate applies every rule and accumulates reasons.
func Evaluate(s Snapshot, c Criteria) Result {
	reasons := make([]string, 0, 4)

	if len(c.AllowedBranches) > 0 && !containsFold(c.AllowedBranches, s.Branch) {
		reasons = append(reasons, ReasonBranch)
	}
	if c.MinCGPA != nil && s.CGPA < *c.MinCGPA {
		reasons = append(reasons, fmt.Sprintf("CGPA below minimum (%s required)", formatScore(*c.MinCGPA)))
	}
	if !c.AllowBacklogs && s.CurrentBacklogs > 0 {
		reasons = append(reasons, ReasonActiveBacklogs)
	} else if c.MaxBacklogs != nil && s.CurrentBacklogs > *c.MaxBacklogs {
		reasons = append(reasons, ReasonTooManyBacklog)
	}
	if c.MinTenthPercent != nil && s.TenthPercent < *c.MinTenthPercent {
		reasons = append(reasons, fmt.Sprintf("10th percentage below minimum (%s required)", formatScore(*c.MinTenthPercent)))
	}
	if c.MinTwelfthPercent != nil && s.TwelfthPercent < *c.MinTwelfthPercent {
		reasons = append(reasons, fmt.Sprintf("12th percentage below minimum (%s required)", formatScore(*c.MinTwelfthPercent)))
	}
	if len(c.GraduationYears) > 0 && !containsInt(c.GraduationYears, s.GraduationYear) {
		reasons = append(reasons, ReasonGraduationYear)
	}

	return Result{Eligible: len(reasons) == 0, Reasons: reasons}
}

// Validate rejects criteria that cannot be satisfied meaningfully.
func (c Criteria) Validate() map[string]string {
	problems := map[string]string{}
	if c.MinCGPA != nil && (*c.MinCGPA < 0 || *c.MinCGPA > 10) {
		problems["min_cgpa"] = "must be between 0 and 10"
	}
	if c.MaxBacklogs != nil && *c.MaxBacklogs < 0 {
		problems["max_backlogs"] = "must not be negative"
	}
	if c.MinTenthPercent != nil && (*c.MinTenthPercent < 0 || *c.MinTenthPercent > 100) {
		problems["min_tenth_percent"] = "must be between 0 and 100"
	}
	if c.MinTwelfthPercent != nil && (*c.MinTwelfthPercent < 0 || *c.MinTwelfthPercent > 100) {
		problems["min_twelfth_percent"] = "must be between 0 and 100"
	}
	for _, b := range c.AllowedBranches {
		if strings.TrimSpace(b) == "" {
			problems["allowed_branches"] = "must not contain empty names"
			break
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// formatScore prints whole numbers with one decimal (7 -> "7.0") and keeps
// the declared precision otherwise (7.25 -> "7.25").
func formatScore(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func containsFold(list []string, value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}

func containsInt(list []int, value int) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
