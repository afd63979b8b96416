package eligibility

import (
	"reflect"
	"testing"
)

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name    string
		student Snapshot
		job     Criteria
		want    Result
	}{
		{
			name:    "eligible computer science student",
			student: Snapshot{Branch: "CS", CGPA: 7.2, CurrentBacklogs: 0},
			job:     Criteria{AllowedBranches: []string{"CS", "IT"}, MinCGPA: f64(7.0), AllowBacklogs: true},
			want:    Result{Eligible: true, Reasons: []string{}},
		},
		{
			name:    "low cgpa and active backlog accumulate",
			student: Snapshot{Branch: "ME", CGPA: 6.5, CurrentBacklogs: 1},
			job:     Criteria{MinCGPA: f64(7.0), AllowBacklogs: false},
			want:    Result{Eligible: false, Reasons: []string{"CGPA below minimum (7.0 required)", "active backlogs not allowed"}},
		},
		{
			name:    "branch mismatch is case-insensitive",
			student: Snapshot{Branch: " it ", CGPA: 9},
			job:     Criteria{AllowedBranches: []string{"CS", "IT"}, AllowBacklogs: true},
			want:    Result{Eligible: true, Reasons: []string{}},
		},
		{
			name:    "branch not in list",
			student: Snapshot{Branch: "EE", CGPA: 9},
			job:     Criteria{AllowedBranches: []string{"CS"}, AllowBacklogs: true},
			want:    Result{Eligible: false, Reasons: []string{ReasonBranch}},
		},
		{
			name:    "max backlogs only checked when backlogs allowed",
			student: Snapshot{Branch: "CS", CGPA: 8, CurrentBacklogs: 3},
			job:     Criteria{AllowBacklogs: true, MaxBacklogs: intp(2)},
			want:    Result{Eligible: false, Reasons: []string{ReasonTooManyBacklog}},
		},
		{
			name:    "backlogs within max",
			student: Snapshot{Branch: "CS", CGPA: 8, CurrentBacklogs: 2},
			job:     Criteria{AllowBacklogs: true, MaxBacklogs: intp(2)},
			want:    Result{Eligible: true, Reasons: []string{}},
		},
		{
			name:    "disallowed backlogs reported once even with max set",
			student: Snapshot{Branch: "CS", CGPA: 8, CurrentBacklogs: 5},
			job:     Criteria{AllowBacklogs: false, MaxBacklogs: intp(2)},
			want:    Result{Eligible: false, Reasons: []string{ReasonActiveBacklogs}},
		},
		{
			name:    "zero-valued criteria are no constraint",
			student: Snapshot{Branch: "", CGPA: 0, CurrentBacklogs: 0},
			job:     Criteria{AllowBacklogs: true},
			want:    Result{Eligible: true, Reasons: []string{}},
		},
		{
			name:    "fractional minimum keeps precision",
			student: Snapshot{Branch: "CS", CGPA: 7.2},
			job:     Criteria{MinCGPA: f64(7.25), AllowBacklogs: true},
			want:    Result{Eligible: false, Reasons: []string{"CGPA below minimum (7.25 required)"}},
		},
		{
			name:    "school marks and graduation year",
			student: Snapshot{Branch: "CS", CGPA: 8, TenthPercent: 55, TwelfthPercent: 70, GraduationYear: 2024},
			job: Criteria{
				AllowBacklogs:     true,
				MinTenthPercent:   f64(60),
				MinTwelfthPercent: f64(60),
				GraduationYears:   []int{2025, 2026},
			},
			want: Result{Eligible: false, Reasons: []string{"10th percentage below minimum (60.0 required)", ReasonGraduationYear}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.student, tt.job)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Evaluate() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	s := Snapshot{Branch: "CS", CGPA: 6.9, CurrentBacklogs: 1, TenthPercent: 80}
	c := Criteria{AllowedBranches: []string{"IT"}, MinCGPA: f64(7), MaxBacklogs: intp(0), AllowBacklogs: true}

	first := Evaluate(s, c)
	second := Evaluate(s, c)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ: %#v vs %#v", first, second)
	}

	// TenthPercent is not constrained by c, so changing it cannot matter.
	s.TenthPercent = 10
	if third := Evaluate(s, c); !reflect.DeepEqual(first, third) {
		t.Fatalf("unread field changed result: %#v vs %#v", first, third)
	}
}

func TestCriteriaValidate(t *testing.T) {
	if problems := (Criteria{MinCGPA: f64(7)}).Validate(); problems != nil {
		t.Fatalf("valid criteria reported %v", problems)
	}
	problems := Criteria{
		MinCGPA:         f64(11),
		MaxBacklogs:     intp(-1),
		MinTenthPercent: f64(120),
		AllowedBranches: []string{"CS", " "},
	}.Validate()
	for _, key := range []string{"min_cgpa", "max_backlogs", "min_tenth_percent", "allowed_branches"} {
		if _, ok := problems[key]; !ok {
			t.Fatalf("missing problem for %s in %v", key, problems)
		}
	}
}
