package stats

import (
	"context"
	"testing"
	"time"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/testutil"
)

func TestTally(t *testing.T) {
	cases := []struct {
		name                     string
		students, elig, applied  int64
		wantNotElig, wantNotAppl int64
	}{
		{"typical", 10, 6, 4, 4, 2},
		{"more applied than eligible", 10, 2, 5, 8, 0},
		{"empty department", 0, 0, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Tally(tc.students, tc.elig, tc.applied)
			if c.NotEligible != tc.wantNotElig || c.NotApplied != tc.wantNotAppl {
				t.Fatalf("counts = %+v", c)
			}
		})
	}
}

func TestDepartment(t *testing.T) {
	cases := []struct {
		name      string
		actor     scope.Actor
		requested string
		want      string
		kind      apperr.Kind
	}{
		{"moderator ignores argument", scope.Moderator{UserID: "m", CollegeID: "c", Department: "CSE"}, "ECE", "CSE", ""},
		{"restricted admin forced", scope.TenantAdmin{UserID: "a", CollegeID: "c", Department: "ECE"}, "CSE", "ECE", ""},
		{"unrestricted admin names one", scope.TenantAdmin{UserID: "a", CollegeID: "c"}, " CSE ", "CSE", ""},
		{"unrestricted admin must name one", scope.TenantAdmin{UserID: "a", CollegeID: "c"}, "", "", apperr.KindValidation},
		{"super must name one", scope.SuperOperator{UserID: "s"}, "", "", apperr.KindValidation},
		{"student denied", scope.Student{UserID: "u", CollegeID: "c", Department: "CSE"}, "CSE", "", apperr.KindAuthorizationDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Department(tc.actor, tc.requested)
			if tc.kind != "" {
				if !apperr.IsKind(err, tc.kind) {
					t.Fatalf("err = %v, want %s", err, tc.kind)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("got %q, %v", got, err)
			}
		})
	}
}

func TestJobsWithStats(t *testing.T) {
	st := testutil.Store(t)
	svc := &Service{Store: st}
	ctx := context.Background()
	c := testutil.College(t, st)
	other := testutil.College(t, st)

	j := testutil.Job(t, st, c.ID, func(j *models.JobPosting) { j.MinCGPA = testutil.Float(7.5) })
	testutil.Job(t, st, other.ID, nil)

	strong, _ := testutil.Student(t, st, c.ID, "CSE", nil)
	testutil.Student(t, st, c.ID, "cse", nil)
	weak, _ := testutil.Student(t, st, c.ID, "CSE", func(p *models.StudentProfile) { p.CGPA = 6 })
	testutil.Student(t, st, c.ID, "CSE", func(p *models.StudentProfile) { p.Deleted = true })
	testutil.Student(t, st, c.ID, "ECE", nil)

	for _, p := range []*models.StudentProfile{strong, weak} {
		if err := st.CreateApplication(ctx, &models.Application{StudentID: p.ID, JobID: j.ID, CollegeID: c.ID}); err != nil {
			t.Fatal(err)
		}
	}

	_, mod := testutil.Account(t, st, scope.RoleModerator, c.ID, "CSE")
	got, err := svc.JobsWithStats(ctx, mod, "ECE")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Job.ID != j.ID || got[0].Department != "CSE" {
		t.Fatalf("jobs = %+v", got)
	}
	want := Counts{DepartmentStudents: 3, Eligible: 2, NotEligible: 1, Applied: 2, NotApplied: 0}
	if got[0].Stats != want {
		t.Fatalf("stats = %+v, want %+v", got[0].Stats, want)
	}

	single, err := svc.ForJob(ctx, mod, j.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if single.Stats != want {
		t.Fatalf("single = %+v", single.Stats)
	}

	_, foreign := testutil.Account(t, st, scope.RoleModerator, other.ID, "CSE")
	if _, err := svc.ForJob(ctx, foreign, j.ID, ""); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("foreign err = %v", err)
	}
}

func TestStatsRecomputeAfterProfileChange(t *testing.T) {
	st := testutil.Store(t)
	svc := &Service{Store: st}
	ctx := context.Background()
	c := testutil.College(t, st)
	j := testutil.Job(t, st, c.ID, func(j *models.JobPosting) { j.MinCGPA = testutil.Float(7.5) })
	p, _ := testutil.Student(t, st, c.ID, "CSE", func(p *models.StudentProfile) { p.CGPA = 7 })
	_, admin := testutil.Account(t, st, scope.RoleTenantAdmin, c.ID, "")

	before, err := svc.ForJob(ctx, admin, j.ID, "CSE")
	if err != nil {
		t.Fatal(err)
	}
	p.CGPA = 8
	if err := st.SaveStudent(ctx, p); err != nil {
		t.Fatal(err)
	}
	after, err := svc.ForJob(ctx, admin, j.ID, "CSE")
	if err != nil {
		t.Fatal(err)
	}
	if before.Stats.Eligible != 0 || after.Stats.Eligible != 1 || after.Stats.NotApplied != 1 {
		t.Fatalf("before = %+v after = %+v", before.Stats, after.Stats)
	}
}

func TestForJobClosesExpiredJob(t *testing.T) {
	st := testutil.Store(t)
	ctx := context.Background()
	c := testutil.College(t, st)
	j := testutil.Job(t, st, c.ID, nil)
	svc := &Service{Store: st, Now: func() time.Time { return j.Deadline.Add(time.Minute) }}

	_, mod := testutil.Account(t, st, scope.RoleModerator, c.ID, "CSE")
	got, err := svc.ForJob(ctx, mod, j.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Job.Status != models.JobClosed {
		t.Fatalf("status = %s, want closed", got.Job.Status)
	}
	stored, err := st.GetJob(ctx, j.ID)
	if err != nil || stored.Status != models.JobClosed {
		t.Fatalf("stored status = %v, err = %v", stored, err)
	}
}
