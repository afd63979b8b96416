package placement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/jobs"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/notify"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/store"
	"github.com/zaqqye/placement_backend/internal/testutil"
)

func newService(t *testing.T) (*Service, *notify.Recorder) {
	t.Helper()
	st := testutil.Store(t)
	rec := &notify.Recorder{}
	return &Service{Store: st, Jobs: &jobs.Service{Store: st}, Notifier: rec}, rec
}

func TestApplyCreatesSubmittedApplication(t *testing.T) {
	svc, rec := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	p, student := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	j := testutil.Job(t, svc.Store, c.ID, nil)

	d, err := svc.CanApply(ctx, student, j.ID)
	if err != nil || !d.Allowed {
		t.Fatalf("can apply = %+v, %v", d, err)
	}
	app, err := svc.Apply(ctx, student, j.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if app.Status != models.AppSubmitted || app.StudentID != p.ID || app.CollegeID != c.ID {
		t.Fatalf("application = %+v", app)
	}
	if got := rec.Types(); len(got) != 1 || got[0] != notify.EventApplicationSubmitted {
		t.Fatalf("events = %v", got)
	}

	d, err = svc.CanApply(ctx, student, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Check != CheckDuplicate {
		t.Fatalf("second can apply = %+v", d)
	}
}

func TestApplyWhenPlacedIsDenied(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	_, student := testutil.Student(t, svc.Store, c.ID, "CSE", func(p *models.StudentProfile) {
		p.IsPlaced = true
	})
	j := testutil.Job(t, svc.Store, c.ID, nil)

	d, err := svc.CanApply(ctx, student, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Check != CheckPlaced || d.Reasons[0] != ReasonPlaced {
		t.Fatalf("decision = %+v", d)
	}
	if _, err := svc.Apply(ctx, student, j.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("apply err = %v", err)
	}
	apps, _ := svc.Store.ListApplications(ctx, store.ApplicationFilter{JobID: j.ID})
	if len(apps) != 0 {
		t.Fatalf("applications = %d", len(apps))
	}
}

func TestConcurrentApplyCreatesOneApplication(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	_, student := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	j := testutil.Job(t, svc.Store, c.ID, nil)

	const n = 6
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Apply(ctx, student, j.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.IsKind(err, apperr.KindConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful applies = %d", ok)
	}
	apps, _ := svc.Store.ListApplications(ctx, store.ApplicationFilter{JobID: j.ID})
	if len(apps) != 1 {
		t.Fatalf("applications = %d", len(apps))
	}
}

func TestIneligibleReasonsArePassedThrough(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	_, student := testutil.Student(t, svc.Store, c.ID, "Mechanical", func(p *models.StudentProfile) {
		p.CGPA = 6.5
	})
	j := testutil.Job(t, svc.Store, c.ID, func(j *models.JobPosting) {
		j.MinCGPA = testutil.Float(7.0)
		j.AllowedBranches = models.EncodeJSON([]string{"CSE"})
	})

	d, err := svc.CanApply(ctx, student, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Check != CheckEligibility || len(d.Reasons) != 2 {
		t.Fatalf("decision = %+v", d)
	}

	_, err = svc.Apply(ctx, student, j.ID)
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindIneligible {
		t.Fatalf("apply err = %v", err)
	}
	if len(ae.Reasons) != 2 || ae.Reasons[0] != d.Reasons[0] {
		t.Fatalf("reasons = %v", ae.Reasons)
	}
}

func TestGateOrder(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	other := testutil.College(t, svc.Store)

	cases := []struct {
		name    string
		student func(*models.StudentProfile)
		job     func(*models.JobPosting)
		college string
		check   string
		kind    apperr.Kind
	}{
		{name: "other college", college: other.ID, check: CheckScope, kind: apperr.KindNotFound},
		{name: "unpublished", job: func(j *models.JobPosting) { j.Published = false }, check: CheckScope, kind: apperr.KindNotFound},
		{name: "closed", job: func(j *models.JobPosting) { j.Status = models.JobClosed }, check: CheckJobOpen, kind: apperr.KindConflict},
		{name: "blocked", student: func(p *models.StudentProfile) { p.Blocked = true }, check: CheckBlocked, kind: apperr.KindAuthorizationDenied},
		{name: "incomplete", student: func(p *models.StudentProfile) { p.Phone = "" }, check: CheckProfileComplete, kind: apperr.KindValidation},
		{
			name:    "placed before ineligible",
			student: func(p *models.StudentProfile) { p.IsPlaced = true; p.CGPA = 5 },
			job:     func(j *models.JobPosting) { j.MinCGPA = testutil.Float(9) },
			check:   CheckPlaced,
			kind:    apperr.KindConflict,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, student := testutil.Student(t, svc.Store, c.ID, "CSE", tc.student)
			college := c.ID
			if tc.college != "" {
				college = tc.college
			}
			j := testutil.Job(t, svc.Store, college, tc.job)
			d, err := svc.CanApply(ctx, student, j.ID)
			if err != nil {
				t.Fatal(err)
			}
			if d.Allowed || d.Check != tc.check {
				t.Fatalf("decision = %+v", d)
			}
			if _, err := svc.Apply(ctx, student, j.ID); !apperr.IsKind(err, tc.kind) {
				t.Fatalf("apply err = %v, want %s", err, tc.kind)
			}
		})
	}
}

func TestApplyAfterDeadlineClosesJob(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	_, student := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	j := testutil.Job(t, svc.Store, c.ID, nil)
	svc.Now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	svc.Jobs.Now = svc.Now

	if _, err := svc.Apply(ctx, student, j.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("apply err = %v", err)
	}
	stored, _ := svc.Store.GetJob(ctx, j.ID)
	if stored.Status != models.JobClosed {
		t.Fatalf("status = %s", stored.Status)
	}
}

func TestNonStudentCannotApply(t *testing.T) {
	svc, _ := newService(t)
	c := testutil.College(t, svc.Store)
	_, admin := testutil.Account(t, svc.Store, scope.RoleTenantAdmin, c.ID, "")
	j := testutil.Job(t, svc.Store, c.ID, nil)
	if _, err := svc.Apply(context.Background(), admin, j.ID); !apperr.IsKind(err, apperr.KindAuthorizationDenied) {
		t.Fatalf("err = %v", err)
	}
}

func offered(t *testing.T, svc *Service, student scope.Actor, collegeID string) *models.Application {
	t.Helper()
	ctx := context.Background()
	j := testutil.Job(t, svc.Store, collegeID, nil)
	app, err := svc.Apply(ctx, student, j.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := svc.Store.TransitionApplication(ctx, app, models.AppOffered, 0); err != nil {
		t.Fatalf("offer: %v", err)
	}
	return app
}

func TestAcceptOnlyOneOffer(t *testing.T) {
	svc, rec := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	p, student := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	first := offered(t, svc, student, c.ID)
	second := offered(t, svc, student, c.ID)

	accepted, err := svc.AcceptOffer(ctx, student, first.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != models.AppAccepted {
		t.Fatalf("status = %s", accepted.Status)
	}
	if _, err := svc.AcceptOffer(ctx, student, second.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("second accept err = %v", err)
	}

	after, _ := svc.Store.GetStudent(ctx, p.ID)
	if !after.IsPlaced || after.PlacedApplicationID == nil || *after.PlacedApplicationID != first.ID {
		t.Fatalf("student = %+v", after)
	}
	untouched, _ := svc.Store.GetApplication(ctx, second.ID)
	if untouched.Status != models.AppOffered {
		t.Fatalf("second status = %s", untouched.Status)
	}
	if got := rec.Types(); got[len(got)-1] != notify.EventOfferAccepted {
		t.Fatalf("events = %v", got)
	}
}

func TestConcurrentAcceptPlacesOnce(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	_, student := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	apps := []*models.Application{
		offered(t, svc, student, c.ID),
		offered(t, svc, student, c.ID),
		offered(t, svc, student, c.ID),
	}

	errs := make([]error, len(apps))
	var wg sync.WaitGroup
	for i, a := range apps {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.AcceptOffer(ctx, student, id)
		}(i, a.ID)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !apperr.IsKind(err, apperr.KindConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("accepted = %d", ok)
	}
}

func TestAcceptRequiresOfferAndOwnership(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	_, student := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	_, other := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	j := testutil.Job(t, svc.Store, c.ID, nil)
	app, err := svc.Apply(ctx, student, j.ID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AcceptOffer(ctx, student, app.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("accept submitted err = %v", err)
	}
	if _, err := svc.AcceptOffer(ctx, other, app.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("accept foreign err = %v", err)
	}
}

func TestDeclineOffer(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	p, student := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	app := offered(t, svc, student, c.ID)

	got, err := svc.DeclineOffer(ctx, student, app.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if got.Status != models.AppDeclined {
		t.Fatalf("status = %s", got.Status)
	}
	after, _ := svc.Store.GetStudent(ctx, p.ID)
	if after.IsPlaced {
		t.Fatal("decline must not place the student")
	}
}

func TestAdvance(t *testing.T) {
	svc, rec := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	_, student := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	_, mod := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "CSE")
	_, foreign := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "ECE")
	j := testutil.Job(t, svc.Store, c.ID, nil)
	app, err := svc.Apply(ctx, student, j.ID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Advance(ctx, foreign, app.ID, models.AppShortlisted); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("foreign department err = %v", err)
	}
	if _, err := svc.Advance(ctx, mod, app.ID, models.AppAccepted); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("accepted target err = %v", err)
	}
	if _, err := svc.Advance(ctx, mod, app.ID, models.AppOffered); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("skip shortlist err = %v", err)
	}
	if _, err := svc.Advance(ctx, student, app.ID, models.AppShortlisted); !apperr.IsKind(err, apperr.KindAuthorizationDenied) {
		t.Fatalf("student advance err = %v", err)
	}

	for _, next := range []string{models.AppShortlisted, models.AppInterview, models.AppInterview} {
		if app, err = svc.Advance(ctx, mod, app.ID, next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	if app.InterviewRound != 2 {
		t.Fatalf("round = %d", app.InterviewRound)
	}
	if app, err = svc.Advance(ctx, mod, app.ID, models.AppOffered); err != nil {
		t.Fatal(err)
	}
	if n := len(rec.Types()); n != 5 {
		t.Fatalf("events = %v", rec.Types())
	}
}

func TestAdvanceFrozenAfterPlacement(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	_, student := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	_, admin := testutil.Account(t, svc.Store, scope.RoleTenantAdmin, c.ID, "")
	pending, err := svc.Apply(ctx, student, testutil.Job(t, svc.Store, c.ID, nil).ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AcceptOffer(ctx, student, offered(t, svc, student, c.ID).ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Advance(ctx, admin, pending.ID, models.AppShortlisted); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestListViews(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	_, cse := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	_, ece := testutil.Student(t, svc.Store, c.ID, "ECE", nil)
	_, mod := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "cse")
	j := testutil.Job(t, svc.Store, c.ID, nil)
	for _, s := range []scope.Actor{cse, ece} {
		if _, err := svc.Apply(ctx, s, j.ID); err != nil {
			t.Fatal(err)
		}
	}

	mine, err := svc.ListMine(ctx, cse)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].JobTitle != j.Title {
		t.Fatalf("mine = %+v", mine)
	}
	forJob, err := svc.ListForJob(ctx, mod, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(forJob) != 1 || forJob[0].Department != "CSE" {
		t.Fatalf("for job = %+v", forJob)
	}
}
