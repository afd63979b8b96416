package verification

import (
	"context"
	"sync"
	"testing"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/notify"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/testutil"
)

func newService(t *testing.T) (*Service, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	return &Service{Store: testutil.Store(t), Notifier: rec}, rec
}

func TestRejectScenario(t *testing.T) {
	svc, rec := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	p, _ := testutil.Student(t, svc.Store, c.ID, "CSE", func(p *models.StudentProfile) {
		p.PersonalLocked = true
		p.AcademicLocked = true
	})
	_, mod := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "CSE")

	rec1, err := svc.Reject(ctx, mod, p.ID, "missing 10th marksheet", nil)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rec1.Status != models.VerificationRejected || rec1.PersonalLocked || rec1.AcademicLocked {
		t.Fatalf("record = %+v", rec1)
	}
	if rec1.RejectionReason != "missing 10th marksheet" {
		t.Fatalf("reason = %q", rec1.RejectionReason)
	}

	account, err := svc.Store.GetUser(ctx, p.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if account.Approved || !account.Active {
		t.Fatalf("account approved=%v active=%v", account.Approved, account.Active)
	}
	if got := rec.Types(); len(got) != 1 || got[0] != notify.EventProfileRejected {
		t.Fatalf("events = %v", got)
	}
}

func TestApproveTwiceIsConflictWithoutSideEffects(t *testing.T) {
	svc, rec := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	p, _ := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	_, mod := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "cse")

	first, err := svc.Approve(ctx, mod, p.ID, "ok", nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if first.Status != models.VerificationVerified || !first.PersonalLocked || !first.AcademicLocked {
		t.Fatalf("record = %+v", first)
	}

	_, err = svc.Approve(ctx, mod, p.ID, "again", nil)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("second approve err = %v", err)
	}
	after, _ := svc.Store.GetStudent(ctx, p.ID)
	if after.Version != first.Version || after.ReviewNotes != "ok" {
		t.Fatalf("version=%d notes=%q", after.Version, after.ReviewNotes)
	}
	if len(rec.Events()) != 1 {
		t.Fatalf("events = %v", rec.Types())
	}
	account, _ := svc.Store.GetUser(ctx, p.UserID)
	if !account.Approved || !account.Active {
		t.Fatalf("account approved=%v active=%v", account.Approved, account.Active)
	}
}

func TestApproveActivatesPendingAccount(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	p, _ := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	if err := svc.Store.DB().Model(&models.User{}).Where("id = ?", p.UserID).Update("active", false).Error; err != nil {
		t.Fatal(err)
	}
	_, admin := testutil.Account(t, svc.Store, scope.RoleTenantAdmin, c.ID, "")

	if _, err := svc.Approve(ctx, admin, p.ID, "", nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	account, _ := svc.Store.GetUser(ctx, p.UserID)
	if !account.Active || !account.Approved {
		t.Fatalf("account approved=%v active=%v", account.Approved, account.Active)
	}
}

func TestStaleExpectedVersionFailsLoudly(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	p, _ := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	_, mod := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "CSE")

	seen := p.Version
	if _, err := svc.LockSection(ctx, mod, p.ID, "personal", &seen); err != nil {
		t.Fatalf("lock: %v", err)
	}
	// the reviewer still holds the old version
	if _, err := svc.Reject(ctx, mod, p.ID, "wrong photo", &seen); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("stale reject err = %v", err)
	}
	got, _ := svc.Store.GetStudent(ctx, p.ID)
	if got.VerificationStatus != models.VerificationPending || !got.PersonalLocked {
		t.Fatalf("status=%s personal=%v", got.VerificationStatus, got.PersonalLocked)
	}
}

func TestConcurrentReviewsOneWins(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	p, _ := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	_, m1 := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "CSE")
	_, m2 := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "CSE")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, m := range []scope.Actor{m1, m2} {
		wg.Add(1)
		go func(i int, m scope.Actor) {
			defer wg.Done()
			_, errs[i] = svc.Approve(ctx, m, p.ID, "", nil)
		}(i, m)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !apperr.IsKind(err, apperr.KindConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d", wins)
	}
	got, _ := svc.Store.GetStudent(ctx, p.ID)
	if got.Version != 2 {
		t.Fatalf("version = %d", got.Version)
	}
}

func TestTenantIsolation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	other := testutil.College(t, svc.Store)
	_, mod := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "CSE")
	sameCollegeOtherDept, _ := testutil.Student(t, svc.Store, c.ID, "ECE", nil)
	otherCollege, _ := testutil.Student(t, svc.Store, other.ID, "CSE", nil)

	for _, p := range []*models.StudentProfile{sameCollegeOtherDept, otherCollege} {
		ops := map[string]func() error{
			"details": func() error { _, err := svc.Details(ctx, mod, p.ID); return err },
			"approve": func() error { _, err := svc.Approve(ctx, mod, p.ID, "", nil); return err },
			"reject":  func() error { _, err := svc.Reject(ctx, mod, p.ID, "x", nil); return err },
			"lock":    func() error { _, err := svc.LockSection(ctx, mod, p.ID, "personal", nil); return err },
			"unlock":  func() error { _, err := svc.UnlockSection(ctx, mod, p.ID, "personal", nil); return err },
		}
		for name, op := range ops {
			err := op()
			if !apperr.IsKind(err, apperr.KindNotFound) && !apperr.IsKind(err, apperr.KindAuthorizationDenied) {
				t.Fatalf("%s on %s/%s: err = %v", name, p.CollegeID, p.Department, err)
			}
		}
		got, _ := svc.Store.GetStudent(ctx, p.ID)
		if got.Version != 1 {
			t.Fatalf("student %s was modified", p.ID)
		}
	}

	queue, err := svc.Queue(ctx, mod)
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 0 {
		t.Fatalf("queue leaked %d students", len(queue))
	}
}

func TestQueueListsPendingInDepartment(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	pending, _ := testutil.Student(t, svc.Store, c.ID, "CSE", nil)
	testutil.Student(t, svc.Store, c.ID, "CSE", func(p *models.StudentProfile) {
		p.VerificationStatus = models.VerificationVerified
	})
	testutil.Student(t, svc.Store, c.ID, "CSE", func(p *models.StudentProfile) {
		p.Deleted = true
	})
	_, mod := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "cse")

	queue, err := svc.Queue(ctx, mod)
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 1 || queue[0].ID != pending.ID || !queue[0].Complete {
		t.Fatalf("queue = %+v", queue)
	}

	_, student := testutil.Account(t, svc.Store, scope.RoleStudent, c.ID, "CSE")
	if _, err := svc.Queue(ctx, student); !apperr.IsKind(err, apperr.KindAuthorizationDenied) {
		t.Fatalf("student queue err = %v", err)
	}
}
