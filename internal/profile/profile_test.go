package profile

import (
	"context"
	"testing"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/notify"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/testutil"
)

func TestEvaluateCompleteness(t *testing.T) {
	p := &models.StudentProfile{FullName: "A", Phone: "1", Branch: "CS", CGPA: 7, TenthPercent: 80, TwelfthPercent: 80, GraduationYear: 2026}
	if c := Evaluate(p); !c.Complete || len(c.Missing) != 0 {
		t.Fatalf("complete profile: %+v", c)
	}
	p.Phone = " "
	p.CGPA = 0
	c := Evaluate(p)
	if c.Complete {
		t.Fatal("expected incomplete")
	}
	if len(c.Missing) != 2 || c.Missing[0] != "phone" || c.Missing[1] != "cgpa" {
		t.Fatalf("missing = %v", c.Missing)
	}
}

func newService(t *testing.T) (*Service, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	return &Service{Store: testutil.Store(t), Notifier: rec}, rec
}

func TestUpdateOwnRejectsLockedSection(t *testing.T) {
	svc, _ := newService(t)
	c := testutil.College(t, svc.Store)
	_, actor := testutil.Student(t, svc.Store, c.ID, "CSE", func(p *models.StudentProfile) {
		p.AcademicLocked = true
	})

	_, err := svc.UpdateOwn(context.Background(), actor, Update{CGPA: testutil.Float(9.5)})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("err = %v", err)
	}

	// personal section is still open
	p, err := svc.UpdateOwn(context.Background(), actor, Update{Phone: testutil.String("123")})
	if err != nil {
		t.Fatalf("personal edit: %v", err)
	}
	if p.Phone != "123" || p.CGPA != 8.0 {
		t.Fatalf("phone=%q cgpa=%v", p.Phone, p.CGPA)
	}
}

func TestUpdateOwnRequeuesVerifiedProfile(t *testing.T) {
	svc, rec := newService(t)
	c := testutil.College(t, svc.Store)
	_, actor := testutil.Student(t, svc.Store, c.ID, "CSE", func(p *models.StudentProfile) {
		p.VerificationStatus = models.VerificationVerified
	})

	p, err := svc.UpdateOwn(context.Background(), actor, Update{CGPA: testutil.Float(8.4), Phone: testutil.String("42")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.VerificationStatus != models.VerificationPending {
		t.Fatalf("status = %s", p.VerificationStatus)
	}
	triggers := p.Triggers()
	if len(triggers) != 1 || triggers[0].Field != "cgpa" {
		t.Fatalf("triggers = %+v", triggers)
	}
	if got := rec.Types(); len(got) != 1 || got[0] != notify.EventProfileRequeued {
		t.Fatalf("events = %v", got)
	}
}

func TestRequeueClearsAccountApproval(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c := testutil.College(t, svc.Store)
	p, actor := testutil.Student(t, svc.Store, c.ID, "CSE", func(p *models.StudentProfile) {
		p.VerificationStatus = models.VerificationVerified
	})
	if err := svc.Store.SetAccountApproval(ctx, p.UserID, true, true); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateOwn(ctx, actor, Update{Address: testutil.String("Main St")}); err != nil {
		t.Fatalf("non-sensitive edit: %v", err)
	}
	u, err := svc.Store.GetUser(ctx, p.UserID)
	if err != nil || !u.Approved {
		t.Fatalf("approved after address edit = %v, err = %v", u.Approved, err)
	}

	if _, err := svc.UpdateOwn(ctx, actor, Update{CGPA: testutil.Float(9.9)}); err != nil {
		t.Fatalf("sensitive edit: %v", err)
	}
	u, err = svc.Store.GetUser(ctx, p.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if u.Approved || !u.Active {
		t.Fatalf("approved=%v active=%v, want false/true while pending", u.Approved, u.Active)
	}
}

func TestUpdateOwnNonSensitiveEditKeepsVerified(t *testing.T) {
	svc, _ := newService(t)
	c := testutil.College(t, svc.Store)
	_, actor := testutil.Student(t, svc.Store, c.ID, "CSE", func(p *models.StudentProfile) {
		p.VerificationStatus = models.VerificationVerified
	})
	p, err := svc.UpdateOwn(context.Background(), actor, Update{Address: testutil.String("Main St")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.VerificationStatus != models.VerificationVerified || len(p.Triggers()) != 0 {
		t.Fatalf("status=%s triggers=%v", p.VerificationStatus, p.Triggers())
	}
}

func TestUpdateOwnWhileRejected(t *testing.T) {
	tests := []struct {
		name    string
		requeue bool
		want    string
	}{
		{"kept rejected by default", false, models.VerificationRejected},
		{"requeued when enabled", true, models.VerificationPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			svc.RequeueRejectedOnEdit = tt.requeue
			c := testutil.College(t, svc.Store)
			_, actor := testutil.Student(t, svc.Store, c.ID, "CSE", func(p *models.StudentProfile) {
				p.VerificationStatus = models.VerificationRejected
				p.RejectionReason = "missing 10th marksheet"
			})
			p, err := svc.UpdateOwn(context.Background(), actor, Update{TenthPercent: testutil.Float(91)})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if p.VerificationStatus != tt.want {
				t.Fatalf("status = %s", p.VerificationStatus)
			}
			if len(p.Triggers()) != 1 {
				t.Fatalf("triggers = %v", p.Triggers())
			}
		})
	}
}

func TestUpdateOwnValidationAndVersion(t *testing.T) {
	svc, _ := newService(t)
	c := testutil.College(t, svc.Store)
	_, actor := testutil.Student(t, svc.Store, c.ID, "CSE", nil)

	_, err := svc.UpdateOwn(context.Background(), actor, Update{CGPA: testutil.Float(11)})
	var appErr *apperr.Error
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v", err)
	}
	appErr = err.(*apperr.Error)
	if _, ok := appErr.Fields["cgpa"]; !ok {
		t.Fatalf("fields = %v", appErr.Fields)
	}

	stale := int64(7)
	_, err = svc.UpdateOwn(context.Background(), actor, Update{Phone: testutil.String("1"), ExpectedVersion: &stale})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("stale version err = %v", err)
	}
}

func TestModeratorUpdateIgnoresLocksButRespectsScope(t *testing.T) {
	svc, _ := newService(t)
	c := testutil.College(t, svc.Store)
	p, _ := testutil.Student(t, svc.Store, c.ID, "CSE", func(p *models.StudentProfile) {
		p.AcademicLocked = true
		p.VerificationStatus = models.VerificationVerified
	})
	_, mod := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "cse")
	_, otherMod := testutil.Account(t, svc.Store, scope.RoleModerator, c.ID, "ECE")

	got, err := svc.ModeratorUpdate(context.Background(), mod, p.ID, Update{CGPA: testutil.Float(7.7)})
	if err != nil {
		t.Fatalf("moderator update: %v", err)
	}
	if got.CGPA != 7.7 || got.VerificationStatus != models.VerificationVerified {
		t.Fatalf("cgpa=%v status=%s", got.CGPA, got.VerificationStatus)
	}

	_, err = svc.ModeratorUpdate(context.Background(), otherMod, p.ID, Update{CGPA: testutil.Float(5)})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("cross-department err = %v", err)
	}
}
