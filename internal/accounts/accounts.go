// Package accounts provisions tenants and actor accounts and authenticates
// logins.
package accounts

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/notify"
	"github.com/zaqqye/placement_backend/internal/profile"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/store"
	"github.com/zaqqye/placement_backend/internal/utils"
)

type Service struct {
	Store     *store.Store
	Notifier  notify.Notifier
	Log       log.FieldLogger
	JWTSecret string
	TokenTTL  time.Duration
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logger() log.FieldLogger {
	if s.Log == nil {
		return log.StandardLogger()
	}
	return s.Log
}

func requireSuper(actor scope.Actor) error {
	if _, ok := actor.(scope.SuperOperator); !ok {
		return apperr.Denied("only the super operator can manage colleges")
	}
	return nil
}

// CollegeInput creates a tenant together with its first administrator.
type CollegeInput struct {
	Name            string `json:"name"`
	Code            string `json:"code"`
	AdminEmail      string `json:"admin_email"`
	AdminPassword   string `json:"admin_password"`
	AdminFullName   string `json:"admin_full_name"`
	AdminDepartment string `json:"admin_department"`
}

func (s *Service) CreateCollege(ctx context.Context, actor scope.Actor, in CollegeInput) (*models.College, *models.User, error) {
	if err := requireSuper(actor); err != nil {
		return nil, nil, err
	}
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "must not be empty"
	}
	if strings.TrimSpace(in.AdminEmail) == "" {
		fields["admin_email"] = "must not be empty"
	}
	hashed, err := utils.HashPassword(in.AdminPassword)
	if err != nil {
		fields["admin_password"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, nil, apperr.Invalid("invalid college", fields)
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		if code, err = utils.CollegeCode(in.Name); err != nil {
			return nil, nil, apperr.Internal("failed to generate college code", err)
		}
	}

	college := &models.College{Name: strings.TrimSpace(in.Name), Code: code}
	var admin *models.User
	err = s.Store.Tx(ctx, func(tx *store.Store) error {
		if err := tx.CreateCollege(ctx, college); err != nil {
			return err
		}
		admin = &models.User{
			CollegeID:  &college.ID,
			Role:       scope.RoleTenantAdmin,
			Department: strings.TrimSpace(in.AdminDepartment),
			FullName:   strings.TrimSpace(in.AdminFullName),
			Email:      in.AdminEmail,
			Password:   hashed,
			Active:     true,
			Approved:   true,
		}
		return tx.CreateUser(ctx, admin)
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger().WithFields(log.Fields{"college_id": college.ID, "code": college.Code, "actor_id": actor.ID()}).Info("college created")
	return college, admin, nil
}

func (s *Service) ListColleges(ctx context.Context, actor scope.Actor) ([]models.College, error) {
	if err := requireSuper(actor); err != nil {
		return nil, err
	}
	return s.Store.ListColleges(ctx)
}

// SetCollegeStatus activates or deactivates a tenant. Inactive tenants
// lock out every account except the super operator.
func (s *Service) SetCollegeStatus(ctx context.Context, actor scope.Actor, id, status string) error {
	if err := requireSuper(actor); err != nil {
		return err
	}
	if status != models.CollegeActive && status != models.CollegeInactive {
		return apperr.Invalid("invalid status", map[string]string{"status": "must be active or inactive"})
	}
	return s.Store.SetCollegeStatus(ctx, id, status)
}

// DeleteCollege is the explicit cascading teardown of a tenant.
func (s *Service) DeleteCollege(ctx context.Context, actor scope.Actor, id string) error {
	if err := requireSuper(actor); err != nil {
		return err
	}
	if err := s.Store.DeleteCollegeCascade(ctx, id); err != nil {
		return err
	}
	s.logger().WithFields(log.Fields{"college_id": id, "actor_id": actor.ID()}).Warn("college deleted")
	return nil
}

// UserInput creates a staff or student account. CollegeID is only read
// from the super operator; everyone else creates inside their own college.
type UserInput struct {
	CollegeID  string `json:"college_id"`
	Role       string `json:"role"`
	Department string `json:"department"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Active     *bool  `json:"active"`
}

func createAction(role string) (scope.Action, bool) {
	switch role {
	case scope.RoleModerator:
		return scope.ActionCreateModerator, true
	case scope.RoleStudent:
		return scope.ActionCreateStudent, true
	}
	return "", false
}

// CreateUser provisions an account. Creating a student also creates its
// empty PENDING profile in the same transaction.
func (s *Service) CreateUser(ctx context.Context, actor scope.Actor, in UserInput) (*models.User, error) {
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = scope.RoleStudent
	}
	dept := strings.TrimSpace(in.Department)
	collegeID := scope.CollegeOf(actor)
	if _, ok := actor.(scope.SuperOperator); ok {
		collegeID = strings.TrimSpace(in.CollegeID)
	}

	fields := map[string]string{}
	if !scope.IsValidRole(role) || role == scope.RoleSuperOperator {
		fields["role"] = "must be tenant_admin, moderator or student"
	}
	if collegeID == "" {
		fields["college_id"] = "must not be empty"
	}
	if (role == scope.RoleModerator || role == scope.RoleStudent) && dept == "" {
		fields["department"] = "is required for moderators and students"
	}
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		fields["email"] = "must be a valid email address"
	}
	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid("invalid account", fields)
	}

	if role == scope.RoleTenantAdmin {
		if err := requireSuper(actor); err != nil {
			return nil, apperr.Denied("only the super operator can create tenant admins")
		}
	} else {
		action, _ := createAction(role)
		res := scope.Resource{Kind: scope.KindAccount, CollegeID: collegeID, Department: dept}
		if d := scope.Check(actor, action, res); !d.Allowed {
			return nil, apperr.Denied(d.Reason)
		}
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	u := &models.User{
		CollegeID:  &collegeID,
		Role:       role,
		Department: dept,
		FullName:   strings.TrimSpace(in.FullName),
		Email:      in.Email,
		Password:   hashed,
		Active:     active,
		Approved:   role != scope.RoleStudent,
	}
	err = s.Store.Tx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetCollege(ctx, collegeID); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		if role != scope.RoleStudent {
			return nil
		}
		return tx.CreateStudent(ctx, &models.StudentProfile{
			UserID:     u.ID,
			CollegeID:  collegeID,
			Department: dept,
			FullName:   u.FullName,
			Branch:     dept,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger().WithFields(log.Fields{"user_id": u.ID, "role": role, "college_id": collegeID, "actor_id": actor.ID()}).Info("account created")
	return u, nil
}

// ListUsers lists accounts the actor administers, optionally by role.
func (s *Service) ListUsers(ctx context.Context, actor scope.Actor, role string) ([]models.User, error) {
	if !scope.IsStaff(actor) {
		return nil, apperr.Denied("only staff can list accounts")
	}
	f := scope.FilterFor(actor)
	users, err := s.Store.ListUsers(ctx, store.UserFilter{CollegeID: f.CollegeID, Department: f.Department, Role: role})
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Role == scope.RoleSuperOperator {
			continue
		}
		res := scope.Resource{Kind: scope.KindAccount, CollegeID: u.College(), Department: u.Department}
		if scope.Check(actor, scope.ActionRead, res).Allowed {
			out = append(out, u)
		}
	}
	return out, nil
}

var errBadCredentials = apperr.Unauthenticated("invalid credentials")

// Authenticate checks credentials. Unknown emails, wrong passwords and
// inactive accounts all read as the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.Store.FindUserByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	if !u.Active || !utils.CheckPassword(u.Password, password) {
		return nil, errBadCredentials
	}
	if u.Role != scope.RoleSuperOperator {
		c, err := s.Store.GetCollege(ctx, u.College())
		if err != nil || c.Status != models.CollegeActive {
			return nil, apperr.Denied("college is inactive")
		}
	}
	return u, nil
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	token, expires, err := utils.IssueToken(s.JWTSecret, s.TokenTTL, u.ID, u.Role, u.Email, s.now())
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}
	s.logger().WithFields(log.Fields{"user_id": u.ID, "role": u.Role}).Info("login")
	return &Session{AccessToken: token, TokenType: "Bearer", ExpiresAt: expires, User: u}, nil
}

// SetBlocked toggles whether a student may submit applications.
func (s *Service) SetBlocked(ctx context.Context, actor scope.Actor, studentID string, blocked bool) (*models.StudentProfile, error) {
	return s.moderate(ctx, actor, studentID, func(p *models.StudentProfile) error {
		if p.Blocked == blocked {
			if blocked {
				return apperr.Conflict("student is already blocked")
			}
			return apperr.Conflict("student is not blocked")
		}
		p.Blocked = blocked
		return nil
	}, notify.EventStudentBlocked)
}

// RemoveStudent soft-deletes a student profile; the row and its
// applications are kept.
func (s *Service) RemoveStudent(ctx context.Context, actor scope.Actor, studentID string) error {
	_, err := s.moderate(ctx, actor, studentID, func(p *models.StudentProfile) error {
		p.Deleted = true
		return nil
	}, "")
	return err
}

func (s *Service) moderate(ctx context.Context, actor scope.Actor, studentID string, mutate func(*models.StudentProfile) error, event string) (*models.StudentProfile, error) {
	if !scope.IsStaff(actor) {
		return nil, apperr.Denied("only staff can moderate students")
	}
	var out *models.StudentProfile
	err := s.Store.Tx(ctx, func(tx *store.Store) error {
		p, err := tx.LockStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if p.Deleted || !scope.Check(actor, scope.ActionWrite, profile.Resource(p)).Allowed {
			return apperr.NotFound("student not found")
		}
		if err := mutate(p); err != nil {
			return err
		}
		if err := tx.SaveStudent(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger().WithFields(log.Fields{"student_id": out.ID, "blocked": out.Blocked, "deleted": out.Deleted, "actor_id": actor.ID()}).Info("student moderated")
	if event != "" && s.Notifier != nil {
		s.Notifier.Notify(notify.Event{
			Type:       event,
			CollegeID:  out.CollegeID,
			Department: out.Department,
			StudentID:  out.ID,
			UserID:     out.UserID,
			Message:    blockedMessage(out.Blocked),
			At:         s.now(),
		})
	}
	return out, nil
}

func blockedMessage(blocked bool) string {
	if blocked {
		return "you have been blocked from applying to jobs"
	}
	return "you may apply to jobs again"
}
