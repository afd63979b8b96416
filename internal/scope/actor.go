// Package scope decides whether an actor may act on a resource inside the
// (college, department) boundary.
//
// Actors are immutable values built once per request from the authenticated
// account and passed explicitly into every service call. Check is pure and
// must be reapplied on every list, read and write path; callers translate a
// deny into NotFound or AuthorizationDenied at their own boundary.
package scope

import (
	"fmt"
	"strings"
)

// Role names as persisted on the user account.
const (
	RoleSuperOperator = "super_operator"
	RoleTenantAdmin   = "tenant_admin"
	RoleModerator     = "moderator"
	RoleStudent       = "student"
)

// IsValidRole reports whether role is one of the four known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleSuperOperator, RoleTenantAdmin, RoleModerator, RoleStudent:
		return true
	}
	return false
}

// Actor is a closed set: SuperOperator, TenantAdmin, Moderator, Student.
type Actor interface {
	ID() string
	Role() string
	actor()
}

// SuperOperator manages every college.
type SuperOperator struct {
	UserID string
}

// TenantAdmin administers one college. A non-empty Department restricts the
// moderators they may create and the department-scoped data they may touch.
type TenantAdmin struct {
	UserID     string
	CollegeID  string
	Department string
}

// Moderator reviews students of one department of one college.
type Moderator struct {
	UserID     string
	CollegeID  string
	Department string
}

// Student acts on their own profile and applications.
type Student struct {
	UserID     string
	CollegeID  string
	Department string
}

func (a SuperOperator) ID() string { return a.UserID }
func (a TenantAdmin) ID() string   { return a.UserID }
func (a Moderator) ID() string     { return a.UserID }
func (a Student) ID() string       { return a.UserID }

func (SuperOperator) Role() string { return RoleSuperOperator }
func (TenantAdmin) Role() string   { return RoleTenantAdmin }
func (Moderator) Role() string     { return RoleModerator }
func (Student) Role() string       { return RoleStudent }

func (SuperOperator) actor() {}
func (TenantAdmin) actor()   {}
func (Moderator) actor()     {}
func (Student) actor()       {}

// Account is the subset of a user record needed to build an Actor.
type Account struct {
	UserID     string
	Role       string
	CollegeID  string
	Department string
}

// FromAccount builds the actor for an authenticated account. A missing
// college or department is a configuration fault and never defaulted.
func FromAccount(acc Account) (Actor, error) {
	id := strings.TrimSpace(acc.UserID)
	if id == "" {
		return nil, fmt.Errorf("account has no id")
	}
	college := strings.TrimSpace(acc.CollegeID)
	dept := strings.TrimSpace(acc.Department)
	switch acc.Role {
	case RoleSuperOperator:
		return SuperOperator{UserID: id}, nil
	case RoleTenantAdmin:
		if college == "" {
			return nil, fmt.Errorf("tenant admin %s has no college", id)
		}
		return TenantAdmin{UserID: id, CollegeID: college, Department: dept}, nil
	case RoleModerator:
		if college == "" || dept == "" {
			return nil, fmt.Errorf("moderator %s is missing college or department", id)
		}
		return Moderator{UserID: id, CollegeID: college, Department: dept}, nil
	case RoleStudent:
		if college == "" || dept == "" {
			return nil, fmt.Errorf("student %s is missing college or department", id)
		}
		return Student{UserID: id, CollegeID: college, Department: dept}, nil
	default:
		return nil, fmt.Errorf("unknown role %q", acc.Role)
	}
}

// CollegeOf returns the actor's college, empty for the super-operator.
func CollegeOf(a Actor) string {
	switch v := a.(type) {
	case TenantAdmin:
		return v.CollegeID
	case Moderator:
		return v.CollegeID
	case Student:
		return v.CollegeID
	}
	return ""
}

// IsStaff reports whether the actor reviews or administers students.
func IsStaff(a Actor) bool {
	switch a.(type) {
	case SuperOperator, TenantAdmin, Moderator:
		return true
	}
	return false
}

// SameDepartment compares department names case-insensitively.
func SameDepartment(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
