package scope

import "strings"

// Action is what the actor wants to do with a resource.
type Action string

const (
	ActionRead            Action = "read"
	ActionWrite           Action = "write"
	ActionReview          Action = "review"
	ActionCreateModerator Action = "create_moderator"
	ActionCreateStudent   Action = "create_student"
	ActionManageJobs      Action = "manage_jobs"
)

// Kind classifies a resource.
type Kind string

const (
	KindStudent     Kind = "student"
	KindApplication Kind = "application"
	KindJob         Kind = "job"
	KindAccount     Kind = "account"
	KindCollege     Kind = "college"
)

// Resource is the boundary-relevant view of the target of an action.
// Department is empty for tenant-wide resources such as job postings.
type Resource struct {
	Kind       Kind
	CollegeID  string
	Department string
	// OwnerID is the user id of the student owning the resource, if any.
	OwnerID   string
	Published bool
}

// Decision is the result of Check. Reason is always set on deny.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Check evaluates the tenant/department rules in order.
func Check(a Actor, action Action, res Resource) Decision {
	switch v := a.(type) {
	case SuperOperator:
		return allow()
	case TenantAdmin:
		return checkTenantAdmin(v, action, res)
	case Moderator:
		return checkModerator(v, action, res)
	case Student:
		return checkStudent(v, action, res)
	default:
		return deny("unknown actor")
	}
}

func checkTenantAdmin(a TenantAdmin, action Action, res Resource) Decision {
	if strings.TrimSpace(a.CollegeID) == "" {
		return deny("actor has no college")
	}
	if !sameCollege(a.CollegeID, res.CollegeID) {
		return deny("resource belongs to another college")
	}
	if a.Department == "" {
		return allow()
	}
	if action == ActionCreateModerator || res.Department != "" {
		if !SameDepartment(a.Department, res.Department) {
			return deny("resource is outside the admin's department")
		}
	}
	return allow()
}

func checkModerator(a Moderator, action Action, res Resource) Decision {
	if strings.TrimSpace(a.CollegeID) == "" || strings.TrimSpace(a.Department) == "" {
		return deny("actor has no college or department")
	}
	if !sameCollege(a.CollegeID, res.CollegeID) {
		return deny("resource belongs to another college")
	}
	if action == ActionCreateModerator || action == ActionManageJobs {
		return deny("moderators cannot perform this action")
	}
	if res.Department == "" {
		// tenant-wide resources are visible, never writable
		if action == ActionRead {
			return allow()
		}
		return deny("moderators cannot modify college-wide resources")
	}
	if !SameDepartment(a.Department, res.Department) {
		return deny("resource is outside the moderator's department")
	}
	return allow()
}

func checkStudent(a Student, action Action, res Resource) Decision {
	if strings.TrimSpace(a.CollegeID) == "" || strings.TrimSpace(a.Department) == "" {
		return deny("actor has no college or department")
	}
	if !sameCollege(a.CollegeID, res.CollegeID) {
		return deny("resource belongs to another college")
	}
	switch action {
	case ActionReview, ActionCreateModerator, ActionCreateStudent, ActionManageJobs:
		return deny("students cannot perform this action")
	}
	if res.OwnerID != "" && res.OwnerID == a.UserID {
		return allow()
	}
	if res.Kind == KindJob && res.Published && action == ActionRead {
		return allow()
	}
	return deny("resource does not belong to the student")
}

func sameCollege(actorCollege, resourceCollege string) bool {
	return resourceCollege != "" && actorCollege == resourceCollege
}

// Filter is the query restriction matching what an actor may list.
// Empty fields mean unrestricted.
type Filter struct {
	CollegeID  string
	Department string
	OwnerID    string
}

// FilterFor returns the list restriction for an actor. Lists are filtered in
// the query and every returned row is still passed through Check.
func FilterFor(a Actor) Filter {
	switch v := a.(type) {
	case SuperOperator:
		return Filter{}
	case TenantAdmin:
		return Filter{CollegeID: v.CollegeID, Department: v.Department}
	case Moderator:
		return Filter{CollegeID: v.CollegeID, Department: v.Department}
	case Student:
		return Filter{CollegeID: v.CollegeID, OwnerID: v.UserID}
	}
	// unreachable for the closed set; match nothing
	return Filter{CollegeID: "-", Department: "-", OwnerID: "-"}
}
