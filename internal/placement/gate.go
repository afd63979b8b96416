// Package placement decides whether a student may apply to a job, creates
// applications atomically with that decision, and enforces the one-offer
// rule on offer acceptance.
package placement

import (
	"fmt"
	"strings"
	"time"

	"github.com/zaqqye/placement_backend/internal/apperr"
	"github.com/zaqqye/placement_backend/internal/eligibility"
	"github.com/zaqqye/placement_backend/internal/jobs"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/profile"
	"github.com/zaqqye/placement_backend/internal/scope"
)

// Gate checks, in evaluation order.
const (
	CheckScope           = "scope"
	CheckJobOpen         = "job_open"
	CheckBlocked         = "blocked"
	CheckProfileComplete = "profile_complete"
	CheckPlaced          = "placed"
	CheckEligibility     = "eligibility"
	CheckDuplicate       = "duplicate"
)

const (
	ReasonJobNotFound    = "job not found"
	ReasonJobClosed      = "job is closed for applications"
	ReasonBlocked        = "student is blocked from applying"
	ReasonPlaced         = "student is already placed"
	ReasonAlreadyApplied = "already applied to this job"
)

// Decision names the first failing check and its reasons. Reasons is
// empty, never nil, when allowed.
type Decision struct {
	Allowed bool     `json:"allowed"`
	Check   string   `json:"check,omitempty"`
	Reasons []string `json:"reasons"`
}

func allowed() Decision { return Decision{Allowed: true, Reasons: []string{}} }

func denied(check string, reasons ...string) Decision {
	return Decision{Check: check, Reasons: reasons}
}

// Err translates a denial into the error taxonomy; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	msg := strings.Join(d.Reasons, "; ")
	switch d.Check {
	case CheckScope:
		return apperr.NotFound(msg)
	case CheckJobOpen, CheckPlaced, CheckDuplicate:
		return apperr.Conflict(msg)
	case CheckBlocked:
		return apperr.Denied(msg)
	case CheckProfileComplete:
		return apperr.Invalid(msg, nil)
	case CheckEligibility:
		return apperr.Ineligible(d.Reasons)
	}
	return apperr.Internal("unknown gate check "+d.Check, nil)
}

// input is everything the gate reads, loaded by the caller.
type input struct {
	actor       scope.Actor
	student     *models.StudentProfile
	job         *models.JobPosting
	hasExisting bool
	now         time.Time
}

// evaluate runs every check in order and stops at the first failure; the
// eligibility check itself reports all failing criteria.
func evaluate(in input) Decision {
	j, p := in.job, in.student
	if j == nil || !j.Published || !scope.Check(in.actor, scope.ActionRead, jobs.Resource(j)).Allowed {
		return denied(CheckScope, ReasonJobNotFound)
	}
	if !j.OpenAt(in.now) {
		return denied(CheckJobOpen, ReasonJobClosed)
	}
	if p.Blocked {
		return denied(CheckBlocked, ReasonBlocked)
	}
	if c := profile.Evaluate(p); !c.Complete {
		return denied(CheckProfileComplete, fmt.Sprintf("profile is incomplete: missing %s", strings.Join(c.Missing, ", ")))
	}
	if p.IsPlaced {
		return denied(CheckPlaced, ReasonPlaced)
	}
	if r := eligibility.Evaluate(profile.SnapshotOf(p), jobs.CriteriaOf(j)); !r.Eligible {
		return denied(CheckEligibility, r.Reasons...)
	}
	if in.hasExisting {
		return denied(CheckDuplicate, ReasonAlreadyApplied)
	}
	return allowed()
}

// staffTransitions is the funnel staff may drive. accepted and declined
// are reached only through the student's own offer decision.
var staffTransitions = map[string][]string{
	models.AppSubmitted:   {models.AppShortlisted, models.AppRejected},
	models.AppShortlisted: {models.AppInterview, models.AppOffered, models.AppRejected},
	models.AppInterview:   {models.AppInterview, models.AppOffered, models.AppRejected},
}

func canAdvance(from, to string) bool {
	for _, next := range staffTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func isStaffTarget(status string) bool {
	switch status {
	case models.AppShortlisted, models.AppInterview, models.AppOffered, models.AppRejected:
		return true
	}
	return false
}
