// Package testutil provides shared fixtures for store-backed tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zaqqye/placement_backend/internal/database"
	"github.com/zaqqye/placement_backend/internal/models"
	"github.com/zaqqye/placement_backend/internal/scope"
	"github.com/zaqqye/placement_backend/internal/store"
)

var seq atomic.Int64

// Store opens a fresh in-memory database.
func Store(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return store.New(db)
}

func College(t *testing.T, st *store.Store) *models.College {
	t.Helper()
	n := seq.Add(1)
	c := &models.College{Name: fmt.Sprintf("College %d", n), Code: fmt.Sprintf("C%d", n)}
	if err := st.CreateCollege(context.Background(), c); err != nil {
		t.Fatalf("create college: %v", err)
	}
	return c
}

// Account creates an active user and returns its actor.
func Account(t *testing.T, st *store.Store, role, collegeID, department string) (*models.User, scope.Actor) {
	t.Helper()
	u := &models.User{
		Role:       role,
		Department: department,
		FullName:   role,
		Email:      fmt.Sprintf("%s%d@test.local", role, seq.Add(1)),
		Active:     true,
	}
	if collegeID != "" {
		u.CollegeID = &collegeID
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	actor, err := scope.FromAccount(scope.Account{UserID: u.ID, Role: role, CollegeID: collegeID, Department: department})
	if err != nil {
		t.Fatalf("actor: %v", err)
	}
	return u, actor
}

// Student creates a student account with a complete profile; mutate may
// adjust the profile before insert.
func Student(t *testing.T, st *store.Store, collegeID, department string, mutate func(*models.StudentProfile)) (*models.StudentProfile, scope.Actor) {
	t.Helper()
	u, actor := Account(t, st, scope.RoleStudent, collegeID, department)
	p := &models.StudentProfile{
		UserID:         u.ID,
		CollegeID:      collegeID,
		Department:     department,
		FullName:       "Student " + u.ID[:8],
		Phone:          "9999999999",
		Branch:         department,
		CGPA:           8.0,
		TenthPercent:   85,
		TwelfthPercent: 80,
		GraduationYear: 2026,
	}
	if mutate != nil {
		mutate(p)
	}
	if err := st.CreateStudent(context.Background(), p); err != nil {
		t.Fatalf("create student: %v", err)
	}
	return p, actor
}

// Job creates a published, active job open for a day.
func Job(t *testing.T, st *store.Store, collegeID string, mutate func(*models.JobPosting)) *models.JobPosting {
	t.Helper()
	j := &models.JobPosting{
		CollegeID: collegeID,
		Title:     fmt.Sprintf("Engineer %d", seq.Add(1)),
		Company:   "Acme",
		Published: true,
		Deadline:  time.Now().Add(24 * time.Hour),
	}
	if mutate != nil {
		mutate(j)
	}
	if err := st.CreateJob(context.Background(), j); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

func Float(v float64) *float64 { return &v }
func Int(v int) *int           { return &v }
func Bool(v bool) *bool        { return &v }
func String(v string) *string  { return &v }
