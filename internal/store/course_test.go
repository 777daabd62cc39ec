package store

import (
	"database/sql"
	"testing"

	"github.com/sentinelapp/sentinel/internal/database"
)

func setupDB(t *testing.T) (*sql.DB, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	user, err := NewUserStore(db).Create("test@example.com", "Test")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return db, user.ID
}

func TestCourseCreateAndGet(t *testing.T) {
	db, userID := setupDB(t)
	courses := NewCourseStore(db)

	c, err := courses.Create(userID, "Algorithms", "CS 161", "Prof. Rivera", "green", "Fall 2025")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 || c.CourseName != "Algorithms" || c.Color != "green" {
		t.Errorf("created course = %+v", c)
	}
	if c.Bound() || c.SyllabusUploaded {
		t.Error("new course should start unbound with no syllabus")
	}

	got, err := courses.GetByID(c.ID, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.CourseCode != "CS 161" {
		t.Errorf("got = %+v", got)
	}
}

func TestCourseGetScopedByOwner(t *testing.T) {
	db, userID := setupDB(t)
	courses := NewCourseStore(db)

	other, err := NewUserStore(db).Create("other@example.com", "Other")
	if err != nil {
		t.Fatal(err)
	}
	c, err := courses.Create(userID, "Algorithms", "CS 161", "", "blue", "")
	if err != nil {
		t.Fatal(err)
	}

	got, err := courses.GetByID(c.ID, other.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("course visible to a different user")
	}
}

func TestCourseBindingLifecycle(t *testing.T) {
	db, userID := setupDB(t)
	courses := NewCourseStore(db)

	c, err := courses.Create(userID, "Chemistry", "CHEM 20", "", "teal", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := courses.SetBinding(c.ID, "cal-abc"); err != nil {
		t.Fatalf("set binding: %v", err)
	}
	got, _ := courses.GetByID(c.ID, userID)
	if !got.Bound() || !got.SyncedToGoogle || got.CalendarID != "cal-abc" {
		t.Errorf("after bind = %+v", got)
	}

	bound, err := courses.ListBoundByUser(userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bound) != 1 {
		t.Errorf("bound courses = %d, want 1", len(bound))
	}

	if err := courses.ClearBinding(c.ID); err != nil {
		t.Fatalf("clear binding: %v", err)
	}
	got, _ = courses.GetByID(c.ID, userID)
	if got.Bound() || got.SyncedToGoogle {
		t.Errorf("after unbind = %+v", got)
	}
}

func TestCourseUpdateFromSyllabus(t *testing.T) {
	db, userID := setupDB(t)
	courses := NewCourseStore(db)

	c, err := courses.Create(userID, "Draft", "TBD", "", "red", "")
	if err != nil {
		t.Fatal(err)
	}

	got, err := courses.UpdateFromSyllabus(c.ID, userID, "World History", "HIST 101", "Dr. Okafor", "Spring 2026", "https://files/syllabus.pdf")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.CourseName != "World History" || got.CourseCode != "HIST 101" {
		t.Errorf("identity = %q / %q", got.CourseName, got.CourseCode)
	}
	if !got.SyllabusUploaded || got.SyllabusURL != "https://files/syllabus.pdf" {
		t.Errorf("syllabus fields = %v / %q", got.SyllabusUploaded, got.SyllabusURL)
	}
	if got.Color != "red" {
		t.Errorf("color should be untouched, got %q", got.Color)
	}
}

func TestCourseDeleteCascadesEvents(t *testing.T) {
	db, userID := setupDB(t)
	courses := NewCourseStore(db)
	events := NewEventStore(db)

	c, err := courses.Create(userID, "Algorithms", "CS 161", "", "blue", "")
	if err != nil {
		t.Fatal(err)
	}
	seedEvent(t, events, c.ID, userID, "PS1")
	seedEvent(t, events, c.ID, userID, "PS2")

	if err := courses.Delete(c.ID, userID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	left, err := events.ListByUser(userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("events survived course delete: %d", len(left))
	}
}
