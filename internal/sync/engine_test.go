package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sentinelapp/sentinel/internal/database"
	"github.com/sentinelapp/sentinel/internal/gcal"
	"github.com/sentinelapp/sentinel/internal/model"
	"github.com/sentinelapp/sentinel/internal/store"
)

// fakeCalendar records remote state in memory and can fail specific inserts.
type fakeCalendar struct {
	nextID        int
	calendars     map[string]bool
	events        map[string][]string // calendar id -> remote event ids
	colors        map[string]string
	failTitles    map[string]bool
	deleteCalErr  error
	createCalErr  error
	deletedEvents int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		calendars:  make(map[string]bool),
		events:     make(map[string][]string),
		colors:     make(map[string]string),
		failTitles: make(map[string]bool),
	}
}

func (f *fakeCalendar) CreateCalendar(ctx context.Context, cred gcal.Credential, summary, description, timeZone string) (string, error) {
	if f.createCalErr != nil {
		return "", f.createCalErr
	}
	f.nextID++
	id := fmt.Sprintf("cal-%d", f.nextID)
	f.calendars[id] = true
	return id, nil
}

func (f *fakeCalendar) SetCalendarColor(ctx context.Context, cred gcal.Credential, calendarID, colorID string) error {
	f.colors[calendarID] = colorID
	return nil
}

func (f *fakeCalendar) DeleteCalendar(ctx context.Context, cred gcal.Credential, calendarID string) error {
	if f.deleteCalErr != nil {
		return f.deleteCalErr
	}
	if !f.calendars[calendarID] {
		return gcal.ErrNotFound
	}
	delete(f.calendars, calendarID)
	delete(f.events, calendarID)
	return nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, cred gcal.Credential, calendarID string, ev *gcal.Event) (string, error) {
	for title := range f.failTitles {
		if strings.HasSuffix(ev.Summary, title) {
			return "", errors.New("remote insert failed")
		}
	}
	f.nextID++
	id := fmt.Sprintf("rev-%d", f.nextID)
	f.events[calendarID] = append(f.events[calendarID], id)
	return id, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, cred gcal.Credential, calendarID, eventID string) error {
	f.deletedEvents++
	return nil
}

func newTestEngine(t *testing.T, cal Calendar) (*Engine, *sql.DB, *model.Course) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	user, err := store.NewUserStore(db).Create("test@example.com", "Test")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	courses := store.NewCourseStore(db)
	course, err := courses.Create(user.ID, "Algorithms", "CS 161", "", "green", "Fall 2025")
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	eng := NewEngine(cal, courses, store.NewEventStore(db), time.UTC, nil, slog.New(slog.DiscardHandler))
	return eng, db, course
}

func seedEvents(t *testing.T, db *sql.DB, course *model.Course, titles ...string) {
	t.Helper()
	events := store.NewEventStore(db)
	for i, title := range titles {
		_, err := events.Create(&model.Event{
			CourseID: course.ID,
			UserID:   course.UserID,
			Type:     model.EventAssignment,
			Title:    title,
			Date:     fmt.Sprintf("2025-09-%02d", i+1),
		})
		if err != nil {
			t.Fatalf("seed event %q: %v", title, err)
		}
	}
}

func TestBindPushesWithPerEventIsolation(t *testing.T) {
	cal := newFakeCalendar()
	cal.failTitles["PS3"] = true
	eng, db, course := newTestEngine(t, cal)
	seedEvents(t, db, course, "PS1", "PS2", "PS3", "PS4", "PS5")

	cred := gcal.Credential{RefreshToken: "rt"}
	sum, err := eng.Bind(context.Background(), cred, course.ID, course.UserID)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if sum.Total != 5 || sum.Synced != 4 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want 5 total / 4 synced / 1 failed", sum)
	}

	courses := store.NewCourseStore(db)
	got, err := courses.GetByID(course.ID, course.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Bound() || !got.SyncedToGoogle {
		t.Errorf("course binding not recorded: %+v", got)
	}
	if cal.colors[got.CalendarID] != "10" {
		t.Errorf("calendar color = %q, want basil for green course", cal.colors[got.CalendarID])
	}

	events := store.NewEventStore(db)
	synced, err := events.ListSyncedByCourse(course.ID, course.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if len(synced) != 4 {
		t.Errorf("synced events = %d, want 4", len(synced))
	}
	for _, e := range synced {
		if e.RemoteEventID == "" {
			t.Errorf("synced event %q has no remote id", e.Title)
		}
	}
}

func TestPushRetriesOnlyPending(t *testing.T) {
	cal := newFakeCalendar()
	cal.failTitles["PS3"] = true
	eng, db, course := newTestEngine(t, cal)
	seedEvents(t, db, course, "PS1", "PS2", "PS3")

	cred := gcal.Credential{RefreshToken: "rt"}
	if _, err := eng.Bind(context.Background(), cred, course.ID, course.UserID); err != nil {
		t.Fatalf("bind: %v", err)
	}

	// The remote hiccup clears; a second pass should touch only PS3.
	delete(cal.failTitles, "PS3")
	sum, err := eng.Push(context.Background(), cred, course.ID, course.UserID)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if sum.Total != 1 || sum.Synced != 1 || sum.Failed != 0 {
		t.Errorf("retry summary = %+v, want exactly the one pending event", sum)
	}

	got, _ := store.NewCourseStore(db).GetByID(course.ID, course.UserID)
	if n := len(cal.events[got.CalendarID]); n != 3 {
		t.Errorf("remote events = %d, want 3 (no duplicates)", n)
	}
}

func TestBindTwiceRejected(t *testing.T) {
	cal := newFakeCalendar()
	eng, _, course := newTestEngine(t, cal)

	cred := gcal.Credential{RefreshToken: "rt"}
	if _, err := eng.Bind(context.Background(), cred, course.ID, course.UserID); err != nil {
		t.Fatalf("bind: %v", err)
	}
	_, err := eng.Bind(context.Background(), cred, course.ID, course.UserID)
	if !errors.Is(err, ErrAlreadyBound) {
		t.Errorf("err = %v, want ErrAlreadyBound", err)
	}
	if len(cal.calendars) != 1 {
		t.Errorf("remote calendars = %d, want 1", len(cal.calendars))
	}
}

func TestPushRequiresBinding(t *testing.T) {
	eng, _, course := newTestEngine(t, newFakeCalendar())
	_, err := eng.Push(context.Background(), gcal.Credential{RefreshToken: "rt"}, course.ID, course.UserID)
	if !errors.Is(err, ErrNotBound) {
		t.Errorf("err = %v, want ErrNotBound", err)
	}
}

func TestUnbindClearsStateEvenWhenCalendarAlreadyGone(t *testing.T) {
	cal := newFakeCalendar()
	eng, db, course := newTestEngine(t, cal)
	seedEvents(t, db, course, "PS1", "PS2")

	cred := gcal.Credential{RefreshToken: "rt"}
	if _, err := eng.Bind(context.Background(), cred, course.ID, course.UserID); err != nil {
		t.Fatalf("bind: %v", err)
	}

	// The user deleted the calendar from Google's UI out of band.
	got, _ := store.NewCourseStore(db).GetByID(course.ID, course.UserID)
	delete(cal.calendars, got.CalendarID)

	if err := eng.Unbind(context.Background(), cred, course.ID, course.UserID); err != nil {
		t.Fatalf("unbind: %v", err)
	}

	got, _ = store.NewCourseStore(db).GetByID(course.ID, course.UserID)
	if got.Bound() || got.SyncedToGoogle {
		t.Errorf("binding not cleared: %+v", got)
	}
	events, _ := store.NewEventStore(db).ListByCourse(course.ID, course.UserID)
	for _, e := range events {
		if e.Synced || e.RemoteEventID != "" {
			t.Errorf("event %q still carries sync state", e.Title)
		}
	}
}

func TestUnbindKeepsBindingOnHardFailure(t *testing.T) {
	cal := newFakeCalendar()
	cal.deleteCalErr = errors.New("remote unavailable")
	eng, db, course := newTestEngine(t, cal)

	cred := gcal.Credential{RefreshToken: "rt"}
	if _, err := eng.Bind(context.Background(), cred, course.ID, course.UserID); err != nil {
		t.Fatalf("bind: %v", err)
	}

	err := eng.Unbind(context.Background(), cred, course.ID, course.UserID)
	if err == nil {
		t.Fatal("expected unbind to fail")
	}
	got, _ := store.NewCourseStore(db).GetByID(course.ID, course.UserID)
	if !got.Bound() {
		t.Error("binding should survive a failed remote delete for a later retry")
	}
}

func TestRebindAfterUnbindPushesEverythingAgain(t *testing.T) {
	cal := newFakeCalendar()
	eng, db, course := newTestEngine(t, cal)
	seedEvents(t, db, course, "PS1", "PS2")

	cred := gcal.Credential{RefreshToken: "rt"}
	if _, err := eng.Bind(context.Background(), cred, course.ID, course.UserID); err != nil {
		t.Fatal(err)
	}
	if err := eng.Unbind(context.Background(), cred, course.ID, course.UserID); err != nil {
		t.Fatal(err)
	}

	sum, err := eng.Bind(context.Background(), cred, course.ID, course.UserID)
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if sum.Total != 2 || sum.Synced != 2 {
		t.Errorf("rebind summary = %+v, want both events pushed fresh", sum)
	}
	got, _ := store.NewCourseStore(db).GetByID(course.ID, course.UserID)
	if n := len(cal.events[got.CalendarID]); n != 2 {
		t.Errorf("new calendar has %d events, want 2", n)
	}
}

func TestRetractClearsSyncStateButKeepsBinding(t *testing.T) {
	cal := newFakeCalendar()
	eng, db, course := newTestEngine(t, cal)
	seedEvents(t, db, course, "PS1", "PS2")

	cred := gcal.Credential{RefreshToken: "rt"}
	if _, err := eng.Bind(context.Background(), cred, course.ID, course.UserID); err != nil {
		t.Fatal(err)
	}

	sum, err := eng.Retract(context.Background(), cred, course.ID, course.UserID)
	if err != nil {
		t.Fatalf("retract: %v", err)
	}
	if sum.Total != 2 || sum.Synced != 2 || sum.Failed != 0 {
		t.Errorf("summary = %+v", sum)
	}

	got, _ := store.NewCourseStore(db).GetByID(course.ID, course.UserID)
	if !got.Bound() {
		t.Error("retract must keep the calendar binding")
	}
	events, _ := store.NewEventStore(db).ListByCourse(course.ID, course.UserID)
	for _, e := range events {
		if e.Synced || e.RemoteEventID != "" {
			t.Errorf("event %q still carries sync state", e.Title)
		}
	}
}

func TestRemoveEventDeletesRemoteCopy(t *testing.T) {
	cal := newFakeCalendar()
	eng, db, course := newTestEngine(t, cal)
	seedEvents(t, db, course, "PS1")

	cred := gcal.Credential{RefreshToken: "rt"}
	if _, err := eng.Bind(context.Background(), cred, course.ID, course.UserID); err != nil {
		t.Fatal(err)
	}

	events := store.NewEventStore(db)
	all, _ := events.ListByCourse(course.ID, course.UserID)
	if err := eng.RemoveEvent(context.Background(), cred, all[0].ID, course.UserID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if cal.deletedEvents != 1 {
		t.Errorf("remote deletes = %d, want 1", cal.deletedEvents)
	}
	remaining, _ := events.ListByCourse(course.ID, course.UserID)
	if len(remaining) != 0 {
		t.Errorf("event not deleted locally")
	}
}

func TestRevokeAccountClearsLocallyWithoutRemoteCalls(t *testing.T) {
	cal := newFakeCalendar()
	eng, db, course := newTestEngine(t, cal)
	seedEvents(t, db, course, "PS1")

	cred := gcal.Credential{RefreshToken: "rt"}
	if _, err := eng.Bind(context.Background(), cred, course.ID, course.UserID); err != nil {
		t.Fatal(err)
	}
	remoteCals := len(cal.calendars)

	if err := eng.RevokeAccount(course.UserID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	got, _ := store.NewCourseStore(db).GetByID(course.ID, course.UserID)
	if got.Bound() {
		t.Error("binding should be cleared on revoke")
	}
	events, _ := store.NewEventStore(db).ListByCourse(course.ID, course.UserID)
	for _, e := range events {
		if e.Synced {
			t.Errorf("event %q still synced after revoke", e.Title)
		}
	}
	if len(cal.calendars) != remoteCals {
		t.Error("revoke must not touch remote calendars")
	}
}
