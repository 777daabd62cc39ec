package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sentinelapp/sentinel/internal/gcal"
	"github.com/sentinelapp/sentinel/internal/model"
	"github.com/sentinelapp/sentinel/internal/store"
)

var (
	// ErrAlreadyBound is returned when a course already has a remote calendar.
	ErrAlreadyBound = errors.New("course already has a calendar")
	// ErrNotBound is returned when an operation needs a remote calendar the
	// course does not have.
	ErrNotBound = errors.New("course has no calendar")
	// ErrCourseNotFound is returned when the course does not exist for the user.
	ErrCourseNotFound = errors.New("course not found")
)

// Calendar is the remote calendar provider surface the engine drives.
// *gcal.Client satisfies it.
type Calendar interface {
	CreateCalendar(ctx context.Context, cred gcal.Credential, summary, description, timeZone string) (string, error)
	SetCalendarColor(ctx context.Context, cred gcal.Credential, calendarID, colorID string) error
	DeleteCalendar(ctx context.Context, cred gcal.Credential, calendarID string) error
	CreateEvent(ctx context.Context, cred gcal.Credential, calendarID string, ev *gcal.Event) (string, error)
	DeleteEvent(ctx context.Context, cred gcal.Credential, calendarID, eventID string) error
}

// Notifier pushes sync progress to the owning user's live clients.
type Notifier interface {
	Notify(userID int64, kind string, payload any)
}

// Summary reports what one push pass did.
type Summary struct {
	Total  int `json:"total"`
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Engine owns the course-to-calendar binding lifecycle and the event push
// loop. All remote calls carry the user's credential explicitly.
type Engine struct {
	cal      Calendar
	courses  *store.CourseStore
	events   *store.EventStore
	loc      *time.Location
	notifier Notifier
	logger   *slog.Logger
}

func NewEngine(cal Calendar, courses *store.CourseStore, events *store.EventStore, loc *time.Location, notifier Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		cal:      cal,
		courses:  courses,
		events:   events,
		loc:      loc,
		notifier: notifier,
		logger:   logger,
	}
}

// Bind creates a dedicated remote calendar for the course, records the
// binding, and pushes every pending event onto it.
func (e *Engine) Bind(ctx context.Context, cred gcal.Credential, courseID, userID int64) (*Summary, error) {
	course, err := e.courses.GetByID(courseID, userID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	if course.Bound() {
		return nil, ErrAlreadyBound
	}

	summary := fmt.Sprintf("%s - %s", course.CourseCode, course.CourseName)
	description := fmt.Sprintf("Course calendar for %s", course.CourseName)
	calendarID, err := e.cal.CreateCalendar(ctx, cred, summary, description, e.loc.String())
	if err != nil {
		return nil, fmt.Errorf("create remote calendar: %w", err)
	}

	// Color is cosmetic; a failure here never fails the bind.
	if err := e.cal.SetCalendarColor(ctx, cred, calendarID, gcal.ColorID(course.Color)); err != nil {
		e.logger.Warn("failed to color remote calendar", "course_id", course.ID, "error", err)
	}

	if err := e.courses.SetBinding(course.ID, calendarID); err != nil {
		// The binding never existed locally, so take the remote calendar
		// back down rather than leak it.
		if derr := e.cal.DeleteCalendar(ctx, cred, calendarID); derr != nil && !errors.Is(derr, gcal.ErrNotFound) {
			e.logger.Warn("failed to remove orphaned calendar", "calendar_id", calendarID, "error", derr)
		}
		return nil, fmt.Errorf("record calendar binding: %w", err)
	}
	course.CalendarID = calendarID

	return e.push(ctx, cred, course)
}

// Push sends every not-yet-synced event of a bound course to its calendar.
func (e *Engine) Push(ctx context.Context, cred gcal.Credential, courseID, userID int64) (*Summary, error) {
	course, err := e.courses.GetByID(courseID, userID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	if !course.Bound() {
		return nil, ErrNotBound
	}
	return e.push(ctx, cred, course)
}

// push runs the sequential insert loop. Each event is isolated: one failure
// is counted and the loop moves on, so a flaky item cannot block the rest.
func (e *Engine) push(ctx context.Context, cred gcal.Credential, course *model.Course) (*Summary, error) {
	pending, err := e.events.ListUnsyncedByCourse(course.ID, course.UserID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Total: len(pending)}
	for i := range pending {
		ev := &pending[i]
		if err := e.pushOne(ctx, cred, course, ev); err != nil {
			sum.Failed++
			e.logger.Warn("event push failed",
				"course_id", course.ID, "event_id", ev.ID, "title", ev.Title, "error", err)
			continue
		}
		sum.Synced++
	}

	e.notify(course.UserID, sum)
	e.logger.Info("calendar push finished",
		"course_id", course.ID, "total", sum.Total, "synced", sum.Synced, "failed", sum.Failed)
	return sum, nil
}

func (e *Engine) pushOne(ctx context.Context, cred gcal.Credential, course *model.Course, ev *model.Event) error {
	remote, err := gcal.ToRemoteEvent(*ev, course.CourseName, course.CourseCode, e.loc)
	if err != nil {
		return fmt.Errorf("convert event: %w", err)
	}

	remoteID, err := e.cal.CreateEvent(ctx, cred, course.CalendarID, remote)
	if err != nil {
		return err
	}

	if err := e.events.MarkSynced(ev.ID, remoteID); err != nil {
		// The local record still says unsynced, so remove the remote copy
		// to avoid a duplicate on the next push.
		if derr := e.cal.DeleteEvent(ctx, cred, course.CalendarID, remoteID); derr != nil && !errors.Is(derr, gcal.ErrNotFound) {
			e.logger.Warn("failed to remove orphaned remote event",
				"calendar_id", course.CalendarID, "remote_event_id", remoteID, "error", derr)
		}
		return fmt.Errorf("record sync state: %w", err)
	}
	return nil
}

// Retract removes previously pushed events from the remote calendar and
// clears their sync state, leaving the calendar itself bound. Events that
// are already gone remotely still get their local state cleared.
func (e *Engine) Retract(ctx context.Context, cred gcal.Credential, courseID, userID int64) (*Summary, error) {
	course, err := e.courses.GetByID(courseID, userID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	if !course.Bound() {
		return nil, ErrNotBound
	}

	synced, err := e.events.ListSyncedByCourse(course.ID, course.UserID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Total: len(synced)}
	for i := range synced {
		ev := &synced[i]
		if err := e.cal.DeleteEvent(ctx, cred, course.CalendarID, ev.RemoteEventID); err != nil && !errors.Is(err, gcal.ErrNotFound) {
			sum.Failed++
			e.logger.Warn("event retract failed",
				"course_id", course.ID, "event_id", ev.ID, "error", err)
			continue
		}
		if err := e.events.ClearSync(ev.ID); err != nil {
			sum.Failed++
			e.logger.Warn("failed to clear sync state",
				"course_id", course.ID, "event_id", ev.ID, "error", err)
			continue
		}
		sum.Synced++
	}

	e.notify(course.UserID, sum)
	return sum, nil
}

// RemoveEvent deletes an event locally and, when it was pushed, from the
// remote calendar. A remote copy that is already gone does not block the
// local delete.
func (e *Engine) RemoveEvent(ctx context.Context, cred gcal.Credential, eventID, userID int64) error {
	ev, err := e.events.GetByID(eventID, userID)
	if err != nil {
		return err
	}
	if ev == nil {
		return nil
	}

	if ev.Synced {
		course, err := e.courses.GetByID(ev.CourseID, userID)
		if err != nil {
			return err
		}
		if course != nil && course.Bound() {
			if derr := e.cal.DeleteEvent(ctx, cred, course.CalendarID, ev.RemoteEventID); derr != nil && !errors.Is(derr, gcal.ErrNotFound) {
				return fmt.Errorf("delete remote event: %w", derr)
			}
		}
	}

	return e.events.Delete(ev.ID, userID)
}

// Unbind deletes the course's remote calendar and clears all local sync
// state. A calendar that is already gone remotely counts as deleted.
func (e *Engine) Unbind(ctx context.Context, cred gcal.Credential, courseID, userID int64) error {
	course, err := e.courses.GetByID(courseID, userID)
	if err != nil {
		return err
	}
	if course == nil {
		return ErrCourseNotFound
	}
	if !course.Bound() {
		return ErrNotBound
	}

	// Deleting the calendar removes every event on it, so no per-event
	// remote sweep is needed first.
	if err := e.cal.DeleteCalendar(ctx, cred, course.CalendarID); err != nil && !errors.Is(err, gcal.ErrNotFound) {
		return fmt.Errorf("delete remote calendar: %w", err)
	}

	if err := e.events.ClearSyncForCourse(course.ID); err != nil {
		return err
	}
	if err := e.courses.ClearBinding(course.ID); err != nil {
		return err
	}
	return nil
}

// UpdateColor propagates a course color change to its remote calendar, when
// one exists.
func (e *Engine) UpdateColor(ctx context.Context, cred gcal.Credential, course *model.Course) error {
	if !course.Bound() {
		return nil
	}
	if err := e.cal.SetCalendarColor(ctx, cred, course.CalendarID, gcal.ColorID(course.Color)); err != nil {
		return fmt.Errorf("set calendar color: %w", err)
	}
	return nil
}

// RevokeAccount clears every calendar binding for the user locally. It makes
// no remote calls: revocation means the credential is gone, so the remote
// calendars are the user's to clean up from their own account.
func (e *Engine) RevokeAccount(userID int64) error {
	bound, err := e.courses.ListBoundByUser(userID)
	if err != nil {
		return err
	}
	for _, course := range bound {
		if err := e.events.ClearSyncForCourse(course.ID); err != nil {
			e.logger.Warn("failed to clear sync state on revoke", "course_id", course.ID, "error", err)
			continue
		}
		if err := e.courses.ClearBinding(course.ID); err != nil {
			e.logger.Warn("failed to clear binding on revoke", "course_id", course.ID, "error", err)
		}
	}
	return nil
}

func (e *Engine) notify(userID int64, sum *Summary) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(userID, "sync_status", sum)
}
