package store

import (
	"database/sql"
	"fmt"

	"github.com/sentinelapp/sentinel/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, course_id, user_id, type, title, description, date, time, location,
	points, submission_method, coverage, completed, synced_to_calendar, google_calendar_event_id,
	created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var completed, synced int
	var points sql.NullFloat64
	err := scanner.Scan(
		&e.ID, &e.CourseID, &e.UserID, &e.Type, &e.Title, &e.Description, &e.Date, &e.Time, &e.Location,
		&points, &e.SubmissionMethod, &e.Coverage, &completed, &synced, &e.RemoteEventID,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Completed = completed != 0
	e.Synced = synced != 0
	if points.Valid {
		e.Points = &points.Float64
	}
	return &e, nil
}

// Create inserts a materialized event. Sync state always starts cleared.
func (s *EventStore) Create(e *model.Event) (*model.Event, error) {
	var points sql.NullFloat64
	if e.Points != nil {
		points = sql.NullFloat64{Float64: *e.Points, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO events (course_id, user_id, type, title, description, date, time, location,
		                     points, submission_method, coverage)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CourseID, e.UserID, e.Type, e.Title, e.Description, e.Date, e.Time, e.Location,
		points, e.SubmissionMethod, e.Coverage,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getByID(id)
}

func (s *EventStore) getByID(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return e, nil
}

// GetByID fetches an event owned by userID, or nil when absent.
func (s *EventStore) GetByID(id, userID int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return e, nil
}

func (s *EventStore) ListByUser(userID int64) ([]model.Event, error) {
	return s.list(`SELECT `+eventCols+` FROM events WHERE user_id = ? ORDER BY date ASC, time ASC`, userID)
}

func (s *EventStore) ListByCourse(courseID, userID int64) ([]model.Event, error) {
	return s.list(`SELECT `+eventCols+` FROM events WHERE course_id = ? AND user_id = ? ORDER BY date ASC, time ASC`, courseID, userID)
}

// ListUnsyncedByCourse returns events that have no remote counterpart yet.
func (s *EventStore) ListUnsyncedByCourse(courseID, userID int64) ([]model.Event, error) {
	return s.list(
		`SELECT `+eventCols+` FROM events
		 WHERE course_id = ? AND user_id = ? AND synced_to_calendar = 0
		 ORDER BY date ASC, time ASC`,
		courseID, userID,
	)
}

// ListSyncedByCourse returns events that currently have a remote counterpart.
func (s *EventStore) ListSyncedByCourse(courseID, userID int64) ([]model.Event, error) {
	return s.list(
		`SELECT `+eventCols+` FROM events
		 WHERE course_id = ? AND user_id = ? AND synced_to_calendar = 1 AND google_calendar_event_id != ''
		 ORDER BY date ASC, time ASC`,
		courseID, userID,
	)
}

func (s *EventStore) list(query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// MarkSynced records a successful remote insert. The remote id and the sync
// flag change together so the binding invariant holds after any interleaving.
func (s *EventStore) MarkSynced(id int64, remoteEventID string) error {
	if remoteEventID == "" {
		return fmt.Errorf("mark synced: empty remote event id")
	}
	_, err := s.db.Exec(
		`UPDATE events SET synced_to_calendar = 1, google_calendar_event_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		remoteEventID, id,
	)
	if err != nil {
		return fmt.Errorf("mark event synced: %w", err)
	}
	return nil
}

// ClearSync resets an event to the unsynced state with no remote id.
func (s *EventStore) ClearSync(id int64) error {
	_, err := s.db.Exec(
		`UPDATE events SET synced_to_calendar = 0, google_calendar_event_id = '', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("clear event sync: %w", err)
	}
	return nil
}

// ClearSyncForCourse resets sync state for every event of a course. Used when
// the remote calendar is gone (teardown or account revocation).
func (s *EventStore) ClearSyncForCourse(courseID int64) error {
	_, err := s.db.Exec(
		`UPDATE events SET synced_to_calendar = 0, google_calendar_event_id = '', updated_at = CURRENT_TIMESTAMP WHERE course_id = ?`,
		courseID,
	)
	if err != nil {
		return fmt.Errorf("clear course sync: %w", err)
	}
	return nil
}

func (s *EventStore) SetCompleted(id, userID int64, completed bool) (*model.Event, error) {
	var completedInt int
	if completed {
		completedInt = 1
	}
	_, err := s.db.Exec(
		`UPDATE events SET completed = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?`,
		completedInt, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("set event completed: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *EventStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
