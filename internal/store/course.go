package store

import (
	"database/sql"
	"fmt"

	"github.com/sentinelapp/sentinel/internal/model"
)

type CourseStore struct {
	db *sql.DB
}

func NewCourseStore(db *sql.DB) *CourseStore {
	return &CourseStore{db: db}
}

const courseCols = `id, user_id, course_name, course_code, instructor, color, term,
	syllabus_url, syllabus_uploaded, events_extracted, google_calendar_id, synced_to_google,
	created_at, updated_at`

func scanCourse(scanner interface{ Scan(...any) error }) (*model.Course, error) {
	var c model.Course
	var uploaded, synced int
	err := scanner.Scan(
		&c.ID, &c.UserID, &c.CourseName, &c.CourseCode, &c.Instructor, &c.Color, &c.Term,
		&c.SyllabusURL, &uploaded, &c.EventsExtracted, &c.CalendarID, &synced,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.SyllabusUploaded = uploaded != 0
	c.SyncedToGoogle = synced != 0
	return &c, nil
}

func (s *CourseStore) Create(userID int64, name, code, instructor, color, term string) (*model.Course, error) {
	result, err := s.db.Exec(
		`INSERT INTO courses (user_id, course_name, course_code, instructor, color, term)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, name, code, instructor, color, term,
	)
	if err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

// GetByID fetches a course owned by userID, or nil when absent.
func (s *CourseStore) GetByID(id, userID int64) (*model.Course, error) {
	row := s.db.QueryRow(`SELECT `+courseCols+` FROM courses WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCourse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query course: %w", err)
	}
	return c, nil
}

func (s *CourseStore) ListByUser(userID int64) ([]model.Course, error) {
	rows, err := s.db.Query(`SELECT `+courseCols+` FROM courses WHERE user_id = ? ORDER BY course_code ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// ListBoundByUser returns the user's courses that have a remote calendar binding.
func (s *CourseStore) ListBoundByUser(userID int64) ([]model.Course, error) {
	rows, err := s.db.Query(`SELECT `+courseCols+` FROM courses WHERE user_id = ? AND google_calendar_id != ''`, userID)
	if err != nil {
		return nil, fmt.Errorf("query bound courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// UpdateFromSyllabus refreshes the identity fields derived from a syllabus
// upload on an existing course.
func (s *CourseStore) UpdateFromSyllabus(id, userID int64, name, code, instructor, term, syllabusURL string) (*model.Course, error) {
	_, err := s.db.Exec(
		`UPDATE courses
		 SET course_name = ?, course_code = ?, instructor = ?, term = ?,
		     syllabus_url = ?, syllabus_uploaded = 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		name, code, instructor, term, syllabusURL, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update course from syllabus: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *CourseStore) UpdateColor(id, userID int64, color string) (*model.Course, error) {
	_, err := s.db.Exec(
		`UPDATE courses SET color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?`,
		color, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update course color: %w", err)
	}
	return s.GetByID(id, userID)
}

// SetEventsExtracted records how many events the last ingestion persisted.
func (s *CourseStore) SetEventsExtracted(id int64, count int) error {
	_, err := s.db.Exec(
		`UPDATE courses SET events_extracted = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		count, id,
	)
	if err != nil {
		return fmt.Errorf("set events extracted: %w", err)
	}
	return nil
}

// SetBinding records the remote calendar id for a course.
func (s *CourseStore) SetBinding(id int64, calendarID string) error {
	_, err := s.db.Exec(
		`UPDATE courses SET google_calendar_id = ?, synced_to_google = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		calendarID, id,
	)
	if err != nil {
		return fmt.Errorf("set calendar binding: %w", err)
	}
	return nil
}

// ClearBinding removes the remote calendar binding from a course.
func (s *CourseStore) ClearBinding(id int64) error {
	_, err := s.db.Exec(
		`UPDATE courses SET google_calendar_id = '', synced_to_google = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("clear calendar binding: %w", err)
	}
	return nil
}

// Delete removes a course; its events cascade.
func (s *CourseStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM courses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
