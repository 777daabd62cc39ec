package model

import "time"

// EventType classifies an academic event extracted from a syllabus.
type EventType string

const (
	EventAssignment    EventType = "assignment"
	EventExam          EventType = "exam"
	EventQuiz          EventType = "quiz"
	EventReading       EventType = "reading"
	EventImportantDate EventType = "important_date"
)

// Event is a dated academic event belonging to a course.
//
// Date is a calendar date in YYYY-MM-DD form; Time, when present, is a
// time-of-day in HH:MM form. An empty Time means the event is all-day.
// RemoteEventID is non-empty if and only if Synced is true.
type Event struct {
	ID               int64     `json:"id"`
	CourseID         int64     `json:"courseId"`
	UserID           int64     `json:"userId"`
	Type             EventType `json:"type"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Date             string    `json:"date"`
	Time             string    `json:"time,omitempty"`
	Location         string    `json:"location,omitempty"`
	Points           *float64  `json:"points,omitempty"`
	SubmissionMethod string    `json:"submissionMethod,omitempty"`
	Coverage         string    `json:"coverage,omitempty"`
	Completed        bool      `json:"completed"`
	Synced           bool      `json:"syncedToCalendar"`
	RemoteEventID    string    `json:"googleCalendarEventId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
