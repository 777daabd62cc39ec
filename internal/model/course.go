package model

import "time"

// Course colors selectable in the UI. A course created implicitly by a
// syllabus upload gets a random one.
var CourseColors = []string{"cardinal", "blue", "red", "green", "orange", "pink", "indigo", "teal"}

type Course struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	CourseName       string    `json:"courseName"`
	CourseCode       string    `json:"courseCode"`
	Instructor       string    `json:"instructor,omitempty"`
	Color            string    `json:"color"`
	Term             string    `json:"term,omitempty"`
	SyllabusURL      string    `json:"syllabusUrl,omitempty"`
	SyllabusUploaded bool      `json:"syllabusUploaded"`
	EventsExtracted  int       `json:"eventsExtracted"`
	CalendarID       string    `json:"googleCalendarId,omitempty"`
	SyncedToGoogle   bool      `json:"syncedToGoogle"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Bound reports whether the course has a live remote calendar binding.
func (c *Course) Bound() bool {
	return c.CalendarID != ""
}

// ValidColor reports whether the given color is one of the known course colors.
func ValidColor(color string) bool {
	for _, c := range CourseColors {
		if c == color {
			return true
		}
	}
	return false
}
