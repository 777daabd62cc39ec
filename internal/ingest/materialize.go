package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/sentinelapp/sentinel/internal/extract"
	"github.com/sentinelapp/sentinel/internal/model"
)

// Materialize converts a raw extraction payload into validated event records.
// It is pure data transformation: no I/O, no clock, no randomness.
//
// Items whose date is absent, the null sentinel, or not a real calendar date
// are dropped: an event without a usable date has nowhere to live on a
// calendar. Everything else is kept; empty descriptions are fine.
func Materialize(res *extract.Result, courseID, userID int64) []model.Event {
	var events []model.Event

	for _, a := range res.Assignments {
		date, ok := validDate(a.DueDate.String())
		if !ok {
			continue
		}
		events = append(events, model.Event{
			CourseID:         courseID,
			UserID:           userID,
			Type:             assignmentType(a.Kind.String()),
			Title:            a.Title,
			Description:      assignmentDescription(a),
			Date:             date,
			Time:             normalizeTime(a.DueTime.String()),
			Points:           a.Points.Float(),
			SubmissionMethod: a.SubmissionMethod.String(),
		})
	}

	for _, e := range res.Exams {
		date, ok := validDate(e.Date.String())
		if !ok {
			continue
		}
		events = append(events, model.Event{
			CourseID:    courseID,
			UserID:      userID,
			Type:        examType(e.Kind.String()),
			Title:       e.Title,
			Description: examDescription(e),
			Date:        date,
			Time:        normalizeTime(e.Time.String()),
			Location:    e.Location.String(),
			Coverage:    e.Coverage.String(),
			Points:      e.Weight.Float(),
		})
	}

	for _, d := range res.ImportantDates {
		date, ok := validDate(d.Date.String())
		if !ok {
			continue
		}
		events = append(events, model.Event{
			CourseID:    courseID,
			UserID:      userID,
			Type:        importantDateType(d.Kind.String()),
			Title:       d.Event,
			Description: d.Description.String(),
			Date:        date,
		})
	}

	return events
}

// validDate returns the date when it is a usable YYYY-MM-DD calendar date.
func validDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == extract.NullSentinel || s == "undefined" {
		return "", false
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", false
	}
	return s, true
}

// normalizeTime clears sentinel time values so an unknown time means all-day.
func normalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == extract.NullSentinel || s == "undefined" {
		return ""
	}
	return s
}

func assignmentType(kind string) model.EventType {
	if kind == "discussion" {
		return model.EventReading
	}
	return model.EventAssignment
}

func examType(kind string) model.EventType {
	if kind == "quiz" || kind == "test" {
		return model.EventQuiz
	}
	return model.EventExam
}

func importantDateType(kind string) model.EventType {
	switch kind {
	case "reading", "discussion":
		return model.EventReading
	case "quiz":
		return model.EventQuiz
	default:
		return model.EventImportantDate
	}
}

func assignmentDescription(a extract.Assignment) string {
	if desc := a.Description.String(); desc != "" {
		return desc
	}
	kind := a.Kind.String()
	if kind == "" {
		kind = "Assignment"
	}
	return fmt.Sprintf("%s: %s", kind, a.Title)
}

func examDescription(e extract.Exam) string {
	var parts []string
	if cov := e.Coverage.String(); cov != "" {
		parts = append(parts, cov)
	}
	if w := e.Weight.Float(); w != nil {
		parts = append(parts, fmt.Sprintf("(%g%% of grade)", *w))
	}
	return strings.Join(parts, " ")
}
