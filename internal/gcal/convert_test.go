package gcal

import (
	"strings"
	"testing"
	"time"

	"github.com/sentinelapp/sentinel/internal/model"
)

var testLoc = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return loc
}()

func TestToRemoteEventAllDay(t *testing.T) {
	tests := []struct {
		name string
		time string
	}{
		{"no time", ""},
		{"midnight sentinel", "00:00"},
		{"midnight sentinel with seconds", "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := model.Event{Type: model.EventAssignment, Title: "Essay 1", Date: "2025-10-08", Time: tt.time}
			got, err := ToRemoteEvent(e, "World History", "HIST 101", testLoc)
			if err != nil {
				t.Fatalf("convert: %v", err)
			}
			if got.Start.Date != "2025-10-08" || got.End.Date != "2025-10-08" {
				t.Errorf("start/end = %q/%q, want date-only 2025-10-08", got.Start.Date, got.End.Date)
			}
			if got.Start.DateTime != "" || got.End.DateTime != "" {
				t.Error("all-day event should not carry dateTime")
			}
		})
	}
}

func TestToRemoteEventTimedSpansOneHour(t *testing.T) {
	e := model.Event{Type: model.EventExam, Title: "Midterm", Date: "2025-10-30", Time: "10:30"}
	got, err := ToRemoteEvent(e, "Algorithms", "CS 161", testLoc)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	start, err := time.Parse(time.RFC3339, got.Start.DateTime)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	end, err := time.Parse(time.RFC3339, got.End.DateTime)
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	if got := end.Sub(start); got != time.Hour {
		t.Errorf("duration = %v, want 1h", got)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30 local", start)
	}
	if got.Start.TimeZone != "America/New_York" {
		t.Errorf("timezone = %q", got.Start.TimeZone)
	}
}

func TestToRemoteEventTimedWithSeconds(t *testing.T) {
	e := model.Event{Type: model.EventQuiz, Title: "Quiz 2", Date: "2025-11-05", Time: "14:00:00"}
	got, err := ToRemoteEvent(e, "Chemistry", "CHEM 20", testLoc)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got.Start.DateTime == "" {
		t.Fatal("expected timed event")
	}
}

func TestToRemoteEventSummaryAndDescription(t *testing.T) {
	points := 50.0
	e := model.Event{
		Type:        model.EventExam,
		Title:       "Final Exam",
		Description: "Cumulative",
		Date:        "2025-12-12",
		Coverage:    "All lectures",
		Points:      &points,
	}
	got, err := ToRemoteEvent(e, "Linear Algebra", "MATH 51", testLoc)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	if got.Summary != "📚 [MATH 51] Final Exam" {
		t.Errorf("summary = %q", got.Summary)
	}

	desc := got.Description
	for _, want := range []string{
		"Course: MATH 51 - Linear Algebra",
		"Type: Exam",
		"Details: Cumulative",
		"Points: 50",
		"Coverage: All lectures",
		"Created by Sentinel Academic Calendar",
	} {
		if !strings.Contains(desc, want) {
			t.Errorf("description missing %q:\n%s", want, desc)
		}
	}

	// Order: identity, type, details, points, coverage, footer.
	order := []string{"Course:", "Type:", "Details:", "Points:", "Coverage:", "Created by"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(desc, marker)
		if idx < 0 || idx < last {
			t.Errorf("description field %q out of order:\n%s", marker, desc)
		}
		last = idx
	}
}

func TestRemindersTypeSensitive(t *testing.T) {
	exam := model.Event{Type: model.EventExam, Title: "Midterm", Date: "2025-10-30"}
	quiz := model.Event{Type: model.EventQuiz, Title: "Quiz", Date: "2025-10-30"}

	examRemote, err := ToRemoteEvent(exam, "C", "CS 1", testLoc)
	if err != nil {
		t.Fatal(err)
	}
	quizRemote, err := ToRemoteEvent(quiz, "C", "CS 1", testLoc)
	if err != nil {
		t.Fatal(err)
	}

	if examRemote.Reminders.UseDefault {
		t.Error("reminders should not use defaults")
	}
	if got := examRemote.Reminders.Overrides[0].Minutes; got != 7*24*60 {
		t.Errorf("exam email lead = %d, want one week", got)
	}
	if got := quizRemote.Reminders.Overrides[0].Minutes; got != 24*60 {
		t.Errorf("quiz email lead = %d, want one day", got)
	}
	for _, r := range [][]Reminder{examRemote.Reminders.Overrides, quizRemote.Reminders.Overrides} {
		if len(r) != 2 || r[1].Method != "popup" || r[1].Minutes != 60 {
			t.Errorf("missing one-hour popup reminder: %+v", r)
		}
	}
}

func TestColorID(t *testing.T) {
	if got := ColorID("green"); got != "10" {
		t.Errorf("ColorID(green) = %q, want 10", got)
	}
	if got := ColorID("unknown"); got != "7" {
		t.Errorf("ColorID(unknown) = %q, want default 7", got)
	}
}
