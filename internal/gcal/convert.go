package gcal

import (
	"fmt"
	"strings"
	"time"

	"github.com/sentinelapp/sentinel/internal/model"
)

// provenanceFooter marks events we created so users can tell them apart from
// entries they added by hand.
const provenanceFooter = "---\nCreated by Sentinel Academic Calendar"

const defaultEventDuration = time.Hour

// typeGlyphs prefix the remote summary for quick visual scanning.
var typeGlyphs = map[model.EventType]string{
	model.EventAssignment:    "📝",
	model.EventExam:          "📚",
	model.EventQuiz:          "✏️",
	model.EventReading:       "📖",
	model.EventImportantDate: "📌",
}

// ToRemoteEvent converts a local event into the provider's event shape.
//
// Events with no time-of-day (or the midnight sentinel) become all-day
// entries keyed by date only; timed events span exactly one hour from their
// start, expressed in loc. Reminder lead time is type-sensitive: exams get a
// week, everything else a day, and every event gets a one-hour popup.
func ToRemoteEvent(e model.Event, courseName, courseCode string, loc *time.Location) (*Event, error) {
	glyph, ok := typeGlyphs[e.Type]
	if !ok {
		glyph = "📅"
	}

	out := &Event{
		Summary:     fmt.Sprintf("%s [%s] %s", glyph, courseCode, e.Title),
		Description: buildDescription(e, courseName, courseCode),
		Location:    e.Location,
		Reminders:   remindersFor(e.Type),
	}

	if isAllDay(e.Time) {
		out.Start = EventTime{Date: e.Date}
		out.End = EventTime{Date: e.Date}
		return out, nil
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", e.Date+" "+normalizeTime(e.Time), loc)
	if err != nil {
		return nil, fmt.Errorf("parse event start %q %q: %w", e.Date, e.Time, err)
	}
	end := start.Add(defaultEventDuration)

	out.Start = EventTime{DateTime: start.Format(time.RFC3339), TimeZone: loc.String()}
	out.End = EventTime{DateTime: end.Format(time.RFC3339), TimeZone: loc.String()}
	return out, nil
}

// isAllDay treats a missing time or the midnight sentinel as all-day.
func isAllDay(t string) bool {
	return t == "" || t == "00:00" || t == "00:00:00"
}

// normalizeTime trims trailing seconds so both HH:MM and HH:MM:SS parse.
func normalizeTime(t string) string {
	if len(t) == len("15:04:05") {
		return t[:len("15:04")]
	}
	return t
}

func buildDescription(e model.Event, courseName, courseCode string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Course: %s - %s\n", courseCode, courseName)
	fmt.Fprintf(&b, "Type: %s\n", titleCase(string(e.Type)))

	if e.Description != "" {
		fmt.Fprintf(&b, "\nDetails: %s\n", e.Description)
	}
	if e.Points != nil {
		fmt.Fprintf(&b, "Points: %g\n", *e.Points)
	}
	if e.Coverage != "" {
		fmt.Fprintf(&b, "Coverage: %s\n", e.Coverage)
	}

	b.WriteString("\n")
	b.WriteString(provenanceFooter)
	return b.String()
}

func titleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func remindersFor(t model.EventType) *Reminders {
	lead := 24 * 60 // 1 day
	if t == model.EventExam {
		lead = 7 * 24 * 60 // 1 week
	}
	return &Reminders{
		UseDefault: false,
		Overrides: []Reminder{
			{Method: "email", Minutes: lead},
			{Method: "popup", Minutes: 60},
		},
	}
}
