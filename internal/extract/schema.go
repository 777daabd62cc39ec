package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// NullSentinel is the literal string the extraction directive tells the
// service to emit for unknown values. Downstream validation treats it the
// same as an absent field.
const NullSentinel = "null"

// flexString decodes a JSON string, number, or null into a plain string.
// The extraction service is instructed to emit nulls, but models drift and
// return bare numbers for points and weights.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(string(b))
	return nil
}

func (f flexString) String() string { return string(f) }

// Float parses the value as a number, returning nil for empty, sentinel, or
// non-numeric values.
func (f flexString) Float() *float64 {
	s := strings.TrimSpace(strings.TrimSuffix(string(f), "%"))
	if s == "" || s == NullSentinel {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Assignment is one item of the assignments array in the service response.
type Assignment struct {
	Title            string     `json:"title"`
	DueDate          flexString `json:"dueDate"`
	DueTime          flexString `json:"dueTime"`
	Description      flexString `json:"description"`
	Points           flexString `json:"points"`
	SubmissionMethod flexString `json:"submissionMethod"`
	Kind             flexString `json:"type"`
}

// Exam is one item of the exams array.
type Exam struct {
	Title    string     `json:"title"`
	Date     flexString `json:"date"`
	Time     flexString `json:"time"`
	Location flexString `json:"location"`
	Kind     flexString `json:"type"`
	Coverage flexString `json:"coverage"`
	Weight   flexString `json:"weight"`
}

// ImportantDate is one item of the importantDates array.
type ImportantDate struct {
	Event       string     `json:"event"`
	Date        flexString `json:"date"`
	Kind        flexString `json:"type"`
	Description flexString `json:"description"`
}

// Result is the validated extraction payload. It is ephemeral: only the
// events materialized from it and the course summary fields survive.
type Result struct {
	CourseName     string          `json:"courseName"`
	CourseCode     string          `json:"courseCode"`
	Instructor     flexString      `json:"instructor"`
	Term           flexString      `json:"term"`
	Assignments    []Assignment    `json:"assignments"`
	Exams          []Exam          `json:"exams"`
	ImportantDates []ImportantDate `json:"importantDates"`
}

// parseResult strips markdown fences from the raw model output, extracts the
// first well-formed JSON object, and decodes it.
func parseResult(text string) (*Result, error) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, newError(CategoryUnparsable, "no JSON object found in extraction response", nil)
	}

	var res Result
	if err := json.Unmarshal([]byte(text[start:end+1]), &res); err != nil {
		return nil, newError(CategoryUnparsable, "malformed JSON in extraction response", err)
	}

	if strings.TrimSpace(res.CourseName) == "" || strings.TrimSpace(res.CourseCode) == "" {
		return nil, newError(CategoryNoIdentity,
			"could not extract the course name or course code from the document", nil)
	}

	if res.Assignments == nil {
		res.Assignments = []Assignment{}
	}
	if res.Exams == nil {
		res.Exams = []Exam{}
	}
	if res.ImportantDates == nil {
		res.ImportantDates = []ImportantDate{}
	}
	return &res, nil
}
