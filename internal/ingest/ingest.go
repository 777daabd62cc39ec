package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path"
	"time"

	"github.com/sentinelapp/sentinel/internal/extract"
	"github.com/sentinelapp/sentinel/internal/model"
	"github.com/sentinelapp/sentinel/internal/store"
)

// ErrCourseNotFound is returned when a re-upload targets a course the user
// does not own.
var ErrCourseNotFound = errors.New("course not found")

// PersistError marks a failure that happened after extraction succeeded, while
// writing results to the database. Callers surface it differently from
// extraction failures because the expensive work is already done.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist extraction results: %v", e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Extractor turns a syllabus document into a structured result.
type Extractor interface {
	ValidateDocument(doc extract.Document) error
	Extract(ctx context.Context, doc extract.Document) (*extract.Result, error)
}

// BlobStore archives the original uploaded document.
type BlobStore interface {
	Configured() bool
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Notifier pushes ingestion progress to the owning user's live clients.
type Notifier interface {
	Notify(userID int64, kind string, payload any)
}

// Outcome is what a completed ingestion produced.
type Outcome struct {
	Course  *model.Course `json:"course"`
	Events  []model.Event `json:"events"`
	Skipped int           `json:"skipped"`
}

// Service runs the ingestion pipeline: validate the document, extract its
// schedule, archive the original, and materialize events onto a course.
type Service struct {
	extractor Extractor
	blobs     BlobStore
	courses   *store.CourseStore
	events    *store.EventStore
	notifier  Notifier
	logger    *slog.Logger
}

func NewService(extractor Extractor, blobs BlobStore, courses *store.CourseStore, events *store.EventStore, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		extractor: extractor,
		blobs:     blobs,
		courses:   courses,
		events:    events,
		notifier:  notifier,
		logger:    logger,
	}
}

// Ingest processes one uploaded syllabus for userID. With courseID set the
// results replace the identity of an existing course; otherwise a new course
// is created from the extracted identity.
//
// Document archival is best-effort: a blob storage failure never fails the
// ingestion. Individual event inserts are isolated the same way; a bad row is
// skipped and counted, the rest still land.
func (s *Service) Ingest(ctx context.Context, userID int64, courseID *int64, doc extract.Document) (*Outcome, error) {
	if err := s.extractor.ValidateDocument(doc); err != nil {
		return nil, err
	}

	// Ownership check up front so a bad course id fails before the slow
	// extraction call, not after.
	if courseID != nil {
		existing, err := s.courses.GetByID(*courseID, userID)
		if err != nil {
			return nil, &PersistError{Err: err}
		}
		if existing == nil {
			return nil, ErrCourseNotFound
		}
	}

	s.notify(userID, "extracting", nil)

	res, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		s.notify(userID, "failed", nil)
		return nil, err
	}

	syllabusURL := s.archive(ctx, userID, doc)

	course, err := s.upsertCourse(userID, courseID, res, syllabusURL)
	if err != nil {
		s.notify(userID, "failed", nil)
		return nil, err
	}

	saved, skipped := s.saveEvents(res, course)

	if err := s.courses.SetEventsExtracted(course.ID, len(saved)); err != nil {
		s.logger.Warn("failed to record extraction count", "course_id", course.ID, "error", err)
	}
	course.EventsExtracted = len(saved)

	outcome := &Outcome{Course: course, Events: saved, Skipped: skipped}
	s.notify(userID, "complete", outcome)

	s.logger.Info("syllabus ingested",
		"user_id", userID,
		"course_id", course.ID,
		"course_code", course.CourseCode,
		"events", len(saved),
		"skipped", skipped,
	)
	return outcome, nil
}

// archive stores the original document and returns its URL, or "" when
// storage is unconfigured or the upload fails.
func (s *Service) archive(ctx context.Context, userID int64, doc extract.Document) string {
	if !s.blobs.Configured() {
		return ""
	}
	key := fmt.Sprintf("syllabi/%d/%d-%s", userID, time.Now().UnixMilli(), path.Base(doc.Name))
	url, err := s.blobs.Put(ctx, key, doc.Data, doc.MIMEType)
	if err != nil {
		s.logger.Warn("syllabus archive failed", "user_id", userID, "error", err)
		return ""
	}
	return url
}

func (s *Service) upsertCourse(userID int64, courseID *int64, res *extract.Result, syllabusURL string) (*model.Course, error) {
	id := int64(0)
	if courseID != nil {
		id = *courseID
	} else {
		color := model.CourseColors[rand.IntN(len(model.CourseColors))]
		created, err := s.courses.Create(userID, res.CourseName, res.CourseCode, res.Instructor.String(), color, res.Term.String())
		if err != nil {
			return nil, &PersistError{Err: err}
		}
		id = created.ID
	}

	course, err := s.courses.UpdateFromSyllabus(id, userID, res.CourseName, res.CourseCode, res.Instructor.String(), res.Term.String(), syllabusURL)
	if err != nil {
		return nil, &PersistError{Err: err}
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func (s *Service) saveEvents(res *extract.Result, course *model.Course) ([]model.Event, int) {
	events := Materialize(res, course.ID, course.UserID)

	saved := make([]model.Event, 0, len(events))
	skipped := 0
	for i := range events {
		e, err := s.events.Create(&events[i])
		if err != nil {
			skipped++
			s.logger.Warn("skipping event that failed to save",
				"course_id", course.ID, "title", events[i].Title, "error", err)
			continue
		}
		saved = append(saved, *e)
	}
	return saved, skipped
}

func (s *Service) notify(userID int64, stage string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(userID, "ingest_status", map[string]any{
		"stage":   stage,
		"payload": payload,
	})
}
