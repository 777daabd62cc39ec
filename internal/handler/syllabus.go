package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sentinelapp/sentinel/internal/auth"
	"github.com/sentinelapp/sentinel/internal/extract"
	"github.com/sentinelapp/sentinel/internal/ingest"
)

// maxUploadBytes bounds the multipart form, a little above the document
// limit so the size check in the pipeline produces the friendly error.
const maxUploadBytes = 12 << 20

type SyllabusHandler struct {
	ingest *ingest.Service
}

func NewSyllabusHandler(svc *ingest.Service) *SyllabusHandler {
	return &SyllabusHandler{ingest: svc}
}

// Upload accepts a multipart syllabus upload and runs the ingestion
// pipeline. An optional courseId form field re-ingests into an existing
// course instead of creating one.
func (h *SyllabusHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("syllabus")
	if err != nil {
		writeError(w, http.StatusBadRequest, "syllabus file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	var courseID *int64
	if raw := r.FormValue("courseId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid courseId")
			return
		}
		courseID = &id
	}

	doc := extract.Document{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     int64(len(data)),
		Data:     data,
	}

	outcome, err := h.ingest.Ingest(r.Context(), userID, courseID, doc)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

// writeIngestError maps pipeline failures onto HTTP statuses. Extraction
// failures and persistence failures read differently: the latter means the
// expensive extraction already succeeded.
func (h *SyllabusHandler) writeIngestError(w http.ResponseWriter, err error) {
	if errors.Is(err, ingest.ErrCourseNotFound) {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}

	var perr *ingest.PersistError
	if errors.As(err, &perr) {
		writeError(w, http.StatusInternalServerError,
			"your syllabus was read successfully but the results could not be saved; please try again")
		return
	}

	var eerr *extract.Error
	if errors.As(err, &eerr) {
		switch eerr.Category {
		case extract.CategoryInvalidInput:
			writeError(w, http.StatusUnprocessableEntity, eerr.Message)
		case extract.CategoryRateLimited:
			writeError(w, http.StatusTooManyRequests, "the extraction service is busy; please try again shortly")
		case extract.CategoryTimeout:
			writeError(w, http.StatusGatewayTimeout, "reading your syllabus took too long; please try again")
		case extract.CategoryMisconfigured:
			writeError(w, http.StatusServiceUnavailable, "syllabus extraction is not available right now")
		case extract.CategoryNoIdentity:
			writeError(w, http.StatusUnprocessableEntity,
				"we could not find a course name or code in this document; is it a syllabus?")
		default:
			writeError(w, http.StatusBadGateway, "we could not read your syllabus; please try again")
		}
		return
	}

	writeError(w, http.StatusInternalServerError, "failed to process syllabus")
}
