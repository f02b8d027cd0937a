package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/writeitgreat/proposal-eval/internal/models"
	"github.com/writeitgreat/proposal-eval/internal/pipeline"
	"github.com/writeitgreat/proposal-eval/internal/repository"
	"github.com/writeitgreat/proposal-eval/internal/storage"
	"github.com/writeitgreat/proposal-eval/internal/utils"
)

type SubmissionHandler struct {
	repo        repository.Repository
	storage     storage.Storage
	pipeline    *pipeline.Pipeline
	logger      *utils.Logger
	maxFileSize int64
}

func NewSubmissionHandler(repo repository.Repository, store storage.Storage, pipe *pipeline.Pipeline, maxFileSize int64, logger *utils.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		repo:        repo,
		storage:     store,
		pipeline:    pipe,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// CreateSubmission accepts a new proposal, stores the raw document, creates
// the RECEIVED row, and launches the evaluation pipeline in the background.
func (h *SubmissionHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxFileSize {
		h.respondError(w, utils.NewBadRequestError("File size exceeds the upload limit"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			h.respondError(w, utils.NewBadRequestError("File size exceeds the upload limit"))
			return
		}
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}

	authorName := strings.TrimSpace(r.FormValue("author_name"))
	authorEmail := strings.TrimSpace(r.FormValue("author_email"))
	bookTitle := strings.TrimSpace(r.FormValue("book_title"))
	submissionType := models.SubmissionType(strings.ToUpper(strings.TrimSpace(r.FormValue("submission_type"))))
	if submissionType == "" {
		submissionType = models.TypeFull
	}

	if authorName == "" || bookTitle == "" {
		h.respondError(w, utils.NewBadRequestError("author_name and book_title are required"))
		return
	}
	if _, err := mail.ParseAddress(authorEmail); err != nil {
		h.respondError(w, utils.NewBadRequestError("author_email is not a valid email address"))
		return
	}
	if !submissionType.Valid() {
		h.respondError(w, utils.NewBadRequestError("submission_type must be FULL, MARKETING_ONLY, or NO_MARKETING"))
		return
	}

	file, header, err := r.FormFile("proposal_file")
	if err != nil {
		h.respondError(w, utils.NewBadRequestError("No file provided"))
		return
	}
	defer file.Close()

	format, contentType, ok := formatFromFilename(header.Filename)
	if !ok {
		h.respondError(w, utils.NewBadRequestError("Only PDF and DOCX files are accepted"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.respondError(w, utils.NewInternalError("Failed to read file"))
		return
	}
	if int64(len(data)) > h.maxFileSize {
		h.respondError(w, utils.NewBadRequestError("File size exceeds the upload limit"))
		return
	}
	if len(data) == 0 {
		h.respondError(w, utils.NewBadRequestError("Uploaded file is empty"))
		return
	}

	now := time.Now().UTC()
	id := utils.GenerateSubmissionID(now)
	key := storage.DocumentKey(id, header.Filename)

	if err := h.storage.Upload(r.Context(), key, data, contentType); err != nil {
		h.logger.Error("Failed to store document", "error", err, "key", key)
		h.respondError(w, utils.NewInternalError("Failed to store document"))
		return
	}

	sub := &models.Submission{
		ID:             id,
		AuthorName:     authorName,
		AuthorEmail:    authorEmail,
		BookTitle:      bookTitle,
		SubmissionType: submissionType,
		DeclaredFormat: format,
		DocumentKey:    key,
		State:          models.StateReceived,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.repo.Create(r.Context(), sub); err != nil {
		h.logger.Error("Failed to create submission", "error", err, "submission_id", id)
		_ = h.storage.Delete(r.Context(), key)
		h.respondError(w, utils.NewInternalError("Failed to create submission"))
		return
	}

	h.logger.Info("Submission accepted",
		"submission_id", id,
		"book_title", bookTitle,
		"submission_type", submissionType,
		"declared_format", format,
		"file_size", len(data))

	h.pipeline.Start(id)

	h.respondJSON(w, http.StatusAccepted, models.SubmissionAccepted{SubmissionID: id})
}

// GetStatus reports the last committed lifecycle state. It only reads; it is
// safe to poll arbitrarily often while a pipeline run is in flight.
func (h *SubmissionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	sub, err := h.loadSubmission(w, r)
	if sub == nil || err != nil {
		return
	}

	h.respondJSON(w, http.StatusOK, models.StatusFor(sub))
}

// GetReport returns the renderer-ready report record for a completed
// submission.
func (h *SubmissionHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	sub, err := h.loadSubmission(w, r)
	if sub == nil || err != nil {
		return
	}

	switch sub.State {
	case models.StateComplete:
	case models.StateFailed:
		h.respondError(w, utils.NewConflictError("Submission failed evaluation; no report is available"))
		return
	default:
		h.respondError(w, utils.NewNotFoundError("Report not ready yet"))
		return
	}

	rec, err := h.repo.GetReport(r.Context(), sub.ID)
	if err != nil {
		h.logger.Error("Failed to load report", "error", err, "submission_id", sub.ID)
		h.respondError(w, utils.NewInternalError("Failed to load report"))
		return
	}

	h.respondJSON(w, http.StatusOK, rec)
}

// RetrySubmission is the operator-triggered retry of a FAILED submission.
func (h *SubmissionHandler) RetrySubmission(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Submission ID is required"))
		return
	}

	if err := h.pipeline.BeginRetry(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			h.respondError(w, utils.NewConflictError("Submission is not in a retriable state"))
			return
		}
		h.logger.Error("Failed to retry submission", "error", err, "submission_id", id)
		h.respondError(w, utils.NewInternalError("Failed to retry submission"))
		return
	}

	h.respondJSON(w, http.StatusAccepted, models.SubmissionAccepted{SubmissionID: id})
}

func (h *SubmissionHandler) loadSubmission(w http.ResponseWriter, r *http.Request) (*models.Submission, error) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Submission ID is required"))
		return nil, nil
	}

	sub, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get submission", "error", err, "submission_id", id)
		h.respondError(w, utils.NewInternalError("Failed to retrieve submission"))
		return nil, err
	}
	if sub == nil {
		h.respondError(w, utils.NewNotFoundError("Submission not found"))
		return nil, nil
	}

	return sub, nil
}

// formatFromFilename maps a filename extension onto a declared format and its
// MIME type.
func formatFromFilename(filename string) (models.DocumentFormat, string, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return models.FormatPDF, "application/pdf", true
	case ".docx":
		return models.FormatDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true
	}
	return "", "", false
}

func (h *SubmissionHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *SubmissionHandler) respondError(w http.ResponseWriter, err error) {
	var status int
	var message string

	switch e := err.(type) {
	case *utils.AppError:
		status = e.StatusCode
		message = e.Message
	default:
		status = http.StatusInternalServerError
		message = "Internal server error"
	}

	h.logger.Error("Request error", "status", status, "error", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
