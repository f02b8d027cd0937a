package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/writeitgreat/proposal-eval/internal/models"
	"github.com/writeitgreat/proposal-eval/internal/utils"
)

func multipartRequest(t *testing.T, fields map[string]string, filename string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %s: %v", k, err)
		}
	}
	if filename != "" {
		f, err := w.CreateFormFile("proposal_file", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		f.Write([]byte("file contents"))
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newValidationHandler() *SubmissionHandler {
	// Validation rejections never reach storage, repository, or the
	// pipeline, so nil collaborators are fine here.
	return NewSubmissionHandler(nil, nil, nil, 1<<20, utils.NewLogger("error"))
}

func TestCreateSubmissionValidation(t *testing.T) {
	valid := map[string]string{
		"author_name":     "Jo Field",
		"author_email":    "jo@example.com",
		"book_title":      "Hive Mind",
		"submission_type": "FULL",
	}

	cases := []struct {
		name     string
		mutate   func(map[string]string)
		filename string
	}{
		{"missing author_name", func(f map[string]string) { f["author_name"] = "" }, "proposal.pdf"},
		{"missing book_title", func(f map[string]string) { f["book_title"] = "" }, "proposal.pdf"},
		{"invalid email", func(f map[string]string) { f["author_email"] = "not-an-email" }, "proposal.pdf"},
		{"invalid submission_type", func(f map[string]string) { f["submission_type"] = "PARTIAL" }, "proposal.pdf"},
		{"unsupported file type", func(map[string]string) {}, "proposal.txt"},
		{"no file", func(map[string]string) {}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := make(map[string]string, len(valid))
			for k, v := range valid {
				fields[k] = v
			}
			tc.mutate(fields)

			rec := httptest.NewRecorder()
			newValidationHandler().CreateSubmission(rec, multipartRequest(t, fields, tc.filename))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestFormatFromFilename(t *testing.T) {
	cases := []struct {
		filename string
		format   models.DocumentFormat
		ok       bool
	}{
		{"proposal.pdf", models.FormatPDF, true},
		{"Proposal.PDF", models.FormatPDF, true},
		{"proposal.docx", models.FormatDOCX, true},
		{"proposal.doc", "", false},
		{"proposal.txt", "", false},
		{"proposal", "", false},
	}

	for _, tc := range cases {
		format, _, ok := formatFromFilename(tc.filename)
		if ok != tc.ok || format != tc.format {
			t.Errorf("formatFromFilename(%q) = %v/%v, want %v/%v", tc.filename, format, ok, tc.format, tc.ok)
		}
	}
}
