package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/docextract/internal/apperr"
	"github.com/nikhilbhutani/docextract/internal/models"
	"github.com/nikhilbhutani/docextract/internal/staging"
	"github.com/nikhilbhutani/docextract/pkg/pdfinspect"
)

const (
	formField = "file"

	// multipart framing on top of the file itself
	formOverhead = 1 << 20
)

// Extractor is the orchestrator as seen by the upload routes.
type Extractor interface {
	ExtractDocument(ctx context.Context, f *staging.File, docType models.DocumentType) (models.StructuredResult, error)
}

type UploadHandler struct {
	stager      *staging.Stager
	svc         Extractor
	maxPDFPages int
	logger      *slog.Logger
}

func NewUploadHandler(stager *staging.Stager, svc Extractor, maxPDFPages int, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{stager: stager, svc: svc, maxPDFPages: maxPDFPages, logger: logger}
}

// failure is a response-ready error: status plus {error, details}.
type failure struct {
	status  int
	label   string
	details string
}

func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.legacy(w, r, models.DocumentImage)
}

func (h *UploadHandler) UploadScannedPDF(w http.ResponseWriter, r *http.Request) {
	h.legacy(w, r, models.DocumentPDF)
}

func (h *UploadHandler) legacy(w http.ResponseWriter, r *http.Request, docType models.DocumentType) {
	result, fail := h.process(w, r, docType)
	if fail != nil {
		writeJSON(w, fail.status, models.ErrorResponse{Error: fail.label, Details: fail.details})
		return
	}
	writeJSON(w, http.StatusOK, models.UploadResponse{ExtractedText: result})
}

// Extract serves POST /api/v2/extract/{type} with the normalized envelope.
func (h *UploadHandler) Extract(w http.ResponseWriter, r *http.Request) {
	docType, err := models.ParseDocumentType(chi.URLParam(r, "type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.Envelope{Error: "Unknown document type", Details: err.Error()})
		return
	}

	result, fail := h.process(w, r, docType)
	if fail != nil {
		writeJSON(w, fail.status, models.Envelope{Error: fail.label, Details: fail.details})
		return
	}
	writeJSON(w, http.StatusOK, models.Envelope{OK: true, Data: &result, Fallback: result.IsFallback()})
}

func (h *UploadHandler) process(w http.ResponseWriter, r *http.Request, docType models.DocumentType) (models.StructuredResult, *failure) {
	var none models.StructuredResult
	maxBytes := h.stager.MaxBytes()

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return none, badRequest(tooLargeMsg(maxBytes), "")
		}
		return none, badRequest("No file uploaded", err.Error())
	}

	file, header, err := r.FormFile(formField)
	if err != nil {
		return none, badRequest("No file uploaded", "")
	}
	defer file.Close()

	if header.Size > maxBytes {
		return none, badRequest(tooLargeMsg(maxBytes), "")
	}

	mimeType := header.Header.Get("Content-Type")
	staged, err := h.stager.Stage(file, header.Filename, mimeType, docType)
	if err != nil {
		if apperr.Is(err, apperr.KindInvalidInput) {
			return none, badRequest(err.Error(), "")
		}
		h.logger.Error("upload.stage_failed", "error", err)
		return none, &failure{status: http.StatusInternalServerError, label: processingLabel(docType), details: err.Error()}
	}
	// the extractor removes it; this covers rejections before that
	defer staged.Remove()

	if docType == models.DocumentPDF {
		if fail := h.checkPDF(staged, mimeType); fail != nil {
			if err := staged.Remove(); err != nil {
				h.logger.Warn("upload.cleanup_failed", "path", staged.Path, "error", err)
			}
			return none, fail
		}
	}

	result, err := h.svc.ExtractDocument(r.Context(), staged, docType)
	if err != nil {
		status := apperr.HTTPStatus(err)
		label := processingLabel(docType)
		if status == http.StatusBadRequest {
			label = err.Error()
		}
		h.logger.Error("upload.extract_failed", "type", docType, "kind", apperr.KindOf(err), "error", err)
		return none, &failure{status: status, label: label, details: err.Error()}
	}
	return result, nil
}

func (h *UploadHandler) checkPDF(f *staging.File, mimeType string) *failure {
	if !isPDF(mimeType) {
		return badRequest("Invalid file type. Only PDF files are allowed.", "")
	}
	if h.maxPDFPages <= 0 {
		return nil
	}
	pages, err := pdfinspect.PageCountFile(f.Path)
	if err != nil {
		h.logger.Warn("upload.pdf_inspect_failed", "path", f.Path, "error", err)
		return nil
	}
	if pages > h.maxPDFPages {
		return badRequest("PDF has too many pages", fmt.Sprintf("%d pages, limit is %d", pages, h.maxPDFPages))
	}
	return nil
}

func isPDF(mimeType string) bool {
	mt, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	return strings.TrimSpace(mt) == staging.MIMEPDF
}

func processingLabel(docType models.DocumentType) string {
	if docType == models.DocumentPDF {
		return "PDF processing failed"
	}
	return "Image processing failed"
}

func tooLargeMsg(maxBytes int64) string {
	return fmt.Sprintf("File too large. Maximum size is %d bytes.", maxBytes)
}

func badRequest(label, details string) *failure {
	return &failure{status: http.StatusBadRequest, label: label, details: details}
}
