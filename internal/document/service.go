// Package document sequences OCR and structuring for one staged upload.
package document

import (
	"context"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/docextract/internal/models"
	"github.com/nikhilbhutani/docextract/internal/ocr"
	"github.com/nikhilbhutani/docextract/internal/staging"
	"github.com/nikhilbhutani/docextract/internal/structuring"
)

type Service struct {
	extractor  ocr.TextExtractor
	structurer structuring.Structurer
	logger     *slog.Logger
}

func NewService(extractor ocr.TextExtractor, structurer structuring.Structurer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{extractor: extractor, structurer: structurer, logger: logger}
}

// ExtractDocument runs OCR on f as docType and structures the text. The
// file is handed to the extractor, which removes it. Errors from either
// stage are returned unchanged.
func (s *Service) ExtractDocument(ctx context.Context, f *staging.File, docType models.DocumentType) (models.StructuredResult, error) {
	f.DeclaredType = docType
	start := time.Now()

	text, err := s.extractor.Extract(ctx, f)
	if err != nil {
		return models.StructuredResult{}, err
	}
	s.logger.Debug("document.ocr_done", "type", docType, "chars", len(text), "duration_ms", time.Since(start).Milliseconds())

	result, err := s.structurer.Structure(ctx, text)
	if err != nil {
		return models.StructuredResult{}, err
	}

	s.logger.Info("document.extracted",
		"type", docType,
		"fallback", result.IsFallback(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *Service) ExtractImage(ctx context.Context, f *staging.File) (models.StructuredResult, error) {
	return s.ExtractDocument(ctx, f, models.DocumentImage)
}

func (s *Service) ExtractScannedPDF(ctx context.Context, f *staging.File) (models.StructuredResult, error) {
	return s.ExtractDocument(ctx, f, models.DocumentPDF)
}
