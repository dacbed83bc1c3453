package staging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/docextract/internal/apperr"
	"github.com/nikhilbhutani/docextract/internal/models"
)

const (
	MIMEPDF = "application/pdf"

	msgInvalidType = "Invalid file type. Only PDF and image files are allowed."
)

// File is an upload copied to local storage for the duration of one request.
// Whoever holds it last must call Remove; Remove deletes at most once.
type File struct {
	Path         string
	OriginalName string
	MIMEType     string
	Size         int64
	DeclaredType models.DocumentType

	once      sync.Once
	removeErr error
	removed   bool
	mu        sync.Mutex
}

// Remove deletes the staged file. Only the first call touches the
// filesystem; later calls return the first result.
func (f *File) Remove() error {
	f.once.Do(func() {
		err := os.Remove(f.Path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			f.removeErr = fmt.Errorf("remove staged file: %w", err)
		}
		f.mu.Lock()
		f.removed = true
		f.mu.Unlock()
	})
	return f.removeErr
}

func (f *File) Removed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removed
}

// Stager writes uploads into a private directory under collision-free names.
type Stager struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

func NewStager(dir string, maxBytes int64, logger *slog.Logger) (*Stager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir %q: %w", dir, err)
	}
	return &Stager{dir: abs, maxBytes: maxBytes, logger: logger}, nil
}

func (s *Stager) Dir() string     { return s.dir }
func (s *Stager) MaxBytes() int64 { return s.maxBytes }

// Accepts is the staging allow-list: PDF or any image type.
func Accepts(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt == MIMEPDF || strings.HasPrefix(mt, "image/")
}

// Stage copies src into the staging directory. Rejected or failed copies
// leave nothing behind.
func (s *Stager) Stage(src io.Reader, originalName, mimeType string, docType models.DocumentType) (*File, error) {
	if !Accepts(mimeType) {
		return nil, apperr.InvalidInput(msgInvalidType)
	}

	name := uuid.NewString() + safeExt(originalName)
	path := filepath.Join(s.dir, name)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, "stage upload", err)
	}

	f := &File{
		Path:         path,
		OriginalName: originalName,
		MIMEType:     mimeType,
		DeclaredType: docType,
	}

	var reader io.Reader = src
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	n, copyErr := io.Copy(out, reader)
	closeErr := out.Close()

	switch {
	case copyErr != nil:
		_ = f.Remove()
		return nil, apperr.New(apperr.KindInternal, "stage upload", copyErr)
	case closeErr != nil:
		_ = f.Remove()
		return nil, apperr.New(apperr.KindInternal, "stage upload", closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		_ = f.Remove()
		return nil, apperr.InvalidInput(fmt.Sprintf("File too large. Maximum size is %d bytes.", s.maxBytes))
	}

	f.Size = n
	s.logger.Debug("staging.stored", "path", path, "mime", mimeType, "bytes", n, "type", docType)
	return f, nil
}

// safeExt keeps a short alphanumeric extension so the OCR tool can sniff
// the format from the name.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
