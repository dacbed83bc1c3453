// Package display interprets upload responses for a human reader.
package display

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nikhilbhutani/docextract/internal/models"
)

const MaxFileBytes = 10 << 20

var (
	ErrFileTooLarge = errors.New("File size exceeds 10MB limit")
	ErrFileType     = errors.New("Only JPG, JPEG, PNG AND PDF files are allowed")
)

const (
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	EndpointImage = "upload-image"
	EndpointPDF   = "upload-scanned-pdf"
	EndpointDocx  = "upload-docx"
)

var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/jpg":       true,
	"application/pdf": true,
}

// ValidateFile is the client-side pre-check. The server enforces its own limits.
func ValidateFile(size int64, mimeType string) error {
	if size > MaxFileBytes {
		return ErrFileTooLarge
	}
	if !allowedTypes[mimeType] {
		return ErrFileType
	}
	return nil
}

// EndpointFor picks the upload route for a MIME type. The docx route has
// no server implementation.
func EndpointFor(mimeType string) string {
	switch mimeType {
	case "application/pdf":
		return EndpointPDF
	case MIMEDocx:
		return EndpointDocx
	default:
		return EndpointImage
	}
}

// ResolveText picks the text to display from a response body, trying in
// order: a string at extractedText, a string at raw_text, a string at
// extractedText.raw_text, and otherwise the serialized JSON.
func ResolveText(body []byte) string {
	if r := gjson.GetBytes(body, "extractedText"); r.Type == gjson.String {
		return r.Str
	}
	if r := gjson.GetBytes(body, "raw_text"); r.Type == gjson.String {
		return r.Str
	}
	if r := gjson.GetBytes(body, "extractedText.raw_text"); r.Type == gjson.String {
		return r.Str
	}
	for _, key := range []string{"extractedText", "raw_text"} {
		if r := gjson.GetBytes(body, key); truthy(r) {
			return compact(r.Raw)
		}
	}
	return compact(string(body))
}

// IsFallback reports whether body carries the fallback envelope.
func IsFallback(body []byte) bool {
	for _, path := range []string{"extractedText.error", "data.error"} {
		if gjson.GetBytes(body, path).Str == models.FallbackErrorMarker {
			return true
		}
	}
	return false
}

// ErrorMessage pulls the server's message from a failed response.
func ErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return "Failed to process document"
	}
	for _, key := range []string{"error", "details"} {
		if r := gjson.GetBytes(body, key); truthy(r) {
			return r.String()
		}
	}
	return "Failed to process document"
}

// Row is one field/value pair in display order.
type Row struct {
	Field string
	Value string
}

// View is what gets rendered: structured rows, or the raw text when the
// resolved text is not a JSON object or array.
type View struct {
	Structured bool
	List       []Row // value as-is for strings, JSON otherwise
	Table      []Row // like List, with one pair of outer quotes trimmed from strings
	Raw        string
}

// Interpret parses text for display. A single-key object whose value is an
// object or array is unwrapped to that value first.
func Interpret(text string) View {
	if !gjson.Valid(text) {
		return View{Raw: text}
	}
	root := gjson.Parse(text)
	if !root.IsObject() && !root.IsArray() {
		return View{Raw: text}
	}

	var only gjson.Result
	n := 0
	root.ForEach(func(_, value gjson.Result) bool {
		n++
		only = value
		return n < 2
	})
	if n == 1 && (only.IsObject() || only.IsArray()) {
		root = only
	}

	v := View{Structured: true, Raw: text}
	index := 0
	root.ForEach(func(key, value gjson.Result) bool {
		field := strconv.Itoa(index)
		if root.IsObject() {
			field = strings.ReplaceAll(key.Str, `"`, "")
		}
		index++

		listVal, tableVal := compact(value.Raw), compact(value.Raw)
		if value.Type == gjson.String {
			listVal = value.Str
			tableVal = trimOuterQuotes(value.Str)
		}
		v.List = append(v.List, Row{Field: field, Value: listVal})
		v.Table = append(v.Table, Row{Field: field, Value: tableVal})
		return true
	})
	return v
}

func trimOuterQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON, gjson.True:
		return true
	}
	return false
}

func compact(raw string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return raw
	}
	return buf.String()
}
