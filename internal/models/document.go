package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DocumentType is the declared classification of an upload. It is passed
// through to the OCR tool as an opaque strategy token.
type DocumentType string

const (
	DocumentImage DocumentType = "image"
	DocumentPDF   DocumentType = "pdf"
)

func (t DocumentType) String() string { return string(t) }

func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(s))) {
	case DocumentImage:
		return DocumentImage, nil
	case DocumentPDF:
		return DocumentPDF, nil
	default:
		return "", fmt.Errorf("unknown document type %q (want image or pdf)", s)
	}
}

// FallbackErrorMarker is set on the fallback envelope when the model reply
// carried no parseable JSON object.
const FallbackErrorMarker = "Response was not in JSON format"

// FallbackEnvelope substitutes for a structured object when model output
// could not be parsed.
type FallbackEnvelope struct {
	RawText        string `json:"raw_text"`
	StructuredData string `json:"structured_data"`
	Error          string `json:"error"`
}

// StructuredResult is either a JSON object extracted from the model reply or
// a fallback envelope. Object keeps the original key order and bytes.
type StructuredResult struct {
	Object   json.RawMessage
	Fallback *FallbackEnvelope
}

func ObjectResult(obj json.RawMessage) StructuredResult {
	return StructuredResult{Object: obj}
}

func FallbackResult(rawText, reply string) StructuredResult {
	return StructuredResult{Fallback: &FallbackEnvelope{
		RawText:        rawText,
		StructuredData: reply,
		Error:          FallbackErrorMarker,
	}}
}

func (r StructuredResult) IsFallback() bool { return r.Fallback != nil }

func (r StructuredResult) MarshalJSON() ([]byte, error) {
	if r.Fallback != nil {
		return json.Marshal(r.Fallback)
	}
	if len(r.Object) == 0 {
		return []byte("null"), nil
	}
	return r.Object, nil
}

// UploadResponse is the body of a successful legacy upload.
type UploadResponse struct {
	ExtractedText StructuredResult `json:"extractedText"`
}

// ErrorResponse is the body of any failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Envelope is the normalized v2 response: ok with data, or not ok with
// error and details.
type Envelope struct {
	OK       bool              `json:"ok"`
	Data     *StructuredResult `json:"data,omitempty"`
	Fallback bool              `json:"fallback,omitempty"`
	Error    string            `json:"error,omitempty"`
	Details  string            `json:"details,omitempty"`
}
