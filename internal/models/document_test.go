package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentType(t *testing.T) {
	got, err := ParseDocumentType(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, DocumentPDF, got)

	got, err = ParseDocumentType("image")
	require.NoError(t, err)
	assert.Equal(t, "image", got.String())

	_, err = ParseDocumentType("docx")
	assert.Error(t, err)
}

func TestStructuredResultMarshal(t *testing.T) {
	obj := ObjectResult(json.RawMessage(`{"z":"1","a":"2"}`))
	out, err := json.Marshal(UploadResponse{ExtractedText: obj})
	require.NoError(t, err)
	assert.Equal(t, `{"extractedText":{"z":"1","a":"2"}}`, string(out))

	fb := FallbackResult("raw", "reply")
	assert.True(t, fb.IsFallback())
	out, err = json.Marshal(fb)
	require.NoError(t, err)
	assert.Equal(t, `{"raw_text":"raw","structured_data":"reply","error":"Response was not in JSON format"}`, string(out))

	out, err = json.Marshal(StructuredResult{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestEnvelopeOmitsEmptyFields(t *testing.T) {
	out, err := json.Marshal(Envelope{Error: "Image processing failed", Details: "OCR failed: x"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":false,"error":"Image processing failed","details":"OCR failed: x"}`, string(out))
}
