package display

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name string
		size int64
		mime string
		want error
	}{
		{"png", 1024, "image/png", nil},
		{"jpeg", 1024, "image/jpeg", nil},
		{"jpg alias", 1024, "image/jpg", nil},
		{"pdf", MaxFileBytes, "application/pdf", nil},
		{"too large", MaxFileBytes + 1, "image/png", ErrFileTooLarge},
		{"webp", 10, "image/webp", ErrFileType},
		{"docx", 10, MIMEDocx, ErrFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateFile(tt.size, tt.mime))
		})
	}
}

func TestEndpointFor(t *testing.T) {
	assert.Equal(t, EndpointPDF, EndpointFor("application/pdf"))
	assert.Equal(t, EndpointDocx, EndpointFor(MIMEDocx))
	assert.Equal(t, EndpointImage, EndpointFor("image/png"))
	assert.Equal(t, EndpointImage, EndpointFor("image/jpeg"))
}

func TestResolveText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string extractedText", `{"extractedText":"plain"}`, "plain"},
		{"top-level raw_text", `{"raw_text":"ocr words"}`, "ocr words"},
		{"fallback envelope", `{"extractedText":{"raw_text":"Name J0hn","structured_data":"x","error":"Response was not in JSON format"}}`, "Name J0hn"},
		{"object", `{"extractedText": {"Name": "John Doe", "DOB": "01/01/1990"}}`, `{"Name":"John Doe","DOB":"01/01/1990"}`},
		{"nothing known", `{"other": 1}`, `{"other":1}`},
		{"null extractedText", `{"extractedText": null, "x": true}`, `{"extractedText":null,"x":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveText([]byte(tt.body)))
		})
	}
}

func TestInterpretObject(t *testing.T) {
	v := Interpret(`{"Name":"John Doe","DOB":"01/01/1990"}`)
	require.True(t, v.Structured)
	assert.Equal(t, []Row{{"Name", "John Doe"}, {"DOB", "01/01/1990"}}, v.Table)
	assert.Equal(t, v.Table, v.List)
}

func TestInterpretUnwrapsSingleNestedObject(t *testing.T) {
	v := Interpret(`{"form":{"Account":"12","Branch":{"city":"Pune"}}}`)
	require.True(t, v.Structured)
	assert.Equal(t, []Row{{"Account", "12"}, {"Branch", `{"city":"Pune"}`}}, v.List)
}

func TestInterpretSingleScalarKeyIsNotUnwrapped(t *testing.T) {
	v := Interpret(`{"Name":"Jane"}`)
	require.True(t, v.Structured)
	assert.Equal(t, []Row{{"Name", "Jane"}}, v.List)
}

func TestInterpretQuotesAndNonStrings(t *testing.T) {
	v := Interpret(`{"\"Name\"":"\"Jane\"","Age":42,"Tags":["a","b"],"Gone":null}`)
	require.True(t, v.Structured)
	assert.Equal(t, []Row{{"Name", `"Jane"`}, {"Age", "42"}, {"Tags", `["a","b"]`}, {"Gone", "null"}}, v.List)
	assert.Equal(t, []Row{{"Name", "Jane"}, {"Age", "42"}, {"Tags", `["a","b"]`}, {"Gone", "null"}}, v.Table)
}

func TestInterpretArray(t *testing.T) {
	v := Interpret(`["x", {"a": 1}]`)
	require.True(t, v.Structured)
	assert.Equal(t, []Row{{"0", "x"}, {"1", `{"a":1}`}}, v.List)
}

func TestInterpretRawText(t *testing.T) {
	for _, text := range []string{"Name: John Doe\nDOB: 01/01/1990", `"just a string"`, "42", ""} {
		v := Interpret(text)
		assert.False(t, v.Structured, text)
		assert.Equal(t, text, v.Raw)
	}
}

func TestIsFallbackAndErrorMessage(t *testing.T) {
	assert.True(t, IsFallback([]byte(`{"extractedText":{"error":"Response was not in JSON format"}}`)))
	assert.True(t, IsFallback([]byte(`{"ok":true,"fallback":true,"data":{"error":"Response was not in JSON format"}}`)))
	assert.False(t, IsFallback([]byte(`{"extractedText":{"Name":"x"}}`)))

	assert.Equal(t, "Image processing failed", ErrorMessage([]byte(`{"error":"Image processing failed","details":"OCR failed: x"}`)))
	assert.Equal(t, "only details", ErrorMessage([]byte(`{"details":"only details"}`)))
	assert.Equal(t, "Failed to process document", ErrorMessage([]byte("404 page not found")))
}

func TestRender(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Interpret(`{"Name":"John Doe","DOB":"01/01/1990"}`), false))
	out := buf.String()

	assert.Contains(t, out, "Extracted Information")
	assert.Contains(t, out, "Name : John Doe\n")
	assert.Contains(t, out, "DOB : 01/01/1990\n")
	assert.Contains(t, out, "| Field | Value")
	assert.Equal(t, 1, strings.Count(out, "| Name  | John Doe"))
	assert.NotContains(t, out, fallbackNotice)

	buf.Reset()
	require.NoError(t, Render(&buf, Interpret("raw words"), true))
	assert.Contains(t, buf.String(), fallbackNotice)
	assert.Contains(t, buf.String(), "raw words\n")

	buf.Reset()
	RenderError(&buf, &ServerError{Status: 500, Message: "PDF processing failed"})
	assert.Contains(t, buf.String(), "PDF processing failed")
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "image/png", DetectMIME("a.PNG", nil))
	assert.Equal(t, "image/jpeg", DetectMIME("a.jpg", nil))
	assert.Equal(t, "application/pdf", DetectMIME("scan.pdf", nil))
	assert.Equal(t, "application/pdf", DetectMIME("noext", []byte("%PDF-1.4\n")))
}

func TestClientUpload(t *testing.T) {
	var gotPath, gotMIME, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		_, _ = io.Copy(io.Discard, f)
		gotMIME = hdr.Header.Get("Content-Type")
		gotName = hdr.Filename

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"extractedText":{"Name":"John Doe","DOB":"01/01/1990"}}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "sample.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG fake"), 0o600))

	out, err := NewClient(srv.URL+"/", 5*time.Second).UploadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/api/upload-image", gotPath)
	assert.Equal(t, "image/png", gotMIME)
	assert.Equal(t, "sample.png", gotName)
	assert.Equal(t, EndpointImage, out.Endpoint)
	assert.False(t, out.Fallback)
	require.True(t, out.View.Structured)
	assert.Len(t, out.View.Table, 2)
}

func TestClientUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"PDF processing failed","details":"OCR failed: bad scan"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Upload(context.Background(), "f.pdf", "application/pdf", []byte("%PDF"))
	require.Error(t, err)
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, "PDF processing failed", se.Message)
}

func TestClientUploadValidatesFirst(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", time.Second)
	_, err := c.Upload(context.Background(), "a.gif", "image/gif", []byte("GIF89a"))
	assert.Equal(t, ErrFileType, err)
}
