package display

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ServerError is a non-2xx upload response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string { return e.Message }

// Outcome is a successful upload, resolved for display.
type Outcome struct {
	Endpoint string
	Body     []byte
	Text     string
	View     View
	Fallback bool
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// DetectMIME guesses a file's type from its extension the way a browser
// does, sniffing the leading bytes when the extension is unknown.
func DetectMIME(name string, head []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		mt, _, _ := strings.Cut(t, ";")
		return mt
	}
	mt, _, _ := strings.Cut(http.DetectContentType(head), ";")
	return mt
}

// UploadFile validates path, posts it to the matching route and resolves
// the response.
func (c *Client) UploadFile(ctx context.Context, path string) (*Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return c.Upload(ctx, filepath.Base(path), DetectMIME(path, head), data)
}

func (c *Client) Upload(ctx context.Context, filename, mimeType string, data []byte) (*Outcome, error) {
	if err := ValidateFile(int64(len(data)), mimeType); err != nil {
		return nil, err
	}

	endpoint := EndpointFor(mimeType)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{Status: resp.StatusCode, Message: ErrorMessage(respBody)}
	}

	text := ResolveText(respBody)
	return &Outcome{
		Endpoint: endpoint,
		Body:     respBody,
		Text:     text,
		View:     Interpret(text),
		Fallback: IsFallback(respBody),
	}, nil
}
