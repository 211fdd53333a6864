package highlight

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/docsearch-service/internal/models"
)

// PagesFoundHeader carries the JSON array of pages where codes were found.
const PagesFoundHeader = "X-Pages-Found"

// Client forwards a stored PDF plus a code list to a tenant's external
// highlight service and relays back the annotated PDF.
type Client struct {
	timeout time.Duration
	logger  *logrus.Logger
}

// NewClient creates a highlight client with the given request timeout.
func NewClient(timeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{timeout: timeout, logger: logger}
}

// Highlight sends the PDF at pdfPath plus a newline-joined code list to
// the tenant's highlighter endpoint. On success the annotated PDF bytes
// are relayed verbatim together with the raw pages-found JSON array;
// transport failures map to ErrServiceUnreachable and application errors
// from the remote service to ErrService.
func (c *Client) Highlight(ctx context.Context, cfg models.HighlighterConfig, pdfPath string, codes []string) (*models.HighlightResult, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: no highlighter configured", models.ErrService)
	}

	pdf, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: document file missing: %v", models.ErrNotFound, err)
	}
	defer pdf.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("specific_codes", strings.Join(codes, "\n")); err != nil {
		return nil, fmt.Errorf("%w: building request: %v", models.ErrService, err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf_file"; filename="%s"`, filepath.Base(pdfPath)))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", models.ErrService, err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return nil, fmt.Errorf("%w: reading document file: %v", models.ErrStorage, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: building request: %v", models.ErrService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", models.ErrService, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient(cfg).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrServiceUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", models.ErrServiceUnreachable, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode == http.StatusOK && strings.Contains(contentType, "application/pdf") {
		result := &models.HighlightResult{
			PDF:        respBody,
			PagesFound: resp.Header.Get(PagesFoundHeader),
			Filename:   "extracto_" + filepath.Base(pdfPath),
		}
		c.logger.WithFields(logrus.Fields{
			"pages_found": result.PagesFound,
			"size":        len(result.PDF),
		}).Info("PDF highlighted")
		return result, nil
	}

	// Non-PDF response: surface the remote error message when the body
	// is a JSON object with an "error" field.
	message := "highlight service failed"
	var remote struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &remote); err == nil && remote.Error != "" {
		message = remote.Error
	}
	c.logger.WithFields(logrus.Fields{
		"status":       resp.StatusCode,
		"content_type": contentType,
	}).Warn("Highlight service returned an error")
	return nil, fmt.Errorf("%w: %s: %s", models.ErrService, message, string(respBody))
}

// httpClient builds a client for one call. Certificate verification is on
// unless the tenant explicitly opted into the legacy insecure mode.
func (c *Client) httpClient(cfg models.HighlighterConfig) *http.Client {
	client := &http.Client{Timeout: c.timeout}
	if cfg.InsecureSkipVerify {
		c.logger.Warn("TLS certificate verification disabled for highlight service")
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}
