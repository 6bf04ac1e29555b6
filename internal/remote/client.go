// Package remote implements the JSON/HTTP contracts of the external
// scoring, OCR, lookup and health services.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rshade/cvindex/internal/logging"
	"github.com/rshade/cvindex/internal/nutrient"
)

// Defaults for client construction.
const (
	DefaultTimeout = 15 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20

	headerRequestID = "X-Request-ID"
	headerTraceID   = "X-Trace-ID"
	userAgent       = "cvindex"

	// ocrField is the multipart field the OCR service reads the image from.
	ocrField = "image"
)

// Endpoints holds the full URL of every remote call.
type Endpoints struct {
	Score  string
	OCR    string
	Lookup string
}

// Options configures a Client.
type Options struct {
	Endpoints  Endpoints
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to the remote services. It is safe for concurrent use.
type Client struct {
	endpoints Endpoints
	http      *http.Client
	logger    zerolog.Logger
}

// NewClient creates a Client. A nil HTTPClient gets one with opts.Timeout.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoints: opts.Endpoints,
		http:      httpClient,
		logger:    logging.ComponentLogger(opts.Logger, "remote"),
	}
}

// Score asks the scorer to evaluate vector balanced on anchor.
func (c *Client) Score(ctx context.Context, vector nutrient.Vector, anchor nutrient.Anchor) (*ScoreResponse, error) {
	if !anchor.Valid() {
		return nil, fmt.Errorf("%w: %w: %q", ErrPrecondition, nutrient.ErrUnknownAnchor, anchor)
	}
	body, err := json.Marshal(NewScoreRequest(vector, anchor))
	if err != nil {
		return nil, fmt.Errorf("encoding score request: %w", err)
	}

	var resp ScoreResponse
	if err = c.do(ctx, "score", http.MethodPost, c.endpoints.Score, "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExtractLabel uploads an image for OCR.
func (c *Client) ExtractLabel(ctx context.Context, img Image) (*OCRResponse, error) {
	if img.Data == nil {
		return nil, fmt.Errorf("%w: no image data", ErrPrecondition)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	filename := img.Filename
	if filename == "" {
		filename = "capture.jpg"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, ocrField, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err = io.Copy(part, img.Data); err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if err = mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var resp OCRResponse
	if err = c.do(ctx, "ocr", http.MethodPost, c.endpoints.OCR, mw.FormDataContentType(), &buf, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Lookup asks the AI lookup service for one serving of foodName.
func (c *Client) Lookup(ctx context.Context, foodName string) (*LookupResponse, error) {
	foodName = strings.TrimSpace(foodName)
	if foodName == "" {
		return nil, fmt.Errorf("%w: food name is empty", ErrPrecondition)
	}
	body, err := json.Marshal(LookupRequest{FoodName: foodName})
	if err != nil {
		return nil, fmt.Errorf("encoding lookup request: %w", err)
	}

	var resp LookupResponse
	if err = c.do(ctx, "lookup", http.MethodPost, c.endpoints.Lookup, "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health performs a single status check against url.
func (c *Client) Health(ctx context.Context, url string) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, "health", http.MethodGet, url, "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do performs one request and decodes a 2xx JSON body into out.
func (c *Client) do(
	ctx context.Context,
	op, method, url, contentType string,
	body io.Reader,
	out any,
) error {
	if url == "" {
		return fmt.Errorf("%w: no URL configured for %s", ErrPrecondition, op)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%w: building %s request: %w", ErrTransport, op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if traceID := logging.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set(headerTraceID, traceID)
	}

	log := c.logger.With().Str("operation", op).Str("request_id", requestID).Logger()
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("request failed")
		return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %w", ErrTransport, op, err)
	}
	log.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("response received")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp.StatusCode, data)
	}

	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %w", ErrMalformed, op, err)
	}
	return nil
}

// decodeError turns a non-2xx body into a ValidationError or StatusError.
func decodeError(status int, data []byte) error {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return &StatusError{StatusCode: status, Detail: strings.TrimSpace(truncate(string(data)))}
	}

	var fields []FieldError
	if err := json.Unmarshal(body.Detail, &fields); err == nil && len(fields) > 0 {
		return &ValidationError{StatusCode: status, Fields: fields}
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		return &StatusError{StatusCode: status, Detail: detail}
	}
	return &StatusError{StatusCode: status, Detail: truncate(string(body.Detail))}
}

func truncate(s string) string {
	const maxDetail = 200
	if len(s) <= maxDetail {
		return s
	}
	return s[:maxDetail] + "..."
}

// IsCanceled reports whether err came from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
