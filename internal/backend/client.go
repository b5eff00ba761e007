// SPDX-License-Identifier: MIT

// Package backend is the REST client for the voxhire coordination API.
//
// The client makes exactly one attempt per call. Setup pipeline steps are
// never retried here; callers that want retries (the gateway's status
// updates, the status reconciler) run their own loops on top.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxhire/voxhire/internal/telemetry"
	"github.com/voxhire/voxhire/internal/types"
)

// Client talks to the voxhire backend API.
type Client struct {
	baseURL   string
	http      *http.Client
	apiToken  string
	userAgent string
}

// Options configures the backend client.
type Options struct {
	Timeout               time.Duration
	ResponseHeaderTimeout time.Duration
	UserAgent             string
	APIToken              string
}

const (
	defaultTimeout           = 60 * time.Second
	defaultRespHeaderTimeout = 30 * time.Second
	defaultUserAgent         = "voxhire-client"
	maxResponseBytes         = 32 << 20
)

// New creates a backend client with default options.
func New(baseURL string) *Client {
	return NewWithOptions(baseURL, Options{})
}

// NewWithOptions creates a backend client with explicit options.
func NewWithOptions(baseURL string, opts Options) *Client {
	opts = normalizeOptions(opts)
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		TLSHandshakeTimeout:   5 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		apiToken:  opts.APIToken,
		userAgent: opts.UserAgent,
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ResponseHeaderTimeout <= 0 {
		opts.ResponseHeaderTimeout = defaultRespHeaderTimeout
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	return opts
}

// Upload sends the job description and resume for text extraction.
func (c *Client) Upload(ctx context.Context, jd, resume Document) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, part := range []struct {
		field string
		doc   Document
	}{
		{"jd_file", jd},
		{"resume_file", resume},
	} {
		fw, err := mw.CreateFormFile(part.field, part.doc.Filename)
		if err != nil {
			return nil, fmt.Errorf("build multipart %s: %w", part.field, err)
		}
		if _, err := fw.Write(part.doc.Content); err != nil {
			return nil, fmt.Errorf("write multipart %s: %w", part.field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	var out UploadResult
	if _, err := c.call(ctx, "upload", http.MethodPost, "/api/upload", buf.Bytes(), mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze asks the backend for a match analysis of the extracted texts.
func (c *Client) Analyze(ctx context.Context, jdText, resumeText string) (*Analysis, error) {
	req := map[string]string{"jd_text": jdText, "resume_text": resumeText}
	var out struct {
		Analysis Analysis `json:"analysis"`
	}
	if _, err := c.callJSON(ctx, "analyze", http.MethodPost, "/api/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out.Analysis, nil
}

// GenerateQuestions asks for numQuestions ordered interview questions.
func (c *Client) GenerateQuestions(ctx context.Context, jdText, resumeText string, numQuestions int) ([]Question, error) {
	req := map[string]any{
		"jd_text":       jdText,
		"resume_text":   resumeText,
		"num_questions": numQuestions,
	}
	var out struct {
		Questions []Question `json:"questions"`
	}
	if _, err := c.callJSON(ctx, "generate-questions", http.MethodPost, "/api/generate-questions", req, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// CreateSession persists the session and mints the join credential.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionDescriptor, error) {
	var out struct {
		Data SessionDescriptor `json:"data"`
	}
	if _, err := c.callJSON(ctx, "create-session", http.MethodPost, "/api/create-session", req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Session fetches the backend's current view of one session.
func (c *Client) Session(ctx context.Context, id string) (*SessionInfo, error) {
	var out struct {
		Session SessionInfo `json:"session"`
	}
	if _, err := c.callJSON(ctx, "get-session", http.MethodGet, "/api/session/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

// SessionStatus fetches just the authoritative status of one session.
func (c *Client) SessionStatus(ctx context.Context, id string) (types.SessionStatus, error) {
	info, err := c.Session(ctx, id)
	if err != nil {
		return "", err
	}
	return info.Status, nil
}

// UpdateStatus reports a status change for the session.
func (c *Client) UpdateStatus(ctx context.Context, id string, status types.SessionStatus) error {
	req := map[string]string{"status": status.String()}
	_, err := c.callJSON(ctx, "update-status", http.MethodPut, "/api/session/"+url.PathEscape(id), req, nil)
	return err
}

// Sessions lists all sessions, newest first.
func (c *Client) Sessions(ctx context.Context) ([]SessionSummary, error) {
	var out struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	if _, err := c.callJSON(ctx, "list-sessions", http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// SendReport asks the backend to email the interview report. The returned
// string is the server's outcome message.
func (c *Client) SendReport(ctx context.Context, id string) (string, error) {
	env, err := c.callJSON(ctx, "send-report", http.MethodPost, "/api/reports/"+url.PathEscape(id)+"/send", nil, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// DownloadReport fetches the rendered PDF report.
func (c *Client) DownloadReport(ctx context.Context, id string) ([]byte, error) {
	op := "download-report"
	body, status, err := c.request(ctx, op, http.MethodGet, "/api/reports/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		var env envelope
		_ = json.Unmarshal(body, &env)
		return nil, &APIError{Sentinel: sentinelFor(status), Operation: op, Status: status, Message: env.failureText()}
	}
	if len(body) == 0 {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: op, Status: status, Message: "empty report body"}
	}
	return body, nil
}

// callJSON marshals in (when non-nil), performs the call, and decodes the
// body into out (when non-nil). The envelope is returned for callers that
// need the server's message.
func (c *Client) callJSON(ctx context.Context, op, method, path string, in, out any) (envelope, error) {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return envelope{}, fmt.Errorf("marshal %s request: %w", op, err)
		}
	}
	return c.call(ctx, op, method, path, payload, "application/json", out)
}

func (c *Client) call(ctx context.Context, op, method, path string, payload []byte, contentType string, out any) (envelope, error) {
	body, status, err := c.request(ctx, op, method, path, payload, contentType)
	if err != nil {
		return envelope{}, err
	}
	return c.decode(op, status, body, out)
}

// request performs one HTTP round trip and returns the raw body. Transport
// failures are classified into the timeout/unavailable sentinels.
func (c *Client) request(ctx context.Context, op, method, path string, payload []byte, contentType string) ([]byte, int, error) {
	tracer := telemetry.Tracer("voxhire.backend")
	ctx, span := tracer.Start(ctx, "backend."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)
	defer span.End()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("build %s request: %w", op, err)
	}
	c.applyHeaders(req, contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		classified := classify(op, err)
		span.RecordError(classified)
		span.SetStatus(codes.Error, classified.Error())
		return nil, 0, classified
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		classified := classify(op, err)
		span.RecordError(classified)
		span.SetStatus(codes.Error, classified.Error())
		return nil, resp.StatusCode, classified
	}

	span.SetAttributes(telemetry.HTTPAttributes(method, path, path, resp.StatusCode)...)
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return body, resp.StatusCode, nil
}

func (c *Client) applyHeaders(req *http.Request, contentType string) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}

// decode parses the envelope, maps failure statuses and success=false to
// typed errors, then fills out from the same body.
func (c *Client) decode(op string, status int, body []byte, out any) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status != http.StatusOK {
			return env, &APIError{Sentinel: sentinelFor(status), Operation: op, Status: status}
		}
		return env, &APIError{Sentinel: ErrBadResponse, Operation: op, Status: status, Err: err}
	}

	if status != http.StatusOK {
		return env, &APIError{Sentinel: sentinelFor(status), Operation: op, Status: status, Message: env.failureText()}
	}
	if !env.Success {
		return env, &APIError{Sentinel: ErrRemote, Operation: op, Status: status, Message: env.failureText()}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return env, &APIError{Sentinel: ErrBadResponse, Operation: op, Status: status, Err: err}
		}
	}
	return env, nil
}

func sentinelFor(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrRemote
	}
}

// classify maps transport-level failures onto the sentinel taxonomy.
// Timeouts are kept distinct so the user sees "timed out" guidance rather
// than a generic transport failure.
func classify(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Sentinel: ErrTimeout, Operation: op, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &APIError{Sentinel: ErrTimeout, Operation: op, Err: err}
	default:
		return &APIError{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
}
