// Package client is a typed HTTP client for the deepfake detection backend.
// Each backend endpoint has exactly one method; failures are returned as *Error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anugulalokeshreddy-code/deepfake/internal/logging"
	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

// Backend endpoint paths.
const (
	PathMe             = "/api/auth/me"
	PathLogin          = "/api/auth/login"
	PathRegister       = "/api/auth/register"
	PathLogout         = "/api/auth/logout"
	PathChangePassword = "/api/auth/change-password"
	PathUpload         = "/api/detection/upload"
	PathHistory        = "/api/detection/history"
	PathDetails        = "/api/detection/details/"
	PathDelete         = "/api/detection/delete/"
	PathStats          = "/api/detection/stats"
)

// UploadField is the multipart field carrying the image.
const UploadField = "file"

// HeaderRequestID correlates dashboard logs with backend logs.
const HeaderRequestID = "X-Request-ID"

// maxErrorBody bounds how much of an unparseable error body is kept in Details.
const maxErrorBody = 512

// failure names the messages used when a call fails.
type failure struct {
	transport   string // prefix for transport failures
	application string // fallback when the error body has no message
}

var (
	failAuth     = failure{"Auth check failed", "Not authenticated"}
	failLogin    = failure{"Login failed", "Login failed"}
	failRegister = failure{"Registration failed", "Registration failed"}
	failLogout   = failure{"Logout failed", "Logout failed"}
	failPassword = failure{"Failed to change password", "Failed to change password"}
	failUpload   = failure{"Upload failed", "Detection failed"}
	failHistory  = failure{"Failed to load history", "Failed to load history"}
	failDetails  = failure{"Failed to load detection", "Detection not found"}
	failDelete   = failure{"Failed to delete detection", "Failed to delete detection"}
	failStats    = failure{"Failed to load statistics", "Failed to load statistics"}
)

// Client talks to the detection backend. The session cookie issued at login
// is kept in the client's cookie jar and sent on every call.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar is kept if set.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		c.http.Jar = jar
	}

	return c, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.call(ctx, http.MethodGet, PathMe, nil, "", &user, failAuth); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and stores the session cookie.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, newTransportError(failLogin.transport, err)
	}

	var user models.User
	if err := c.call(ctx, http.MethodPost, PathLogin, bytes.NewReader(body), "application/json", &user, failLogin); err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	body, err := json.Marshal(reg)
	if err != nil {
		return nil, newTransportError(failRegister.transport, err)
	}

	var user models.User
	if err := c.call(ctx, http.MethodPost, PathRegister, bytes.NewReader(body), "application/json", &user, failRegister); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, PathLogout, nil, "", nil, failLogout)
}

// ChangePassword submits a password change and returns the server's message.
func (c *Client) ChangePassword(ctx context.Context, change models.PasswordChange) (string, error) {
	body, err := json.Marshal(change)
	if err != nil {
		return "", newTransportError(failPassword.transport, err)
	}

	var msg models.Message
	if err := c.call(ctx, http.MethodPost, PathChangePassword, bytes.NewReader(body), "application/json", &msg, failPassword); err != nil {
		return "", err
	}
	return msg.Message, nil
}

// Upload sends one file for detection. It issues exactly one request.
func (c *Client) Upload(ctx context.Context, file *models.CandidateFile) (*models.DetectionResult, error) {
	body, contentType, err := encodeUpload(file)
	if err != nil {
		return nil, newTransportError(failUpload.transport, err)
	}

	var result models.DetectionResult
	if err := c.call(ctx, http.MethodPost, PathUpload, body, contentType, &result, failUpload); err != nil {
		return nil, err
	}
	return &result, nil
}

// History returns one page of the user's detections.
func (c *Client) History(ctx context.Context, page, limit int) (*models.HistoryPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var hp models.HistoryPage
	if err := c.call(ctx, http.MethodGet, PathHistory+"?"+q.Encode(), nil, "", &hp, failHistory); err != nil {
		return nil, err
	}
	return &hp, nil
}

// Details returns a single detection.
func (c *Client) Details(ctx context.Context, id string) (*models.Detection, error) {
	var d models.Detection
	if err := c.call(ctx, http.MethodGet, PathDetails+url.PathEscape(id), nil, "", &d, failDetails); err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete removes a detection and returns the server's message.
func (c *Client) Delete(ctx context.Context, id string) (string, error) {
	var msg models.Message
	if err := c.call(ctx, http.MethodDelete, PathDelete+url.PathEscape(id), nil, "", &msg, failDelete); err != nil {
		return "", err
	}
	return msg.Message, nil
}

// Stats returns the aggregate statistics.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var s models.Stats
	if err := c.call(ctx, http.MethodGet, PathStats, nil, "", &s, failStats); err != nil {
		return nil, err
	}
	return &s, nil
}

// call performs one request and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) call(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}, f failure) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return newTransportError(f.transport, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	requestID := uuid.New().String()
	req.Header.Set(HeaderRequestID, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warnf("[Client %s] %s %s failed: %v", requestID[:8], method, path, err)
		return newTransportError(f.transport, err)
	}
	defer resp.Body.Close()

	c.logger.Debugf("[Client %s] %s %s -> %d (%v)", requestID[:8], method, path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return newTransportError(f.transport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeErrorBody(resp.StatusCode, data, f.application)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newTransportError(f.transport, fmt.Errorf("invalid response: %w", err))
	}
	return nil
}

// decodeErrorBody prefers the body's "error" field, then "message", then fallback.
func decodeErrorBody(status int, data []byte, fallback string) *Error {
	e := &Error{Kind: KindApplication, Status: status, Message: fallback}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		text := strings.TrimSpace(string(data))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		e.Details = text
		return e
	}

	switch {
	case body.Error != "":
		e.Message = body.Error
		e.Details = body.Message
	case body.Message != "":
		e.Message = body.Message
	}
	return e
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeUpload builds the multipart body, keeping the file's own media type
// on the part rather than application/octet-stream.
func encodeUpload(file *models.CandidateFile) (io.Reader, string, error) {
	if file == nil {
		return nil, "", fmt.Errorf("no file")
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		UploadField, quoteEscaper.Replace(file.Name)))
	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	h.Set("Content-Type", mediaType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}
