// backend.go - Fake detection backend for testing
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
	"github.com/google/uuid"
)

// Default credentials accepted by a new Backend.
const (
	DefaultUsername = "alice"
	DefaultPassword = "Secret123"
)

const sessionCookie = "session"

// Request is one recorded call to the fake backend.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	RequestID string
	FileName  string
	FileType  string
	FileSize  int
}

type cannedResponse struct {
	status int
	body   string
}

// Backend emulates the detection service's HTTP API in memory.
type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	requests    []Request
	detections  []models.Detection // newest first
	passwords   map[string]string
	sessions    map[string]string
	canned      map[string]cannedResponse
	result      models.DetectionResult
	requireAuth bool
	uploadGate  chan struct{}
	nextID      int
	now         func() time.Time
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t testing.TB) *Backend {
	b := &Backend{
		passwords:   map[string]string{DefaultUsername: DefaultPassword},
		sessions:    make(map[string]string),
		canned:      make(map[string]cannedResponse),
		requireAuth: true,
		result: models.DetectionResult{
			Prediction:     models.PredictionReal,
			Confidence:     0.93,
			ProcessingTime: "120ms",
		},
		now: time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/me", b.handleMe)
	mux.HandleFunc("POST /api/auth/login", b.handleLogin)
	mux.HandleFunc("POST /api/auth/register", b.handleRegister)
	mux.HandleFunc("POST /api/auth/logout", b.handleLogout)
	mux.HandleFunc("POST /api/auth/change-password", b.handleChangePassword)
	mux.HandleFunc("POST /api/detection/upload", b.handleUpload)
	mux.HandleFunc("GET /api/detection/history", b.handleHistory)
	mux.HandleFunc("GET /api/detection/details/{id}", b.handleDetails)
	mux.HandleFunc("DELETE /api/detection/delete/{id}", b.handleDelete)
	mux.HandleFunc("GET /api/detection/stats", b.handleStats)

	b.Server = httptest.NewServer(b.record(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend origin.
func (b *Backend) URL() string {
	return b.Server.URL
}

// SetRequireAuth toggles the session check on protected endpoints.
func (b *Backend) SetRequireAuth(require bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requireAuth = require
}

// SetUploadResult sets the prediction returned by subsequent uploads.
func (b *Backend) SetUploadResult(r models.DetectionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result = r
}

// Respond makes every call to method+path answer with status and a raw body
// until Reset is called.
func (b *Backend) Respond(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.canned[method+" "+path] = cannedResponse{status: status, body: body}
}

// Reset removes a canned response.
func (b *Backend) Reset(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.canned, method+" "+path)
}

// BlockUploads holds upload requests until the returned release is called.
func (b *Backend) BlockUploads() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.uploadGate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.uploadGate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// Seed adds detections as if they had been uploaded earlier, newest last.
func (b *Backend) Seed(dets ...models.Detection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range dets {
		if d.ID == "" {
			b.nextID++
			d.ID = fmt.Sprintf("det-%d", b.nextID)
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = models.Timestamp{Time: b.now()}
		}
		b.detections = append([]models.Detection{d}, b.detections...)
	}
}

// Detections returns a copy of the stored records, newest first.
func (b *Backend) Detections() []models.Detection {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Detection, len(b.detections))
	copy(out, b.detections)
	return out
}

// Requests returns recorded requests matching method and path.
func (b *Backend) Requests(method, path string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Request
	for _, r := range b.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of recorded requests matching method and path.
func (b *Backend) Count(method, path string) int {
	return len(b.Requests(method, path))
}

// TotalRequests returns the number of recorded requests.
func (b *Backend) TotalRequests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// record logs each request and serves canned responses before routing.
func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.Query(),
			RequestID: r.Header.Get("X-Request-ID"),
		}
		if r.Method == http.MethodPost && r.URL.Path == "/api/detection/upload" {
			if err := r.ParseMultipartForm(32 << 20); err == nil {
				if f, fh, err := r.FormFile("file"); err == nil {
					data, _ := io.ReadAll(f)
					f.Close()
					rec.FileName = fh.Filename
					rec.FileType = fh.Header.Get("Content-Type")
					rec.FileSize = len(data)
				}
			}
		}

		b.mu.Lock()
		b.requests = append(b.requests, rec)
		canned, ok := b.canned[r.Method+" "+r.URL.Path]
		gate := b.uploadGate
		b.mu.Unlock()

		if gate != nil && r.URL.Path == "/api/detection/upload" {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(canned.status)
			io.WriteString(w, canned.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// authorized reports whether the request carries a live session.
func (b *Backend) authorized(r *http.Request) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		if !b.requireAuth {
			return DefaultUsername, true
		}
		return "", false
	}
	user, ok := b.sessions[c.Value]
	if !ok && !b.requireAuth {
		return DefaultUsername, true
	}
	return user, ok
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authorized(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, models.User{
		UserID:    "user-" + user,
		Username:  user,
		Email:     user + "@example.com",
		CreatedAt: "2024-01-01T00:00:00",
	})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	b.mu.Lock()
	pw, ok := b.passwords[creds.Username]
	b.mu.Unlock()
	if !ok || pw != creds.Password {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token := uuid.New().String()
	b.mu.Lock()
	b.sessions[token] = creds.Username
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Login successful",
		"user_id":  "user-" + creds.Username,
		"username": creds.Username,
		"email":    creds.Username + "@example.com",
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if reg.Password != reg.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.passwords[reg.Username]; exists {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}
	b.passwords[reg.Username] = reg.Password
	writeJSON(w, http.StatusCreated, map[string]string{
		"message":  "Registration successful",
		"user_id":  "user-" + reg.Username,
		"username": reg.Username,
	})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		b.mu.Lock()
		delete(b.sessions, c.Value)
		b.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, models.Message{Message: "Logout successful"})
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := b.authorized(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var change models.PasswordChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.passwords[user] != change.OldPassword {
		writeError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}
	if change.NewPassword != change.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "New passwords do not match")
		return
	}
	if len(change.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters long")
		return
	}
	b.passwords[user] = change.NewPassword
	writeJSON(w, http.StatusOK, models.Message{Message: "Password changed successfully"})
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	// record already parsed the form
	_, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part in request")
		return
	}

	b.mu.Lock()
	b.nextID++
	result := b.result
	result.DetectionID = fmt.Sprintf("det-%d", b.nextID)
	result.Filename = fh.Filename
	result.Message = "Image classified as " + string(result.Prediction)
	b.detections = append([]models.Detection{{
		ID:             result.DetectionID,
		Filename:       fh.Filename,
		Prediction:     result.Prediction,
		Confidence:     result.Confidence,
		ProcessingTime: result.ProcessingTime,
		CreatedAt:      models.Timestamp{Time: b.now()},
	}}, b.detections...)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (b *Backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)
	if page < 1 || limit < 1 || limit > 100 {
		writeError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	b.mu.Lock()
	total := len(b.detections)
	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	items := make([]models.Detection, end-start)
	copy(items, b.detections[start:end])
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, models.HistoryPage{
		Detections:  items,
		Total:       total,
		Pages:       (total + limit - 1) / limit,
		CurrentPage: page,
	})
}

func (b *Backend) handleDetails(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id := r.PathValue("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.detections {
		if d.ID == id {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Detection not found")
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id := r.PathValue("id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, d := range b.detections {
		if d.ID == id {
			b.detections = append(b.detections[:i], b.detections[i+1:]...)
			writeJSON(w, http.StatusOK, models.Message{Message: "Detection deleted successfully"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Detection not found")
}

func (b *Backend) handleStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorized(r); !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var s models.Stats
	var sum float64
	for _, d := range b.detections {
		s.TotalDetections++
		switch d.Prediction {
		case models.PredictionReal:
			s.RealImages++
		case models.PredictionDeepfake:
			s.DeepfakeImages++
		}
		sum += d.Confidence
	}
	if s.TotalDetections > 0 {
		s.AverageConfidence = math.Round(sum/float64(s.TotalDetections)*10000) / 10000
	}
	writeJSON(w, http.StatusOK, s)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
