package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/anugulalokeshreddy-code/deepfake/internal/client"
	"github.com/anugulalokeshreddy-code/deepfake/internal/config"
	"github.com/anugulalokeshreddy-code/deepfake/internal/dashboard"
	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
	"github.com/anugulalokeshreddy-code/deepfake/internal/session"
	"github.com/anugulalokeshreddy-code/deepfake/internal/storage"
	"github.com/anugulalokeshreddy-code/deepfake/internal/testutil"
	"github.com/anugulalokeshreddy-code/deepfake/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testEnv struct {
	backend  *testutil.Backend
	sessions *session.Manager
	dash     *dashboard.Dashboard
	e        *echo.Echo
}

// newTestEnv wires a dashboard to a fake backend. When login is true the
// dashboard's client is already signed in.
func newTestEnv(t *testing.T, login bool) *testEnv {
	t.Helper()

	b := testutil.NewBackend(t)
	c, err := client.New(b.URL())
	require.NoError(t, err)

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	sessions := session.NewManager(store, nil)

	if login {
		user, err := c.Login(context.Background(), models.Credentials{
			Username: testutil.DefaultUsername,
			Password: testutil.DefaultPassword,
		})
		require.NoError(t, err)
		require.NoError(t, sessions.SetUser(*user))
	}

	d := dashboard.New(c, upload.NewManager(nil, nil), sessions, dashboard.Options{BannerDelay: time.Minute})
	t.Cleanup(d.Close)

	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(false)
	return &testEnv{backend: b, sessions: sessions, dash: d, e: e}
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	if name != "" {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		part.Write(data)
	} else {
		require.NoError(t, writer.WriteField(field, string(data)))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func apiErrorOf(t *testing.T, err error) *APIError {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %T: %v", err, err)
	return apiErr
}

func TestHealthHandler(t *testing.T) {
	e := echo.New()
	h := NewHealthHandler("1.2.3", "http://backend", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, h.HandleHealth(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
		assert.Contains(t, rec.Body.String(), `"version":"1.2.3"`)
		assert.Contains(t, rec.Body.String(), `"liveClients":0`)
	}
}

func TestHandleUpload_Success(t *testing.T) {
	env := newTestEnv(t, true)
	h := NewUploadHandler(env.dash)

	body, contentType := multipartBody(t, "file", "cat.png", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)

	require.NoError(t, h.HandleUpload(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, upload.StateSucceeded, resp.Task.State)
	assert.Equal(t, "cat.png", resp.Task.FileName)
	assert.Equal(t, dashboard.TitleReal, resp.View.Result.Title)
	assert.Equal(t, "93.00%", resp.View.Result.ConfidenceText)

	uploads := env.backend.Requests(http.MethodPost, "/api/detection/upload")
	require.Len(t, uploads, 1)
	assert.Equal(t, "image/png", uploads[0].FileType)
	assert.Equal(t, 1, env.backend.Count(http.MethodGet, "/api/detection/history"))

	// the finished task can be looked up
	rec = httptest.NewRecorder()
	c = env.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(resp.Task.ID)
	require.NoError(t, h.HandleGetUpload(c))
	assert.Contains(t, rec.Body.String(), `"state":"succeeded"`)
}

func TestHandleUpload_DroppedFileUnderOtherField(t *testing.T) {
	env := newTestEnv(t, true)
	h := NewUploadHandler(env.dash)

	body, contentType := multipartBody(t, "dropped", "drop.png", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	require.NoError(t, h.HandleUpload(env.e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.backend.Count(http.MethodPost, "/api/detection/upload"))
}

func TestHandleUpload_NoFileIsNoop(t *testing.T) {
	env := newTestEnv(t, true)
	h := NewUploadHandler(env.dash)
	before := env.backend.TotalRequests()

	body, contentType := multipartBody(t, "note", "", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	require.NoError(t, h.HandleUpload(env.e.NewContext(req, rec)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, before, env.backend.TotalRequests())
}

func TestHandleUpload_Rejected(t *testing.T) {
	env := newTestEnv(t, true)
	h := NewUploadHandler(env.dash)
	before := env.backend.TotalRequests()

	body, contentType := multipartBody(t, "file", "doc.pdf", []byte("%PDF-1.4 not an image"))
	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	apiErr := apiErrorOf(t, h.HandleUpload(env.e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, upload.MsgInvalidType, apiErr.Message)
	assert.Equal(t, before, env.backend.TotalRequests())
	assert.Equal(t, upload.MsgInvalidType, env.dash.View().Upload.Text)
}

func TestHandleUpload_BackendError(t *testing.T) {
	env := newTestEnv(t, true)
	h := NewUploadHandler(env.dash)
	env.backend.Respond(http.MethodPost, "/api/detection/upload", http.StatusBadRequest, `{"error":"bad format"}`)

	body, contentType := multipartBody(t, "file", "cat.png", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	apiErr := apiErrorOf(t, h.HandleUpload(env.e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "BACKEND_ERROR", apiErr.Code)
	assert.Equal(t, "bad format", apiErr.Message)
	assert.Equal(t, "bad format", env.dash.View().Upload.Text)
	assert.Equal(t, 0, env.backend.Count(http.MethodGet, "/api/detection/history"))
}

func TestHandleCancelUpload_Idle(t *testing.T) {
	env := newTestEnv(t, true)
	h := NewUploadHandler(env.dash)

	rec := httptest.NewRecorder()
	c := env.e.NewContext(httptest.NewRequest(http.MethodPost, "/api/dashboard/upload/cancel", nil), rec)
	require.NoError(t, h.HandleCancelUpload(c))
	assert.JSONEq(t, `{"canceled":false}`, rec.Body.String())
}

func TestHandleSwitchTab(t *testing.T) {
	env := newTestEnv(t, true)
	h := NewDashboardHandler(env.dash)

	rec := httptest.NewRecorder()
	c := env.e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("name")
	c.SetParamValues("bogus")
	apiErr := apiErrorOf(t, h.HandleSwitchTab(c))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	rec = httptest.NewRecorder()
	c = env.e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("name")
	c.SetParamValues(dashboard.TabStats)
	require.NoError(t, h.HandleSwitchTab(c))
	assert.Contains(t, rec.Body.String(), `"activeTab":"stats"`)
	assert.Equal(t, 1, env.backend.Count(http.MethodGet, "/api/detection/stats"))
}

func TestHandleHistoryMsgpack(t *testing.T) {
	env := newTestEnv(t, true)
	env.backend.Seed(models.Detection{Filename: "a.png", Prediction: models.PredictionReal, Confidence: 0.9})
	require.NoError(t, env.dash.RefreshHistory(context.Background()))
	h := NewDashboardHandler(env.dash)

	rec := httptest.NewRecorder()
	c := env.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, h.HandleHistoryMsgpack(c))
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var decoded struct {
		Items []struct {
			Filename       string `msgpack:"filename"`
			ConfidenceText string `msgpack:"confidenceText"`
		} `msgpack:"items"`
		Empty bool `msgpack:"empty"`
	}
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, "a.png", decoded.Items[0].Filename)
	assert.Equal(t, "90.00%", decoded.Items[0].ConfidenceText)
	assert.False(t, decoded.Empty)
}

func TestHandleDetections(t *testing.T) {
	env := newTestEnv(t, true)
	env.backend.Seed(models.Detection{Filename: "a.png", Prediction: models.PredictionDeepfake, Confidence: 0.7})
	id := env.backend.Detections()[0].ID
	h := NewDashboardHandler(env.dash)

	rec := httptest.NewRecorder()
	c := env.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.HandleGetDetection(c))
	assert.Contains(t, rec.Body.String(), `"filename":"a.png"`)

	rec = httptest.NewRecorder()
	c = env.e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.HandleDeleteDetection(c))

	var view models.DashboardView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Detection deleted successfully", view.History.Message.Text)
	assert.True(t, view.History.Empty)
	assert.Equal(t, 0, view.Stats.TotalDetections)

	rec = httptest.NewRecorder()
	c = env.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")
	apiErr := apiErrorOf(t, h.HandleGetDetection(c))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Detection not found", apiErr.Message)
}

func TestHandleLogin(t *testing.T) {
	env := newTestEnv(t, false)
	h := NewAuthHandler(env.dash)

	post := func(body string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodPost, "/api/dashboard/login", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		return rec, h.HandleLogin(env.e.NewContext(req, rec))
	}

	_, err := post(`{"username":"alice"}`)
	assert.Equal(t, "VALIDATION_ERROR", apiErrorOf(t, err).Code)

	_, err = post(`{"username":"alice","password":"wrong"}`)
	apiErr := apiErrorOf(t, err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid username or password", apiErr.Message)

	rec, err := post(`{"username":"alice","password":"Secret123"}`)
	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), `"redirect":"/"`)
	assert.Equal(t, "Welcome, alice!", env.dash.View().UserDisplay)
	assert.Equal(t, 1, env.backend.Count(http.MethodGet, "/api/detection/history"))
	assert.Equal(t, 1, env.backend.Count(http.MethodGet, "/api/detection/stats"))

	rec = httptest.NewRecorder()
	require.NoError(t, h.HandleNav(env.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.JSONEq(t, `{"login":false,"register":false,"dashboard":true,"logout":true}`, rec.Body.String())
}

func TestHandleNav_ChecksBackendSession(t *testing.T) {
	env := newTestEnv(t, false)
	// a user restored from disk, but the backend has no session for it
	require.NoError(t, env.sessions.SetUser(models.User{UserID: "1", Username: testutil.DefaultUsername}))
	require.True(t, env.sessions.Authenticated())

	h := NewAuthHandler(env.dash)
	rec := httptest.NewRecorder()
	require.NoError(t, h.HandleNav(env.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.JSONEq(t, `{"login":true,"register":true,"dashboard":false,"logout":false}`, rec.Body.String())
	assert.Equal(t, 1, env.backend.Count(http.MethodGet, "/api/auth/me"))
	assert.False(t, env.sessions.Authenticated())
}

func TestHandleRegister(t *testing.T) {
	env := newTestEnv(t, false)
	h := NewAuthHandler(env.dash)

	post := func(body string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodPost, "/api/dashboard/register", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		return rec, h.HandleRegister(env.e.NewContext(req, rec))
	}

	_, err := post(`{"username":"bob","email":"bob@example.com","password":"a","confirm_password":"b"}`)
	assert.Equal(t, "Passwords do not match", apiErrorOf(t, err).Message)

	rec, err := post(`{"username":"bob","email":"bob@example.com","password":"Password1","confirm_password":"Password1"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	_, err = post(`{"username":"bob","email":"bob@example.com","password":"Password1","confirm_password":"Password1"}`)
	apiErr := apiErrorOf(t, err)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Username already exists", apiErr.Message)
}

func TestHandleChangePassword(t *testing.T) {
	env := newTestEnv(t, true)
	h := NewAuthHandler(env.dash)

	post := func(body string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodPost, "/api/dashboard/password", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		return rec, h.HandleChangePassword(env.e.NewContext(req, rec))
	}

	_, err := post(`{"old_password":"Secret123","new_password":"abcdefgh1","confirm_password":"nope"}`)
	assert.Equal(t, dashboard.MsgPasswordMismatch, apiErrorOf(t, err).Message)

	rec, err := post(`{"old_password":"Secret123","new_password":"abcdefgh1","confirm_password":"abcdefgh1"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"success","text":"Password changed successfully"}`, rec.Body.String())
}

func TestHandleLogout(t *testing.T) {
	env := newTestEnv(t, true)
	h := NewAuthHandler(env.dash)

	rec := httptest.NewRecorder()
	require.NoError(t, h.HandleLogout(env.e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)))
	assert.JSONEq(t, `{"redirect":"/login"}`, rec.Body.String())
	assert.Empty(t, env.dash.View().UserDisplay)
}

func TestPageHandler(t *testing.T) {
	pages := fstest.MapFS{
		"index.html": {Data: []byte("<h1>Dashboard</h1>")},
		"login.html": {Data: []byte("<h1>Login</h1>")},
	}

	t.Run("unauthenticated redirects", func(t *testing.T) {
		env := newTestEnv(t, false)
		h := NewPageHandler(env.dash, pages)

		rec := httptest.NewRecorder()
		require.NoError(t, h.HandleIndex(env.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
		assert.Equal(t, 0, env.backend.Count(http.MethodGet, "/api/detection/history"))
	})

	t.Run("authenticated loads data", func(t *testing.T) {
		env := newTestEnv(t, true)
		h := NewPageHandler(env.dash, pages)

		rec := httptest.NewRecorder()
		require.NoError(t, h.HandleIndex(env.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Dashboard")
		assert.Equal(t, 1, env.backend.Count(http.MethodGet, "/api/auth/me"))
		assert.Equal(t, 1, env.backend.Count(http.MethodGet, "/api/detection/history"))
		assert.Equal(t, 1, env.backend.Count(http.MethodGet, "/api/detection/stats"))
	})

	t.Run("login page", func(t *testing.T) {
		env := newTestEnv(t, false)
		h := NewPageHandler(env.dash, pages)

		rec := httptest.NewRecorder()
		require.NoError(t, h.HandleLoginPage(env.e.NewContext(httptest.NewRequest(http.MethodGet, "/login", nil), rec)))
		assert.Contains(t, rec.Body.String(), "Login")
	})
}

func TestRoutes_ErrorResponses(t *testing.T) {
	env := newTestEnv(t, true)
	cfg := config.DefaultConfig()
	cfg.Advanced.EnableRequestLogging = false

	SetupMiddleware(env.e, cfg)
	RegisterRoutes(env.e, NewHandlers(&Dependencies{Dashboard: env.dash, Version: "test"}))

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/state", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activeTab":"upload"`)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = httptest.NewRecorder()
	env.e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/tab/bogus", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)

	rec = httptest.NewRecorder()
	env.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"HTTP_ERROR"`)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"in progress", upload.ErrInProgress, http.StatusConflict, "CONFLICT"},
		{"signed out", dashboard.ErrSessionEnded, http.StatusConflict, "CONFLICT"},
		{"no file", upload.ErrNoFile, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown tab", dashboard.ErrUnknownTab, http.StatusNotFound, "NOT_FOUND"},
		{"validation", client.NewValidationError("nope"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"application", &client.Error{Kind: client.KindApplication, Status: http.StatusUnauthorized, Message: "Not authenticated"}, http.StatusUnauthorized, "BACKEND_ERROR"},
		{"transport", &client.Error{Kind: client.KindTransport, Message: "Upload failed: refused", Err: errors.New("refused")}, http.StatusBadGateway, "BACKEND_UNREACHABLE"},
		{"canceled", &client.Error{Kind: client.KindTransport, Message: "Upload failed: canceled", Err: context.Canceled}, http.StatusConflict, "CANCELED"},
		{"timeout", &client.Error{Kind: client.KindTransport, Message: "Upload failed: deadline", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "BACKEND_TIMEOUT"},
		{"api error", NewConflictError("x"), http.StatusConflict, "CONFLICT"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromError(tt.err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestErrorHandler_HidesInternalDetails(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewErrorHandler(false)(errors.New("secret path /etc"), c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	NewErrorHandler(true)(errors.New("secret path /etc"), c)
	assert.Contains(t, rec.Body.String(), "secret")
}
