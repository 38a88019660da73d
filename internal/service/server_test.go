// File: internal/service/server_test.go
package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hireflow/autoapply/internal/config"
	"github.com/hireflow/autoapply/internal/session"
	"github.com/hireflow/autoapply/internal/statuscheck"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *session.Store) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	logger := zaptest.NewLogger(t)
	store := session.NewStore(cfg, logger)
	return NewServer(cfg, logger, store), store
}

func doRequest(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStartValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing session_id", `{"url":"https://example.com","autofill_data":{"user":{}}}`, "session_id"},
		{"missing url", `{"session_id":"s1","autofill_data":{"user":{}}}`, "url"},
		{"missing autofill data", `{"session_id":"s1","url":"https://example.com"}`, "autofill_data"},
		{"malformed json", `{not json`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/api/automation/start", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestStartDuplicateSession(t *testing.T) {
	srv, store := newTestServer(t, nil)
	_, err := store.Create("dup", nil)
	require.NoError(t, err)

	body := `{"session_id":"dup","url":"https://example.com/job","autofill_data":{"user":{"email":"a@b.c"}}}`
	rec := doRequest(srv, http.MethodPost, "/api/automation/start", body, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	srv, store := newTestServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/api/automation/status/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	sess, err := store.Create("s1", nil)
	require.NoError(t, err)
	sess.SetStatus(session.StatusFillingForms)
	sess.AppendError("sample failure")

	rec = doRequest(srv, http.MethodGet, "/api/automation/status/s1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "s1", body["session_id"])
	assert.Equal(t, string(session.StatusFillingForms), body["status"])
	assert.Len(t, body["errors"], 1)
}

func TestCloseEndpoint(t *testing.T) {
	srv, store := newTestServer(t, nil)
	_, err := store.Create("s1", nil)
	require.NoError(t, err)

	rec := doRequest(srv, http.MethodPost, "/api/automation/close/s1", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, store.Count())

	// Closing again is a 404, not a crash.
	rec = doRequest(srv, http.MethodPost, "/api/automation/close/s1", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.AuthToken = "sekrit"
	})

	// No token.
	rec := doRequest(srv, http.MethodGet, "/api/automation/status/x", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong token.
	rec = doRequest(srv, http.MethodGet, "/api/automation/status/x", "", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Right token reaches the handler (which 404s on the unknown session).
	rec = doRequest(srv, http.MethodGet, "/api/automation/status/x", "", "sekrit")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndCheckStatusAreUnauthenticated(t *testing.T) {
	srv, store := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.AuthToken = "sekrit"
	})
	_, err := store.Create("s1", nil)
	require.NoError(t, err)

	rec := doRequest(srv, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["active_sessions"])

	// Validation runs before any browser work, so no token and no Chrome
	// are needed to exercise it.
	rec = doRequest(srv, http.MethodPost, "/api/automation/check-status", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckStatusResponseOmitsAbsentEvidence(t *testing.T) {
	// Screenshot capture is best effort; a body without one must not carry an
	// empty screenshot_base64 key.
	body, err := json.Marshal(checkStatusResponse{Success: true, Result: statuscheck.Result{
		Status:     statuscheck.StatusInReview,
		CurrentURL: "https://example.com/application",
	}})
	require.NoError(t, err)
	assert.NotContains(t, string(body), "screenshot_base64")
	assert.NotContains(t, string(body), "matched_keyword")
	assert.Contains(t, string(body), `"status":"in_review"`)
	assert.Contains(t, string(body), `"success":true`)

	body, err = json.Marshal(checkStatusResponse{Success: true, Result: statuscheck.Result{
		Status:           statuscheck.StatusRejected,
		MatchedKeyword:   "unfortunately",
		CurrentURL:       "https://example.com/application",
		ScreenshotBase64: "aGk=",
	}})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"screenshot_base64":"aGk="`)
	assert.Contains(t, string(body), `"matched_keyword":"unfortunately"`)
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.RatePerMinute = 1
		cfg.Server.RateBurst = 2
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := doRequest(srv, http.MethodGet, "/api/automation/status/x", "", "")
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, codes)
}

func TestPrincipalKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "addr:10.1.2.3", principalKey(req))

	req.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "token:abc", principalKey(req))
}
