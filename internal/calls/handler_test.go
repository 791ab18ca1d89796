package calls

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"callqa-backend/internal/shared/auth"
	"callqa-backend/internal/shared/server/middleware"
	"callqa-backend/internal/shared/storage/object"
	"callqa-backend/internal/shared/storage/object/local"
)

// presignStore fakes direct upload support for handler tests.
type presignStore struct {
	object.Store
	keys []string
}

func (s *presignStore) PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error) {
	s.keys = append(s.keys, key)
	return "https://uploads.example.com/" + bucket + "/" + key, nil
}

func newTestRouter(t *testing.T, repo Repo, store object.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _ := newTestService(t, repo, &fakeTranscriber{text: "transcript", ok: true}, &fakeScorer{})
	handler := NewHandler(svc, repo, store, "input-bucket")

	router := gin.New()
	rg := router.Group("/api/v1", middleware.Auth())
	handler.RegisterRoutes(rg)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.SignToken(1, "qa@example.com", role, 1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestCreateUploadURLReturnsPresignedURL(t *testing.T) {
	repo := NewMemoryRepo()
	store := &presignStore{}
	router := newTestRouter(t, repo, store)
	token := tokenFor(t, middleware.RoleAgent)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/calls/upload-url", token,
		`{"filename": "team/morning-call.mp3", "content_type": "audio/mpeg", "project_id": 4}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		UploadURL  string `json:"uploadUrl"`
		StorageKey string `json:"storageKey"`
		CallID     int64  `json:"callId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.StorageKey, "uploads/4/") || !strings.HasSuffix(resp.StorageKey, ".mp3") {
		t.Fatalf("storage key = %q", resp.StorageKey)
	}
	if strings.Count(resp.StorageKey, "/") != 2 {
		t.Fatalf("path separator survived sanitization: %q", resp.StorageKey)
	}
	if resp.UploadURL == "" || resp.CallID == 0 {
		t.Fatalf("response incomplete: %+v", resp)
	}

	call, err := repo.GetByID(context.Background(), resp.CallID)
	if err != nil {
		t.Fatalf("call record not created: %v", err)
	}
	if call.Status != StatusUploaded {
		t.Fatalf("status = %q, want uploaded", call.Status)
	}
}

func TestCreateUploadURLWithoutPresignSupport(t *testing.T) {
	repo := NewMemoryRepo()
	store, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	router := newTestRouter(t, repo, store)
	token := tokenFor(t, middleware.RoleAgent)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/calls/upload-url", token,
		`{"filename": "call.wav"}`)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestCreateUploadURLRequiresFilename(t *testing.T) {
	router := newTestRouter(t, NewMemoryRepo(), &presignStore{})
	token := tokenFor(t, middleware.RoleAgent)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/calls/upload-url", token, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeCallAccepted(t *testing.T) {
	repo := NewMemoryRepo()
	router := newTestRouter(t, repo, &presignStore{})
	token := tokenFor(t, middleware.RoleAgent)

	call := createUploaded(t, repo, "call.wav", time.Now().UTC())

	rec := doJSON(t, router, http.MethodPost, "/api/v1/calls/1/analyze?model=gpt-4o", token, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got, _ := repo.GetByID(context.Background(), call.ID)
	if got.Status == StatusUploaded {
		t.Fatalf("call not claimed by analyze request")
	}
}

func TestAnalyzeCallConflictWhenProcessing(t *testing.T) {
	repo := NewMemoryRepo()
	router := newTestRouter(t, repo, &presignStore{})
	token := tokenFor(t, middleware.RoleAgent)

	call := createUploaded(t, repo, "call.wav", time.Now().UTC())
	if err := repo.ClaimByID(context.Background(), call.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/calls/1/analyze", token, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestAnalyzeCallNotFound(t *testing.T) {
	router := newTestRouter(t, NewMemoryRepo(), &presignStore{})
	token := tokenFor(t, middleware.RoleAgent)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/calls/404/analyze", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProcessPendingRequiresManager(t *testing.T) {
	router := newTestRouter(t, NewMemoryRepo(), &presignStore{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/calls/process-pending", tokenFor(t, middleware.RoleAgent), "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("agent status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/calls/process-pending", tokenFor(t, middleware.RoleCompanyManager), "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("manager status = %d, want 202", rec.Code)
	}
}

func TestProcessPendingReportsClaimedCount(t *testing.T) {
	repo := NewMemoryRepo()
	router := newTestRouter(t, repo, &presignStore{})
	token := tokenFor(t, middleware.RoleCompanyManager)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		createUploaded(t, repo, "call.wav", base.Add(time.Duration(i)*time.Minute))
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/calls/process-pending?limit=2", token, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		CallsQueued int `json:"callsQueued"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CallsQueued != 2 {
		t.Fatalf("callsQueued = %d, want 2", resp.CallsQueued)
	}
}

func TestListCallsFiltersByStatus(t *testing.T) {
	repo := NewMemoryRepo()
	router := newTestRouter(t, repo, &presignStore{})
	token := tokenFor(t, middleware.RoleAgent)

	createUploaded(t, repo, "a.wav", time.Now().UTC())
	claimed := createUploaded(t, repo, "b.wav", time.Now().UTC())
	if err := repo.ClaimByID(context.Background(), claimed.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/calls?status=uploaded", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var out []Call
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 || out[0].Filename != "a.wav" {
		t.Fatalf("filtered calls = %+v", out)
	}
}

func TestGetCallReportNotFound(t *testing.T) {
	repo := NewMemoryRepo()
	router := newTestRouter(t, repo, &presignStore{})
	token := tokenFor(t, middleware.RoleAgent)

	createUploaded(t, repo, "call.wav", time.Now().UTC())

	rec := doJSON(t, router, http.MethodGet, "/api/v1/calls/1/report", token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCallRoutesRejectMissingToken(t *testing.T) {
	router := newTestRouter(t, NewMemoryRepo(), &presignStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calls", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
