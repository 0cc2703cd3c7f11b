package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/goartstore/docvault/internal/api/handlers"
	"github.com/bigkaa/goartstore/docvault/internal/api/middleware"
	"github.com/bigkaa/goartstore/docvault/internal/api/spec"
	"github.com/bigkaa/goartstore/docvault/internal/config"
	"github.com/bigkaa/goartstore/docvault/internal/service"
	"github.com/bigkaa/goartstore/docvault/internal/storage/filestore"
)

// switchGate — шлюз с переключаемым решением.
type switchGate struct {
	allow   bool
	reasons []string
}

func (g *switchGate) Authorize(_ context.Context, reason string) bool {
	g.reasons = append(g.reasons, reason)
	return g.allow
}

type testServer struct {
	url     string
	manager *service.Manager
	gate    *switchGate
	router  chi.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	root := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			VaultDir:      filepath.Join(root, "vault"),
			StagingDir:    filepath.Join(root, "staging"),
			JournalDir:    filepath.Join(root, "journal"),
			MaxUploadSize: 1 << 20,
		},
		Lifecycle: config.LifecycleConfig{
			RelockDelay:    time.Hour,
			TrashRetention: 720 * time.Hour,
		},
	}

	store, err := filestore.New(cfg.Storage.VaultDir, cfg.Storage.StagingDir, logger)
	require.NoError(t, err)

	manager := service.NewManager(store, logger, service.WithRelockDelay(cfg.Lifecycle.RelockDelay))
	require.NoError(t, manager.Reload())
	t.Cleanup(manager.Close)

	search := service.NewSearchService(manager, 16, time.Minute)
	t.Cleanup(search.Close)

	contract, err := spec.Load(context.Background())
	require.NoError(t, err)

	gate := &switchGate{allow: true}
	h := Handlers{
		Documents: handlers.NewDocumentsHandler(
			manager,
			search,
			service.NewUploadService(manager, store, cfg.Storage.MaxUploadSize, logger),
			service.NewViewService(manager, store, logger),
			service.NewShareService(manager, store, nil, logger),
			gate,
			logger,
		),
		Trash:       handlers.NewTrashHandler(manager, logger),
		Maintenance: handlers.NewMaintenanceHandler(service.NewReconcileService(manager, store, time.Hour, logger)),
		Health:      handlers.NewHealthHandler(cfg.Storage.VaultDir, "", manager, nil),
		System:      handlers.NewSystemHandler(cfg, manager, nil, contract, logger),
	}

	router := NewRouter(logger, h, middleware.DevAuth([]string{"vault:read", "vault:write", ScopeAdmin}), gate)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{url: srv.URL, manager: manager, gate: gate, router: router}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.url+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) upload(t *testing.T, filename, content, name string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if name != "" {
		require.NoError(t, mw.WriteField("name", name))
	}
	require.NoError(t, mw.Close())

	resp := s.do(t, http.MethodPost, "/api/v1/documents", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decode(t, resp)
	detail, _ := body["error"].(map[string]any)
	code, _ := detail["code"].(string)
	return code
}

func TestUploadAndList(t *testing.T) {
	s := newTestServer(t)

	doc := s.upload(t, "scan.pdf", "%PDF-1.4", "Passport")
	assert.Equal(t, "Passport.pdf", doc["display_name"])
	assert.Equal(t, "pdf", doc["type_hint"])
	assert.Equal(t, "Passports & IDs", doc["category"])
	assert.Equal(t, "active", doc["collection"])

	s.upload(t, "notes.txt", "hello", "")

	resp := s.do(t, http.MethodGet, "/api/v1/documents", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode(t, resp)
	assert.Equal(t, float64(2), list["total"])
	items := list["items"].([]any)
	assert.Equal(t, "notes.txt", items[0].(map[string]any)["display_name"], "новые документы первыми")
}

func TestSearchAndCategoryFilter(t *testing.T) {
	s := newTestServer(t)
	s.upload(t, "a.pdf", "1", "Tax return 2025")
	s.upload(t, "b.pdf", "2", "Driver license")

	resp := s.do(t, http.MethodGet, "/api/v1/documents?q=TAX", nil, "")
	list := decode(t, resp)
	assert.Equal(t, float64(1), list["total"])

	resp = s.do(t, http.MethodGet, "/api/v1/documents?category=Driver+License", nil, "")
	list = decode(t, resp)
	assert.Equal(t, float64(1), list["total"])

	resp = s.do(t, http.MethodGet, "/api/v1/documents?category=Unknown", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRenameRequiresGate(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload(t, "cv.docx", "x", "Draft")
	id := doc["id"].(string)

	s.gate.allow = false
	resp := s.do(t, http.MethodPatch, "/api/v1/documents/"+id, strings.NewReader(`{"name":"Resume"}`), "application/json")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "AUTHORIZATION_REQUIRED", errorCode(t, resp))
	assert.Equal(t, []string{ReasonRename}, s.gate.reasons)

	s.gate.allow = true
	resp = s.do(t, http.MethodPatch, "/api/v1/documents/"+id, strings.NewReader(`{"name":"Resume"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renamed := decode(t, resp)
	assert.Equal(t, "Resume.docx", renamed["display_name"])
	assert.Equal(t, "CVs & Certificates", renamed["category"])
}

func TestRenameValidation(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload(t, "a.txt", "x", "")
	id := doc["id"].(string)

	resp := s.do(t, http.MethodPatch, "/api/v1/documents/"+id, strings.NewReader(`{"name":""}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPatch, "/api/v1/documents/"+id, strings.NewReader(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidAndUnknownID(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/v1/documents/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/documents/6f1c1d1e-3b7a-4b55-9a57-7f0f5b0ad001", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, resp))
}

func TestTrashLifecycle(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload(t, "receipt.png", "png", "Receipt")
	id := doc["id"].(string)

	resp := s.do(t, http.MethodDelete, "/api/v1/documents/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "trashed", decode(t, resp)["collection"])

	// Документ из корзины не виден среди активных
	resp = s.do(t, http.MethodGet, "/api/v1/documents/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/trash", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decode(t, resp)["total"])

	resp = s.do(t, http.MethodPost, "/api/v1/trash/"+id+"/restore", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", decode(t, resp)["collection"])

	resp = s.do(t, http.MethodDelete, "/api/v1/documents/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/api/v1/trash/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/api/v1/trash/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteForeverActiveDocument(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload(t, "a.txt", "x", "")

	resp := s.do(t, http.MethodDelete, "/api/v1/trash/"+doc["id"].(string), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTrashListingRequiresGate(t *testing.T) {
	s := newTestServer(t)
	s.gate.allow = false

	resp := s.do(t, http.MethodGet, "/api/v1/trash", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, []string{ReasonViewTrash}, s.gate.reasons)
}

func TestLockAndViewContent(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload(t, "note.txt", "secret text", "Note")
	id := doc["id"].(string)

	// Незащищённый документ отдаётся без шлюза
	s.gate.allow = false
	resp := s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/content", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, s.gate.reasons)

	s.gate.allow = true
	resp = s.do(t, http.MethodPost, "/api/v1/documents/"+id+"/lock", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["is_protected"])

	s.gate.allow = false
	s.gate.reasons = nil
	resp = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/content", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, []string{handlers.ReasonViewLocked}, s.gate.reasons)

	s.gate.allow = true
	resp = s.do(t, http.MethodGet, "/api/v1/documents/"+id+"/content", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "secret text", string(body))

	// Временная разблокировка: документ ждёт повторной блокировки
	current, _, err := s.manager.Get(id)
	require.NoError(t, err)
	assert.False(t, current.IsProtected)

	resp = s.do(t, http.MethodPost, "/api/v1/documents/"+id+"/unlock", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode(t, resp)["is_protected"])
}

func TestShareDisabled(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload(t, "a.pdf", "x", "")

	resp := s.do(t, http.MethodPost, "/api/v1/documents/"+doc["id"].(string)+"/share", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SHARE_DISABLED", errorCode(t, resp))
}

func TestReconcile(t *testing.T) {
	s := newTestServer(t)
	s.upload(t, "a.pdf", "x", "")

	resp := s.do(t, http.MethodPost, "/api/v1/maintenance/reconcile", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode(t, resp)
	summary := report["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["ok"])
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.upload(t, "a.pdf", "x", "")

	resp := s.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/info", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decode(t, resp)
	assert.Equal(t, true, info["ready"])
	assert.Equal(t, "1h0m0s", info["relock_delay"])
	assert.Equal(t, float64(1), info["documents"].(map[string]any)["active"])

	resp = s.do(t, http.MethodGet, "/api/v1/openapi.json", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "3.0.3", decode(t, resp)["openapi"])

	resp = s.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// Каждый маршрут описан в OpenAPI контракте.
func TestRoutesMatchContract(t *testing.T) {
	s := newTestServer(t)
	contract, err := spec.Load(context.Background())
	require.NoError(t, err)

	count := 0
	err = chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.ReplaceAll(route, "/*", "")
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		assert.Truef(t, spec.HasOperation(contract, method, route), "%s %s отсутствует в контракте", method, route)
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 18, count)
}
