package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/lager"
	"github.com/mrhapile/draft-data-server/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	cfg    *config.Config
	server *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	cfg := config.Defaults()
	cfg.SourceDir = filepath.Join(root, "draft")
	cfg.ReportsDir = filepath.Join(root, "reports")
	cfg.DashboardDir = filepath.Join(root, "dashboard")
	cfg.PrebuiltPath = filepath.Join(cfg.ReportsDir, "draft_data.zip")
	cfg.ScratchDir = filepath.Join(root, "scratch")

	for _, dir := range []string{cfg.ReportsDir, cfg.DashboardDir, cfg.ScratchDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	return &fixture{
		cfg:    cfg,
		server: New(cfg, lager.NewLogger("test")),
	}
}

func (f *fixture) writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	f.server.Router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func zipEntries(t *testing.T, body []byte) []string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestIndexPage(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeError(t, rec), "survey_builder_analytics.html")

	f.writeFile(t, filepath.Join(f.cfg.ReportsDir, f.cfg.IndexFile), "<html>dashboard</html>")
	rec = f.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>dashboard</html>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestDashboardFiles(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, filepath.Join(f.cfg.DashboardDir, "metrics.json"), `{"total_entries":0}`)
	f.writeFile(t, filepath.Join(f.cfg.DashboardDir, "index.html"), "<html></html>")
	f.writeFile(t, filepath.Join(f.cfg.DashboardDir, "js", "app.js"), "console.log(1)")
	f.writeFile(t, filepath.Join(filepath.Dir(f.cfg.DashboardDir), "secret.txt"), "secret")
	require.NoError(t, os.Symlink(filepath.Join(filepath.Dir(f.cfg.DashboardDir), "secret.txt"),
		filepath.Join(f.cfg.DashboardDir, "escape.txt")))
	require.NoError(t, os.Symlink(filepath.Join(f.cfg.DashboardDir, "metrics.json"),
		filepath.Join(f.cfg.DashboardDir, "latest.json")))

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{name: "json asset", target: "/dashboard/metrics.json", status: http.StatusOK, body: `{"total_entries":0}`},
		{name: "index not redirected", target: "/dashboard/index.html", status: http.StatusOK, body: "<html></html>"},
		{name: "nested asset", target: "/dashboard/js/app.js", status: http.StatusOK, body: "console.log(1)"},
		{name: "missing", target: "/dashboard/nope.css", status: http.StatusNotFound},
		{name: "directory", target: "/dashboard/js", status: http.StatusNotFound},
		{name: "traversal", target: "/dashboard/../secret.txt", status: http.StatusNotFound},
		{name: "symlink escaping root", target: "/dashboard/escape.txt", status: http.StatusNotFound},
		{name: "symlink inside root", target: "/dashboard/latest.json", status: http.StatusOK, body: `{"total_entries":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(tt.target)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			assert.NotContains(t, rec.Body.String(), "secret")
		})
	}
}

func TestPrebuiltArchive(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/draft_data.zip")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeError(t, rec), "Run 'draftzip build' to create it")

	f.writeFile(t, f.cfg.PrebuiltPath, "PK-prebuilt-bytes")
	rec = f.get("/draft_data.zip")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="eval_draft_data.zip"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK-prebuilt-bytes", rec.Body.String())
}

func TestDownloadDraftData(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, filepath.Join(f.cfg.SourceDir, "a.txt"), "alpha")
	f.writeFile(t, filepath.Join(f.cfg.SourceDir, "sub", "b.txt"), "bravo")

	rec := f.get("/download-draft-data")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="eval_draft_data.zip"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, []string{"draft/a.txt", "draft/sub/b.txt"}, zipEntries(t, rec.Body.Bytes()))

	leftovers, err := os.ReadDir(f.cfg.ScratchDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers, "scratch archive must be removed after the response")
}

func TestDownloadDraftData_Exclude(t *testing.T) {
	f := newFixture(t)
	f.cfg.Exclude = []string{".DS_Store"}
	f.writeFile(t, filepath.Join(f.cfg.SourceDir, "a.txt"), "alpha")
	f.writeFile(t, filepath.Join(f.cfg.SourceDir, ".DS_Store"), "junk")

	rec := f.get("/download-draft-data")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"draft/a.txt"}, zipEntries(t, rec.Body.Bytes()))
}

func TestDownloadDraftData_SourceMissing(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/download-draft-data")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	msg := decodeError(t, rec)
	assert.Contains(t, msg, "not found")
	assert.Contains(t, msg, f.cfg.SourceDir)
}

func TestDownloadDraftData_PackagingFailure(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, filepath.Join(f.cfg.SourceDir, "a.txt"), "alpha")

	// A regular file where the scratch directory should be makes every write fail.
	blocker := filepath.Join(t.TempDir(), "scratch-is-a-file")
	f.writeFile(t, blocker, "")
	f.cfg.ScratchDir = blocker

	rec := f.get("/download-draft-data")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeError(t, rec), "Failed to create zip: ")
}

func TestDownloadDraftData_Concurrent(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, filepath.Join(f.cfg.SourceDir, "a.txt"), "alpha")
	f.writeFile(t, filepath.Join(f.cfg.SourceDir, "sub", "b.txt"), "bravo")

	const n = 8
	var wg sync.WaitGroup
	recs := make([]*httptest.ResponseRecorder, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs[i] = f.get("/download-draft-data")
		}(i)
	}
	wg.Wait()

	for _, rec := range recs {
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"draft/a.txt", "draft/sub/b.txt"}, zipEntries(t, rec.Body.Bytes()))
	}
}

func TestMiscRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.get("/no/such/route")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decodeError(t, rec))
}

func TestSecurityAndCORSHeaders(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	f.server.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
