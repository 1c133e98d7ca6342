package spa

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rr-brian/rts-ai/internal/config"
)

func serve(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestServeBuildIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build", "index.html"), "<html><head></head><body>build</body></html>")
	h := NewHandler(config.SPAConfig{StaticDir: filepath.Join(dir, "build"), FallbackHTML: filepath.Join(dir, "public", "index.html")}, "/api/config")

	for _, target := range []string{"/", "/index.html", "/legal", "/deep/client/route"} {
		rec := serve(t, h, target)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		body := rec.Body.String()
		assert.Contains(t, body, "build", target)
		assert.Contains(t, body, `fetch("/api/config"`, target)
		assert.Equal(t, 1, strings.Count(body, "<script>"), target)
		assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/html"))
	}
}

func TestServeStaticAsset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.html"), "<head></head>")
	writeFile(t, filepath.Join(dir, "static", "js", "main.js"), "console.log(1)")
	h := NewHandler(config.SPAConfig{StaticDir: dir}, "/api/config")

	rec := serve(t, h, "/static/js/main.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())
}

func TestServeRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "secret.txt"), "top secret")
	writeFile(t, filepath.Join(dir, "build", "index.html"), "<head></head>app")
	h := NewHandler(config.SPAConfig{StaticDir: filepath.Join(dir, "build")}, "/api/config")

	rec := serve(t, h, "/../secret.txt")
	assert.NotContains(t, rec.Body.String(), "top secret")
	assert.Contains(t, rec.Body.String(), "app")
}

func TestServeFallbackDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "public", "index.html"), "<html><head></head><body>public</body></html>")
	h := NewHandler(config.SPAConfig{StaticDir: filepath.Join(dir, "build"), FallbackHTML: filepath.Join(dir, "public", "index.html")}, "/api/config")

	rec := serve(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "public")
	assert.Contains(t, rec.Body.String(), ConfigGlobal)
}

func TestServePlaceholder(t *testing.T) {
	dir := t.TempDir()
	h := NewHandler(config.SPAConfig{StaticDir: filepath.Join(dir, "build"), FallbackHTML: filepath.Join(dir, "none.html")}, "/api/config")

	rec := serve(t, h, "/anything")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<div id="root">`)
	assert.Contains(t, rec.Body.String(), ConfigGlobal)
}

func TestServePlaceholderStatus(t *testing.T) {
	h := NewHandler(config.SPAConfig{StaticDir: t.TempDir(), PlaceholderStatus: http.StatusServiceUnavailable}, "/api/config")

	rec := serve(t, h, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeUnreadableEntryDocument(t *testing.T) {
	dir := t.TempDir()
	// A directory named index.html cannot be read as a file.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "index.html"), 0o755))
	h := NewHandler(config.SPAConfig{StaticDir: dir}, "/api/config")

	rec := serve(t, h, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
