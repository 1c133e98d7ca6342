package spa

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rr-brian/rts-ai/internal/apperr"
	"github.com/rr-brian/rts-ai/internal/config"
	"github.com/rr-brian/rts-ai/internal/logger"
)

// Handler serves static assets and the injected entry document.
type Handler struct {
	staticDir         string
	fallbackHTML      string
	placeholderStatus int
	script            string
}

// NewHandler creates a new entry document handler.
func NewHandler(cfg config.SPAConfig, configPath string) *Handler {
	status := cfg.PlaceholderStatus
	if status == 0 {
		status = http.StatusOK
	}
	return &Handler{
		staticDir:         cfg.StaticDir,
		fallbackHTML:      cfg.FallbackHTML,
		placeholderStatus: status,
		script:            BootstrapScript(configPath),
	}
}

// RegisterRoutes mounts the catch-all GET route. API routes must be
// registered on e as well; echo prefers them by specificity.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/*", h.Serve)
}

// Serve answers a non-API GET.
func (h *Handler) Serve(c echo.Context) error {
	clean := path.Clean("/" + c.Request().URL.Path)
	if clean != "/" && clean != "/index.html" {
		if file, ok := h.staticFile(clean); ok {
			return c.File(file)
		}
	}

	doc, status, err := h.entryDocument()
	if err != nil {
		logger.L.Error("entry document unreadable", "error", err.Error())
		return apperr.Internal("failed to load application", err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return c.HTMLBlob(status, Inject(doc, h.script))
}

// staticFile maps a cleaned URL path to a regular file under the static root.
func (h *Handler) staticFile(urlPath string) (string, bool) {
	if h.staticDir == "" {
		return "", false
	}
	root, err := filepath.Abs(h.staticDir)
	if err != nil {
		return "", false
	}
	full := filepath.Join(root, filepath.FromSlash(urlPath))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return full, true
}

// entryDocument resolves build index, then the fallback document, then the
// synthesized placeholder.
func (h *Handler) entryDocument() ([]byte, int, error) {
	var candidates []string
	if h.staticDir != "" {
		candidates = append(candidates, filepath.Join(h.staticDir, "index.html"))
	}
	if h.fallbackHTML != "" {
		candidates = append(candidates, h.fallbackHTML)
	}
	for _, p := range candidates {
		doc, err := os.ReadFile(p)
		if err == nil {
			return doc, http.StatusOK, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, 0, err
		}
	}
	return []byte(Placeholder), h.placeholderStatus, nil
}
