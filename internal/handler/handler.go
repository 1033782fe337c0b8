package handler

import (
	"bytes"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/blake2b"

	"homescreen/internal/document"
	"homescreen/internal/script"
	"homescreen/internal/service"
)

// maxRewriteBody caps the HTML accepted by the rewrite endpoint
const maxRewriteBody = 4 << 20

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

// IdentityHandler serves the identity in every form the HTTP surface offers
type IdentityHandler struct {
	svc    *service.IdentityService
	logger *log.Logger
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(svc *service.IdentityService, logger *log.Logger) *IdentityHandler {
	return &IdentityHandler{svc: svc, logger: logger}
}

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Register mounts every route on mux
func (h *IdentityHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Page)
	mux.HandleFunc("GET "+service.EmbedPath, h.Embed)
	mux.HandleFunc("GET /identity.js", h.Script)
	mux.HandleFunc("GET "+service.ManifestPath, h.Manifest)

	mux.HandleFunc("GET /api/identity", h.GetIdentity)
	mux.HandleFunc("GET /api/identity.yaml", h.GetIdentityYAML)
	mux.HandleFunc("POST /api/rewrite", h.Rewrite)

	mux.HandleFunc("GET /healthz", h.Health)
}

type pageData struct {
	Title        string
	Layout       string
	DashboardURL string
}

// Page renders the host page with the identity forced onto its head
func (h *IdentityHandler) Page(w http.ResponseWriter, r *http.Request) {
	page := h.svc.Page()

	var raw bytes.Buffer
	if err := pageTemplate.Execute(&raw, pageData{
		Title:        page.Identity.Title(),
		Layout:       string(page.Layout),
		DashboardURL: h.svc.DashboardURL(),
	}); err != nil {
		h.logger.Error("Failed to render host page", "err", err)
		h.writeError(w, "Failed to render page", err.Error(), http.StatusInternalServerError)
		return
	}

	var out bytes.Buffer
	if err := h.svc.RewritePage(r.Context(), &raw, &out); err != nil {
		h.logger.Error("Failed to apply identity to host page", "err", err)
		h.writeError(w, "Failed to render page", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(out.Bytes())
}

// Embed serves the zero-height fragment that mutates its parent document
func (h *IdentityHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.WriteEmbed(&buf); err != nil {
		h.logger.Error("Failed to render embed fragment", "err", err)
		h.writeError(w, "Failed to render embed", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeCached(w, r, "text/html; charset=utf-8", buf.Bytes())
}

// Script serves the injector. ?target=self mutates the including document
// rather than its parent.
func (h *IdentityHandler) Script(w http.ResponseWriter, r *http.Request) {
	target := script.TargetParent
	if strings.EqualFold(r.URL.Query().Get("target"), "self") {
		target = script.TargetSelf
	}

	var buf bytes.Buffer
	if err := h.svc.WriteScript(&buf, target); err != nil {
		h.logger.Error("Failed to render injector", "err", err)
		h.writeError(w, "Failed to render script", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeCached(w, r, "text/javascript; charset=utf-8", buf.Bytes())
}

// Manifest serves the web app manifest
func (h *IdentityHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "webmanifest")
}

// GetIdentity returns the identity as JSON, or YAML with ?format=yaml
func (h *IdentityHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	format := "json"
	if f := r.URL.Query().Get("format"); f != "" {
		format = strings.ToLower(f)
	}
	h.export(w, r, format)
}

// GetIdentityYAML returns the identity as YAML
func (h *IdentityHandler) GetIdentityYAML(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "yaml")
}

func (h *IdentityHandler) export(w http.ResponseWriter, r *http.Request, format string) {
	exporter, err := h.svc.Exporter(format)
	if err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Export(format, &buf); err != nil {
		h.logger.Error("Failed to export identity", "format", format, "err", err)
		h.writeError(w, "Failed to export identity", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeCached(w, r, exporter.ContentType(), buf.Bytes())
}

// Rewrite applies the identity to the posted HTML document
func (h *IdentityHandler) Rewrite(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxRewriteBody)

	var out bytes.Buffer
	err := h.svc.Rewrite(r.Context(), body, &out)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.writeError(w, "Request body too large", err.Error(), http.StatusRequestEntityTooLarge)
		case errors.Is(err, document.ErrNoHead):
			h.writeError(w, "Document has no head", err.Error(), http.StatusUnprocessableEntity)
		default:
			h.writeError(w, "Invalid HTML document", err.Error(), http.StatusBadRequest)
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(out.Bytes())
}

// Health reports liveness
func (h *IdentityHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Helper methods

// writeCached writes body with a content-addressed ETag and answers matching
// If-None-Match requests with 304
func (h *IdentityHandler) writeCached(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	sum := blake2b.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

func (h *IdentityHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON", "err", err)
	}
}

func (h *IdentityHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.logger.Error("Failed to encode error response", "err", err)
	}
}
