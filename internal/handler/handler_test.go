package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescreen/internal/document"
	"homescreen/internal/domain"
	"homescreen/internal/service"
)

func newTestServer(t *testing.T, opts service.Options) http.Handler {
	t.Helper()
	logger := log.New(io.Discard)
	page := domain.NewPageConfig(domain.DefaultPageIdentity(), domain.LayoutWide)
	svc := service.NewIdentityService(page, opts, logger)

	mux := http.NewServeMux()
	NewIdentityHandler(svc, logger).Register(mux)
	return Chain(mux, Recover(logger), CORS, Logger(logger))
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPageCarriesIdentity(t *testing.T) {
	srv := newTestServer(t, service.Options{DashboardURL: "http://localhost:8502/"})

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	head, err := document.Parse(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultTitle, head.Title())
	for _, role := range []domain.HeadRole{domain.RoleTouchIcon, domain.RoleAppTitle, domain.RoleIcon, domain.RoleManifest} {
		assert.Equal(t, 1, head.Count(role), role.Name)
	}
	icon, _ := head.Value(domain.RoleTouchIcon)
	assert.Equal(t, domain.DefaultIconURL, icon)
}

func TestPageFramesDashboardAndInjector(t *testing.T) {
	srv := newTestServer(t, service.Options{DashboardURL: "http://localhost:8502/"})

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `src="http://localhost:8502/"`)
	assert.Contains(t, body, `src="`+service.EmbedPath+`"`)
	assert.Contains(t, body, `class="layout-wide"`)
}

func TestUnknownPathIsNotThePage(t *testing.T) {
	srv := newTestServer(t, service.Options{})

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmbedTargetsParent(t *testing.T) {
	srv := newTestServer(t, service.Options{})

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, service.EmbedPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "window.parent.document")
	assert.Contains(t, rec.Body.String(), "setTimeout(applyIdentity, 2000)")
}

func TestScriptTarget(t *testing.T) {
	srv := newTestServer(t, service.Options{})

	parent := do(t, srv, httptest.NewRequest(http.MethodGet, "/identity.js", nil))
	require.Equal(t, http.StatusOK, parent.Code)
	assert.Equal(t, "text/javascript; charset=utf-8", parent.Header().Get("Content-Type"))
	assert.Contains(t, parent.Body.String(), "window.parent.document")

	self := do(t, srv, httptest.NewRequest(http.MethodGet, "/identity.js?target=self", nil))
	require.Equal(t, http.StatusOK, self.Code)
	assert.NotContains(t, self.Body.String(), "window.parent.document")
}

func TestManifestETag(t *testing.T) {
	srv := newTestServer(t, service.Options{})

	first := do(t, srv, httptest.NewRequest(http.MethodGet, service.ManifestPath, nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "application/manifest+json", first.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", first.Header().Get("Cache-Control"))

	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var manifest map[string]any
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &manifest))
	assert.Equal(t, domain.DefaultTitle, manifest["name"])
	assert.Equal(t, "standalone", manifest["display"])

	req := httptest.NewRequest(http.MethodGet, service.ManifestPath, nil)
	req.Header.Set("If-None-Match", etag)
	second := do(t, srv, req)
	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.String())
}

func TestGetIdentity(t *testing.T) {
	srv := newTestServer(t, service.Options{})

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/identity", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Title        string `json:"title"`
		IconURL      string `json:"icon_url"`
		Layout       string `json:"layout"`
		RetryDelayMs int64  `json:"retry_delay_ms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.DefaultTitle, got.Title)
	assert.Equal(t, domain.DefaultIconURL, got.IconURL)
	assert.Equal(t, "wide", got.Layout)
	assert.Equal(t, int64(2000), got.RetryDelayMs)

	yaml := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/identity.yaml", nil))
	require.Equal(t, http.StatusOK, yaml.Code)
	assert.Equal(t, "application/x-yaml", yaml.Header().Get("Content-Type"))
	assert.Contains(t, yaml.Body.String(), "retry_delay_ms: 2000")

	bad := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/identity?format=toml", nil))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestRewrite(t *testing.T) {
	srv := newTestServer(t, service.Options{})

	src := `<html><head><title>Streamlit</title></head><body></body></html>`
	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/rewrite", strings.NewReader(src)))
	require.Equal(t, http.StatusOK, rec.Code)

	head, err := document.Parse(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTitle, head.Title())
	assert.Equal(t, 1, head.Count(domain.RoleAppTitle))
}

func TestRewriteTooLarge(t *testing.T) {
	srv := newTestServer(t, service.Options{})

	body := bytes.Repeat([]byte("a"), maxRewriteBody+1)
	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/rewrite", bytes.NewReader(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, service.Options{})

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, service.Options{})

	rec := do(t, srv, httptest.NewRequest(http.MethodOptions, "/identity.js", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	logger := log.New(io.Discard)
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recover(logger), Logger(logger))

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), nil, mark("inner"))

	do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
