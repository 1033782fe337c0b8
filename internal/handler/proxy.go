package handler

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"homescreen/internal/service"
)

// ProxyPrefix is where the upstream app is mounted
const ProxyPrefix = "/app/"

// maxProxiedPage caps how much of an upstream HTML response is buffered for rewriting
const maxProxiedPage = 16 << 20

// UpstreamProxy reverse-proxies a hosted dashboard and forces the identity
// onto every HTML page it returns
type UpstreamProxy struct {
	svc     *service.IdentityService
	proxy   *httputil.ReverseProxy
	logger  *log.Logger
	maxPage int64
}

// NewUpstreamProxy creates a proxy to upstream
func NewUpstreamProxy(upstream string, svc *service.IdentityService, logger *log.Logger) (*UpstreamProxy, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("upstream url %q must be http or https", upstream)
	}

	p := &UpstreamProxy{svc: svc, logger: logger, maxPage: maxProxiedPage}
	p.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			// Bodies are rewritten in the clear
			pr.Out.Header.Del("Accept-Encoding")
		},
		ModifyResponse: p.modifyResponse,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("Upstream request failed", "path", r.URL.Path, "err", err)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	}
	return p, nil
}

// Register mounts the proxy under ProxyPrefix
func (p *UpstreamProxy) Register(mux *http.ServeMux) {
	mux.Handle(ProxyPrefix, http.StripPrefix(strings.TrimSuffix(ProxyPrefix, "/"), p.proxy))
}

func (p *UpstreamProxy) modifyResponse(resp *http.Response) error {
	if !isHTML(resp.Header.Get("Content-Type")) || resp.Header.Get("Content-Encoding") != "" {
		return nil
	}
	if resp.ContentLength > p.maxPage {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, p.maxPage+1))
	if err != nil {
		resp.Body.Close()
		return fmt.Errorf("read upstream page: %w", err)
	}
	if int64(len(raw)) > p.maxPage {
		// Too large to rewrite: stream it through untouched
		p.logger.Warn("Upstream page too large to rewrite", "path", resp.Request.URL.Path, "limit", p.maxPage)
		resp.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(raw), resp.Body), resp.Body}
		return nil
	}
	resp.Body.Close()

	var out bytes.Buffer
	if err := p.svc.RewritePage(resp.Request.Context(), bytes.NewReader(raw), &out); err != nil {
		// Serve the page untouched rather than failing the request
		p.logger.Warn("Failed to rewrite upstream page", "path", resp.Request.URL.Path, "err", err)
		out.Reset()
		out.Write(raw)
	}

	resp.Body = io.NopCloser(&out)
	resp.ContentLength = int64(out.Len())
	resp.Header.Set("Content-Length", strconv.Itoa(out.Len()))
	resp.Header.Del("ETag")
	resp.Header.Del("Last-Modified")
	return nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}
