package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"homescreen/internal/codec"
	"homescreen/internal/document"
	"homescreen/internal/domain"
	"homescreen/internal/script"
	"homescreen/internal/sink"
)

const (
	// ManifestPath is where the web app manifest is served
	ManifestPath = "/manifest.webmanifest"
	// EmbedPath is where the injector iframe fragment is served
	EmbedPath = "/embed/identity"
)

// ErrUnknownFormat is returned for an export format no codec handles
var ErrUnknownFormat = errors.New("unknown export format")

// Options configures an IdentityService
type Options struct {
	RetryDelay   time.Duration
	DashboardURL string
	StartURL     string
}

// IdentityService provides the identity to handlers in every form they serve
type IdentityService struct {
	page      domain.PageConfig
	opts      Options
	exporters map[string]codec.Exporter
	logger    *log.Logger
}

// NewIdentityService creates a new identity service
func NewIdentityService(page domain.PageConfig, opts Options, logger *log.Logger) *IdentityService {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = sink.DefaultRetryDelay
	}
	if opts.StartURL == "" {
		opts.StartURL = "/"
	}

	exporters := make(map[string]codec.Exporter)
	for _, e := range []codec.Exporter{codec.NewManifestCodec(), codec.NewJSONCodec(), codec.NewYAMLCodec()} {
		exporters[e.Format()] = e
	}

	return &IdentityService{
		page:      page,
		opts:      opts,
		exporters: exporters,
		logger:    logger,
	}
}

// Page returns the host page configuration
func (s *IdentityService) Page() domain.PageConfig {
	return s.page
}

// Identity returns the forced identity
func (s *IdentityService) Identity() domain.PageIdentity {
	return s.page.Identity
}

// RetryDelay returns the delay before the injector's second application
func (s *IdentityService) RetryDelay() time.Duration {
	return s.opts.RetryDelay
}

// DashboardURL returns the hosted dashboard framed by the host page, if any
func (s *IdentityService) DashboardURL() string {
	return s.opts.DashboardURL
}

// WriteScript renders the injector for the given target document
func (s *IdentityService) WriteScript(w io.Writer, target script.Target) error {
	return script.Render(w, s.scriptOptions(target))
}

// WriteEmbed renders the zero-height iframe fragment that mutates its parent
func (s *IdentityService) WriteEmbed(w io.Writer) error {
	return script.RenderEmbed(w, s.scriptOptions(script.TargetParent))
}

func (s *IdentityService) scriptOptions(target script.Target) script.Options {
	return script.Options{
		Identity:   s.page.Identity,
		RetryDelay: s.opts.RetryDelay,
		Target:     target,
	}
}

// Exporter returns the codec registered for format
func (s *IdentityService) Exporter(format string) (codec.Exporter, error) {
	e, ok := s.exporters[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return e, nil
}

// Export writes the identity in the given format
func (s *IdentityService) Export(format string, w io.Writer) error {
	e, err := s.Exporter(format)
	if err != nil {
		return err
	}
	return e.Export(s.codecDocument(), w)
}

func (s *IdentityService) codecDocument() codec.Document {
	return codec.Document{
		Page:       s.page,
		RetryDelay: s.opts.RetryDelay,
		StartURL:   s.opts.StartURL,
	}
}

// Rewrite reads an HTML document, forces the identity onto its head, and
// writes the result. The favicon and manifest link are upserted alongside
// the touch icon and app title.
func (s *IdentityService) Rewrite(ctx context.Context, r io.Reader, w io.Writer) error {
	return s.rewrite(ctx, r, w, false)
}

// RewritePage is Rewrite for pages served to browsers: the injector frame is
// added too, so the identity is re-applied after the page's own scripts run.
func (s *IdentityService) RewritePage(ctx context.Context, r io.Reader, w io.Writer) error {
	return s.rewrite(ctx, r, w, true)
}

func (s *IdentityService) rewrite(ctx context.Context, r io.Reader, w io.Writer, embed bool) error {
	head, err := document.Parse(r)
	if err != nil {
		return err
	}

	if err := s.applyTo(ctx, head); err != nil {
		return err
	}
	if embed {
		if err := head.UpsertEmbedFrame(EmbedPath); err != nil {
			return fmt.Errorf("add injector frame: %w", err)
		}
	}

	return head.Render(w)
}

// applyTo forces the identity onto an already parsed document
func (s *IdentityService) applyTo(ctx context.Context, head *document.Head) error {
	if err := sink.Apply(ctx, head, s.page.Identity); err != nil {
		return fmt.Errorf("apply identity: %w", err)
	}
	if err := head.Upsert(domain.RoleIcon, s.page.Identity.IconURL()); err != nil {
		return fmt.Errorf("upsert favicon: %w", err)
	}
	if err := head.Upsert(domain.RoleManifest, ManifestPath); err != nil {
		return fmt.Errorf("upsert manifest link: %w", err)
	}

	s.logger.Debug("Identity applied to document", "title", s.page.Identity.Title())
	return nil
}
