// Package codec serializes the page identity for clients: as a web app
// manifest for install prompts, and as JSON or YAML for inspection.
package codec

import (
	"io"
	"time"

	"homescreen/internal/domain"
)

// Document is everything a codec may export
type Document struct {
	Page       domain.PageConfig
	RetryDelay time.Duration
	StartURL   string
}

// Exporter interface for exporting identity data to various formats
type Exporter interface {
	Export(doc Document, w io.Writer) error
	Format() string
	ContentType() string
}

// identityView is the flat shape shared by the JSON and YAML codecs
type identityView struct {
	Title        string `json:"title" yaml:"title"`
	IconURL      string `json:"icon_url" yaml:"icon_url"`
	Layout       string `json:"layout" yaml:"layout"`
	RetryDelayMs int64  `json:"retry_delay_ms" yaml:"retry_delay_ms"`
}

func newIdentityView(doc Document) identityView {
	return identityView{
		Title:        doc.Page.Identity.Title(),
		IconURL:      doc.Page.Identity.IconURL(),
		Layout:       string(doc.Page.Layout),
		RetryDelayMs: doc.RetryDelay.Milliseconds(),
	}
}
