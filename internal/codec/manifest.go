package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// Manifest is a web app manifest
type Manifest struct {
	Name      string         `json:"name"`
	ShortName string         `json:"short_name"`
	StartURL  string         `json:"start_url"`
	Display   string         `json:"display"`
	Icons     []ManifestIcon `json:"icons"`
}

// ManifestIcon is one entry of a manifest's icon list
type ManifestIcon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes,omitempty"`
	Type    string `json:"type,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// iconSizes is declared for the single icon; touch icons are served at 512px
const iconSizes = "512x512"

// ManifestCodec exports the identity as a web app manifest
type ManifestCodec struct{}

// NewManifestCodec creates a new manifest codec
func NewManifestCodec() *ManifestCodec {
	return &ManifestCodec{}
}

// Format returns the codec format identifier
func (c *ManifestCodec) Format() string {
	return "webmanifest"
}

// ContentType returns the HTTP media type
func (c *ManifestCodec) ContentType() string {
	return "application/manifest+json"
}

// Build returns the manifest for a document
func (c *ManifestCodec) Build(doc Document) Manifest {
	startURL := doc.StartURL
	if startURL == "" {
		startURL = "/"
	}

	id := doc.Page.Identity
	return Manifest{
		Name:      id.Title(),
		ShortName: id.Title(),
		StartURL:  startURL,
		Display:   "standalone",
		Icons: []ManifestIcon{{
			Src:     id.IconURL(),
			Sizes:   iconSizes,
			Type:    iconType(id.IconURL()),
			Purpose: "any",
		}},
	}
}

// Export writes the manifest as JSON
func (c *ManifestCodec) Export(doc Document, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(c.Build(doc)); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}

// iconType infers the media type from the icon path extension
func iconType(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return "image/png"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}
