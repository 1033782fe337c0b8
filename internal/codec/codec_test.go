package codec

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"homescreen/internal/domain"
)

func testDocument() Document {
	return Document{
		Page:       domain.NewPageConfig(domain.DefaultPageIdentity(), domain.LayoutWide),
		RetryDelay: 2 * time.Second,
	}
}

func TestManifestCodec(t *testing.T) {
	c := NewManifestCodec()

	var buf bytes.Buffer
	if err := c.Export(testDocument(), &buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var m Manifest
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}

	if m.Name != domain.DefaultTitle || m.ShortName != domain.DefaultTitle {
		t.Errorf("expected name and short_name %q, got %q / %q", domain.DefaultTitle, m.Name, m.ShortName)
	}
	if m.StartURL != "/" {
		t.Errorf("expected start_url /, got %q", m.StartURL)
	}
	if m.Display != "standalone" {
		t.Errorf("expected standalone display, got %q", m.Display)
	}
	if len(m.Icons) != 1 {
		t.Fatalf("expected 1 icon, got %d", len(m.Icons))
	}
	if m.Icons[0].Src != domain.DefaultIconURL {
		t.Errorf("expected icon src %q, got %q", domain.DefaultIconURL, m.Icons[0].Src)
	}
	if m.Icons[0].Type != "image/png" {
		t.Errorf("expected image/png, got %q", m.Icons[0].Type)
	}
}

func TestManifestCustomStartURL(t *testing.T) {
	doc := testDocument()
	doc.StartURL = "/app/"
	if got := NewManifestCodec().Build(doc).StartURL; got != "/app/" {
		t.Errorf("expected /app/, got %q", got)
	}
}

func TestIconType(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"https://example.com/a.png", "image/png"},
		{"https://example.com/a.PNG?v=2", "image/png"},
		{"/static/icon.svg", "image/svg+xml"},
		{"/favicon.ico", "image/x-icon"},
		{"/photo.jpeg", "image/jpeg"},
		{"/icon.webp", "image/webp"},
		{"https://example.com/icon", ""},
	}

	for _, tt := range tests {
		if got := iconType(tt.ref); got != tt.want {
			t.Errorf("iconType(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestJSONCodec(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONCodec().Export(testDocument(), &buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["title"] != domain.DefaultTitle {
		t.Errorf("unexpected title %v", got["title"])
	}
	if got["layout"] != "wide" {
		t.Errorf("unexpected layout %v", got["layout"])
	}
	if got["retry_delay_ms"] != float64(2000) {
		t.Errorf("unexpected retry delay %v", got["retry_delay_ms"])
	}
}

func TestYAMLCodec(t *testing.T) {
	var buf bytes.Buffer
	if err := NewYAMLCodec().Export(testDocument(), &buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(buf.String(), "icon_url: https://cdn-icons-png.flaticon.com/512/2933/2933116.png") {
		t.Errorf("unexpected YAML: %s", buf.String())
	}

	var got identityView
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if got.Title != domain.DefaultTitle || got.RetryDelayMs != 2000 {
		t.Errorf("unexpected view %+v", got)
	}
}

func TestExportersDeclareFormats(t *testing.T) {
	exporters := []Exporter{NewJSONCodec(), NewYAMLCodec(), NewManifestCodec()}
	seen := make(map[string]bool)
	for _, e := range exporters {
		if e.Format() == "" || e.ContentType() == "" {
			t.Errorf("%T must declare format and content type", e)
		}
		if seen[e.Format()] {
			t.Errorf("duplicate format %q", e.Format())
		}
		seen[e.Format()] = true
	}
}
