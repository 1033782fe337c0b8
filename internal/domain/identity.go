package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Default identity used when no configuration overrides it
const (
	DefaultTitle   = "지름 판독기"
	DefaultIconURL = "https://cdn-icons-png.flaticon.com/512/2933/2933116.png"
)

var (
	// ErrEmptyTitle is returned when an identity is built without a title
	ErrEmptyTitle = errors.New("identity title is empty")
	// ErrInvalidIconURL is returned when the icon reference is not usable by a browser
	ErrInvalidIconURL = errors.New("identity icon URL is invalid")
)

// PageIdentity is the visual identity forced onto a hosting document.
// Values are fixed at construction and never change.
type PageIdentity struct {
	title   string
	iconURL string
}

// NewPageIdentity validates and builds an identity.
// The title is trimmed and NFC-normalized; the icon must be an absolute
// http(s) URL or a root-relative path.
func NewPageIdentity(title, iconURL string) (PageIdentity, error) {
	title = norm.NFC.String(strings.TrimSpace(title))
	if title == "" {
		return PageIdentity{}, ErrEmptyTitle
	}

	iconURL = strings.TrimSpace(iconURL)
	if err := validateIconURL(iconURL); err != nil {
		return PageIdentity{}, err
	}

	return PageIdentity{title: title, iconURL: iconURL}, nil
}

// DefaultPageIdentity returns the built-in identity
func DefaultPageIdentity() PageIdentity {
	return PageIdentity{title: DefaultTitle, iconURL: DefaultIconURL}
}

// Title returns the document title and PWA app name
func (p PageIdentity) Title() string {
	return p.title
}

// IconURL returns the touch icon reference
func (p PageIdentity) IconURL() string {
	return p.iconURL
}

// IsZero reports whether the identity was never constructed
func (p PageIdentity) IsZero() bool {
	return p.title == "" && p.iconURL == ""
}

// String implements fmt.Stringer
func (p PageIdentity) String() string {
	return fmt.Sprintf("%s <%s>", p.title, p.iconURL)
}

func validateIconURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIconURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIconURL, err)
	}

	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidIconURL, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("%w: missing host", ErrInvalidIconURL)
		}
		return nil
	}

	// Protocol-relative references ("//cdn/...") are rejected along with bare paths
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return fmt.Errorf("%w: %q is neither absolute nor root-relative", ErrInvalidIconURL, raw)
	}
	return nil
}

// Layout is the host page layout hint
type Layout string

const (
	LayoutCentered Layout = "centered"
	LayoutWide     Layout = "wide"
)

// ParseLayout converts a string to Layout, defaulting to LayoutCentered
func ParseLayout(s string) Layout {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wide":
		return LayoutWide
	default:
		return LayoutCentered
	}
}

// PageConfig is the page-level configuration handed to the host page:
// title and icon from the identity, plus a layout hint.
type PageConfig struct {
	Identity PageIdentity
	Layout   Layout
}

// NewPageConfig builds a page configuration for an identity
func NewPageConfig(identity PageIdentity, layout Layout) PageConfig {
	if layout == "" {
		layout = LayoutCentered
	}
	return PageConfig{Identity: identity, Layout: layout}
}
