// Package script renders the client-side injector.
//
// The injector runs inside a zero-height iframe and builds an identity sink
// over the parent document. It applies the identity once when loaded and once
// more after the retry delay. The same sink factory is reused by Invocation
// to drive a single sink method from outside the page (see internal/browser).
package script

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"homescreen/internal/domain"
	"homescreen/internal/sink"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Target selects which document the injector mutates
type Target string

const (
	// TargetParent mutates the document hosting the iframe the script runs in
	TargetParent Target = "parent"
	// TargetSelf mutates the document the script runs in
	TargetSelf Target = "self"
)

func (t Target) expression() string {
	if t == TargetSelf {
		return "document"
	}
	return "window.parent.document"
}

// Options configures a rendered injector
type Options struct {
	Identity   domain.PageIdentity
	RetryDelay time.Duration
	Target     Target
}

type identityJSON struct {
	Title   string `json:"title"`
	IconURL string `json:"iconUrl"`
}

type roleJSON struct {
	Element   string `json:"element"`
	KeyAttr   string `json:"keyAttr"`
	KeyValue  string `json:"keyValue"`
	ValueAttr string `json:"valueAttr"`
}

// Render writes the injector script
func Render(w io.Writer, opts Options) error {
	if opts.Identity.IsZero() {
		return fmt.Errorf("render injector: identity is required")
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = sink.DefaultRetryDelay
	}

	sinkJS, err := sinkFactory()
	if err != nil {
		return err
	}
	identity, err := json.Marshal(identityJSON{
		Title:   opts.Identity.Title(),
		IconURL: opts.Identity.IconURL(),
	})
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	data := struct {
		Identity string
		Sink     string
		Target   string
		DelayMs  int64
	}{
		Identity: string(identity),
		Sink:     sinkJS,
		Target:   opts.Target.expression(),
		DelayMs:  delay.Milliseconds(),
	}

	if err := templates.ExecuteTemplate(w, "injector.js.tmpl", data); err != nil {
		return fmt.Errorf("render injector: %w", err)
	}
	return nil
}

// RenderString renders the injector script into a string
func RenderString(opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderEmbed writes the iframe fragment page carrying the injector
func RenderEmbed(w io.Writer, opts Options) error {
	js, err := RenderString(opts)
	if err != nil {
		return err
	}
	if err := templates.ExecuteTemplate(w, "embed.html.tmpl", js); err != nil {
		return fmt.Errorf("render embed: %w", err)
	}
	return nil
}

// Method is an IdentitySink operation exposed by the client-side sink
type Method string

const (
	MethodSetTitle   Method = "setTitle"
	MethodSetIcon    Method = "setIcon"
	MethodSetAppName Method = "setAppName"
)

// Invocation returns a JavaScript expression that calls one sink method
// against the current document.
func Invocation(method Method, value string) (string, error) {
	switch method {
	case MethodSetTitle, MethodSetIcon, MethodSetAppName:
	default:
		return "", fmt.Errorf("unknown sink method %q", method)
	}

	sinkJS, err := sinkFactory()
	if err != nil {
		return "", err
	}
	arg, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode argument: %w", err)
	}
	return fmt.Sprintf("(%s)(document).%s(%s)", sinkJS, method, arg), nil
}

func sinkFactory() (string, error) {
	roles, err := json.Marshal(map[string]roleJSON{
		"touchIcon": toRoleJSON(domain.RoleTouchIcon),
		"appTitle":  toRoleJSON(domain.RoleAppTitle),
	})
	if err != nil {
		return "", fmt.Errorf("encode roles: %w", err)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "sink.js.tmpl", struct{ Roles string }{string(roles)}); err != nil {
		return "", fmt.Errorf("render sink: %w", err)
	}
	return buf.String(), nil
}

func toRoleJSON(r domain.HeadRole) roleJSON {
	return roleJSON{
		Element:   r.Element,
		KeyAttr:   r.KeyAttr,
		KeyValue:  r.KeyValue,
		ValueAttr: r.ValueAttr,
	}
}
