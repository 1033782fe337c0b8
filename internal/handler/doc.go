// Package handler implements the HTTP surface of homescreen.
//
// # Pages
//
// GET / serves the host page: the configured title, favicon, touch icon,
// app-title meta and manifest link are forced onto its head, the hosted
// dashboard is framed, and a zero-height iframe loads /embed/identity.
// That fragment runs the injector against its parent document once on load
// and once more after the retry delay.
//
// GET /identity.js serves the injector on its own (?target=self to mutate
// the including document instead of its parent).
//
// # API
//
//   - GET  /manifest.webmanifest  web app manifest
//   - GET  /api/identity          identity as JSON (?format=yaml for YAML)
//   - GET  /api/identity.yaml     identity as YAML
//   - POST /api/rewrite           HTML in, HTML with the identity applied out
//   - GET  /healthz               liveness
//
// When an upstream is configured, /app/ reverse-proxies it and rewrites every
// HTML response the same way the host page is rewritten.
//
// Errors are returned as JSON with {error, details} and an HTTP status code.
package handler
