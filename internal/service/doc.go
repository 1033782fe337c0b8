// Package service implements business logic for homescreen.
//
// IdentityService sits between the HTTP handlers and the rendering packages.
// It owns the page configuration fixed at startup and produces everything a
// client needs to adopt that identity: the injector script and its iframe
// fragment, exported descriptions (manifest, JSON, YAML), and server-side
// rewrites of HTML documents.
//
// # Design Principles
//
// - The identity is immutable once the service is built
// - Handlers never touch documents or templates directly
// - Every document rewrite goes through sink.Apply, the same operation the
//   injector performs in the browser
package service
