// Package domain defines the core types for homescreen.
//
// # Identity
//
// PageIdentity is the title and icon a page must present to browsers and to
// the home screen once installed. It is validated on construction and never
// changes afterwards.
//
// PageConfig pairs the identity with a Layout hint for the host page.
//
// # Head Roles
//
// HeadRole describes a single-instance element of <head>, keyed by one
// attribute (rel or name) and carrying its payload in another (href or
// content). Sinks upsert roles rather than append them, so applying an
// identity any number of times leaves exactly one node per role.
package domain
