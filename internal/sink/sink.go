// Package sink defines the capability a host exposes so an embedded component
// can force the host's visual identity, and the fire-twice application of an
// identity through that capability.
package sink

import (
	"context"
	"fmt"

	"homescreen/internal/domain"
)

// IdentitySink is the narrow surface through which an identity is applied to
// a hosting document. Implementations own the document they mutate.
type IdentitySink interface {
	SetTitle(ctx context.Context, title string) error
	SetIcon(ctx context.Context, iconURL string) error
	SetAppName(ctx context.Context, name string) error
}

// Apply sets title, touch icon and app name, in that order.
// The first failing step aborts the rest.
func Apply(ctx context.Context, s IdentitySink, id domain.PageIdentity) error {
	if err := s.SetTitle(ctx, id.Title()); err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	if err := s.SetIcon(ctx, id.IconURL()); err != nil {
		return fmt.Errorf("set icon: %w", err)
	}
	if err := s.SetAppName(ctx, id.Title()); err != nil {
		return fmt.Errorf("set app name: %w", err)
	}
	return nil
}
