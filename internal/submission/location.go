package submission

import (
	"context"

	"presence/internal/geo"
)

// ProviderFunc adapts a function to LocationProvider.
type ProviderFunc func(ctx context.Context) (geo.Coordinate, error)

// Current implements LocationProvider.
func (f ProviderFunc) Current(ctx context.Context) (geo.Coordinate, error) { return f(ctx) }

// StaticLocation returns a provider that always reports the given
// coordinate. Used by tooling where the platform location service is out of
// reach.
func StaticLocation(c geo.Coordinate) LocationProvider {
	return ProviderFunc(func(context.Context) (geo.Coordinate, error) { return c, nil })
}
