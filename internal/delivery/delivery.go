// Package delivery defines the contract every delivery mechanism implements.
package delivery

import "context"

// Delivery is a serving surface, started by the application lifecycle.
type Delivery interface {
	Serve(ctx context.Context) error
}
