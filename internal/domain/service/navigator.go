package service

import "context"

// Navigator is the injected navigation capability. The session controller
// signals destinations through it after login and logout; each platform
// adapter decides what "navigate" means (HTTP redirect, screen push, no-op).
type Navigator interface {
	Navigate(ctx context.Context, route string)
}
