package ports

import (
	"context"
	"net/http"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Navigator is the page navigation capability of the host application
type Navigator interface {
	// CurrentPath returns the path of the page currently shown
	CurrentPath() string

	// Navigate performs a full page navigation to path
	Navigate(ctx context.Context, path string) error
}
