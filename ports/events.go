package ports

import (
	"context"

	"github.com/layer-3/stockflow/core"
)

// EventPublisher notifies listeners that a session was torn down
type EventPublisher interface {
	PublishSessionTerminated(ctx context.Context, event core.SessionTerminated) error
}
