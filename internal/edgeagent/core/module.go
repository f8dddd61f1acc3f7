package core

import (
	"context"
)

// Module is one self-contained feature of the agent. Modules register
// their inbound routes with the bus and receive the shared outbound
// sender during setup.
type Module interface {
	Name() string

	Setup(ctx context.Context, sender Sender) error

	Routes() map[EventType]HandlerFunc
}
