// Package eventstream publishes completed chat exchanges to an event stream
// backend for downstream analytics. The relay only writes events; it never
// reads them back.
package eventstream

import "context"

// Publisher publishes exchange events to an event stream backend.
type Publisher interface {
	PublishExchange(ctx context.Context, event *ExchangeCompletedEvent) error
	Close() error
}
