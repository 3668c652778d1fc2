package stream

import (
	"context"

	"trading-alert-bot/internal/service/exchange"
	"trading-alert-bot/internal/store"
)

// Adapter is one venue's streaming connection. Stream dials, subscribes and
// forwards normalized trades until the context is cancelled (returns nil)
// or the connection fails (returns the error). The supervisor owns
// reconnection; adapters never retry internally.
type Adapter interface {
	Exchange() exchange.Name
	Stream(ctx context.Context, out chan<- exchange.TradeEvent) error
}

// SettingsSource is the read side of the whale settings store.
type SettingsSource interface {
	Snapshot() store.WhaleSettings
}
