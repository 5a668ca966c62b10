// Package feed binds a single chart consumer to the shared push channel
// for the lifetime of that consumer. It owns the subscribe/unsubscribe
// lifecycle tied to symbol changes and teardown, and caches the latest
// pushed bar and quote.
package feed

import (
	"strings"
	"sync"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
	"github.com/nighthawk909/ChartSense-sub000/internal/stream"
)

// Handlers receive live updates forwarded by the feed.
type Handlers struct {
	OnBar   func(model.Bar)
	OnQuote func(model.Quote)
}

// Feed is one consumer's binding to the shared channel. A nil channel is
// the degraded polling-only mode: the feed stays silent and reports
// disconnected, which is a valid configuration state, not an error.
type Feed struct {
	channel  *stream.Channel
	handlers Handlers

	mu        sync.Mutex
	symbol    string
	barSub    *stream.Subscription
	quoteSub  *stream.Subscription
	lastBar   model.Bar
	hasBar    bool
	lastQuote model.Quote
	hasQuote  bool
}

// New creates a feed over the shared channel.
func New(channel *stream.Channel, handlers Handlers) *Feed {
	return &Feed{channel: channel, handlers: handlers}
}

// SetSymbol switches the feed to a new symbol. The previous symbol's bar
// and quote handles are released before the new ones are registered, so a
// single consumer's subscriptions never overlap. An empty symbol just
// unsubscribes.
func (f *Feed) SetSymbol(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	f.mu.Lock()
	if f.symbol == symbol {
		f.mu.Unlock()
		return
	}
	oldBar, oldQuote := f.barSub, f.quoteSub
	f.barSub, f.quoteSub = nil, nil
	f.symbol = symbol
	f.hasBar, f.hasQuote = false, false
	f.mu.Unlock()

	if f.channel == nil {
		return
	}
	f.channel.Unsubscribe(oldBar)
	f.channel.Unsubscribe(oldQuote)

	if symbol == "" {
		return
	}
	barSub := f.channel.SubscribeBars(symbol, f.onBar)
	quoteSub := f.channel.SubscribeQuotes(symbol, f.onQuote)

	f.mu.Lock()
	f.barSub, f.quoteSub = barSub, quoteSub
	f.mu.Unlock()
}

func (f *Feed) onBar(symbol string, bar model.Bar) {
	f.mu.Lock()
	if symbol != f.symbol {
		// late dispatch for a symbol we already switched away from
		f.mu.Unlock()
		return
	}
	f.lastBar = bar
	f.hasBar = true
	fn := f.handlers.OnBar
	f.mu.Unlock()

	if fn != nil {
		fn(bar)
	}
}

func (f *Feed) onQuote(symbol string, quote model.Quote) {
	f.mu.Lock()
	if symbol != f.symbol {
		f.mu.Unlock()
		return
	}
	f.lastQuote = quote
	f.hasQuote = true
	fn := f.handlers.OnQuote
	f.mu.Unlock()

	if fn != nil {
		fn(quote)
	}
}

// LatestBar returns the most recently pushed bar for the current symbol.
func (f *Feed) LatestBar() (model.Bar, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBar, f.hasBar
}

// LatestQuote returns the most recently pushed quote for the current symbol.
func (f *Feed) LatestQuote() (model.Quote, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuote, f.hasQuote
}

// Status reports the channel's connection status. The feed never infers
// status from data activity; silence is the watchdog's concern.
func (f *Feed) Status() model.ConnectionStatus {
	if f.channel == nil {
		return model.StatusDisconnected
	}
	return f.channel.Status()
}

// ForceRefresh clears the locally cached latest bar and quote, so the
// consumer visibly re-enters a loading state, and asks the channel to
// re-deliver the latest known state for the symbol.
func (f *Feed) ForceRefresh() {
	f.mu.Lock()
	symbol := f.symbol
	f.hasBar, f.hasQuote = false, false
	f.mu.Unlock()

	if f.channel != nil && symbol != "" {
		f.channel.ForceRefresh(symbol)
	}
}

// Close releases both handles. The shared channel itself is left running:
// its connection lifetime is shared with other consumers.
func (f *Feed) Close() {
	f.mu.Lock()
	barSub, quoteSub := f.barSub, f.quoteSub
	f.barSub, f.quoteSub = nil, nil
	f.symbol = ""
	f.hasBar, f.hasQuote = false, false
	f.mu.Unlock()

	if f.channel != nil {
		f.channel.Unsubscribe(barSub)
		f.channel.Unsubscribe(quoteSub)
	}
}
