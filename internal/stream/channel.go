package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

// ErrChannelUnavailable signals missing credentials or a connect failure.
// It degrades consumers to polling-only mode and is never surfaced as a
// user-facing error.
var ErrChannelUnavailable = errors.New("stream channel unavailable")

// errAuthFailed is terminal: reconnecting cannot fix bad credentials.
var errAuthFailed = errors.New("stream auth rejected")

// Config holds the push endpoint credentials.
type Config struct {
	URL    string
	APIKey string
}

// BarFunc receives pushed bars for a subscribed symbol.
type BarFunc func(symbol string, bar model.Bar)

// QuoteFunc receives pushed quotes for a subscribed symbol.
type QuoteFunc func(symbol string, quote model.Quote)

// StatusFunc receives connection status transitions.
type StatusFunc func(status model.ConnectionStatus)

// Subscription ties one consumer callback to one topic on the shared
// channel. Handles are independent: multiple consumers may subscribe to
// the same symbol without interference.
type Subscription struct {
	topic     string
	onBar     BarFunc
	onQuote   QuoteFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Done returns a channel closed when the subscription is released.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Channel is the process-wide push-data client. It connects once,
// multiplexes topic subscriptions across consumers, and reports
// connection status transitions through a single callback.
type Channel struct {
	cfg Config

	mu         sync.RWMutex
	conn       *websocket.Conn
	status     model.ConnectionStatus
	statusFn   StatusFunc
	subscribed map[string]struct{}                  // topics requested upstream
	watchers   map[string]map[*Subscription]struct{} // topic -> handles
	lastBar    map[string]model.Bar
	lastQuote  map[string]model.Quote

	outbound chan wsMsg
}

// New creates a Channel. Run must be called for data to flow.
func New(cfg Config) *Channel {
	return &Channel{
		cfg:        cfg,
		status:     model.StatusDisconnected,
		subscribed: make(map[string]struct{}),
		watchers:   make(map[string]map[*Subscription]struct{}),
		lastBar:    make(map[string]model.Bar),
		lastQuote:  make(map[string]model.Quote),
		outbound:   make(chan wsMsg, 1024),
	}
}

var (
	sharedMu sync.Mutex
	shared   *Channel
)

// Shared returns the process-wide channel, starting it on first use.
// Missing credentials return nil: consumers must degrade to polling-only
// mode rather than treat this as an error.
func Shared(ctx context.Context, cfg Config) *Channel {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil {
		return shared
	}
	if cfg.URL == "" || cfg.APIKey == "" {
		log.Printf("[WARN] stream credentials not configured, live updates disabled: %v", ErrChannelUnavailable)
		return nil
	}
	shared = New(cfg)
	go func() {
		if err := shared.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[ERROR] stream channel stopped: %v", err)
		}
	}()
	return shared
}

// Status returns the current connection status.
func (c *Channel) Status() model.ConnectionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// SetStatusFunc registers the status transition callback. It is the single
// source of truth for connection state; consumers never infer status from
// data activity.
func (c *Channel) SetStatusFunc(fn StatusFunc) {
	c.mu.Lock()
	c.statusFn = fn
	c.mu.Unlock()
}

func (c *Channel) setStatus(s model.ConnectionStatus) {
	c.mu.Lock()
	if c.status == s {
		c.mu.Unlock()
		return
	}
	c.status = s
	fn := c.statusFn
	c.mu.Unlock()
	log.Printf("[INFO] stream status: %s", s)
	if fn != nil {
		fn(s)
	}
}

// SubscribeBars registers a bar callback for symbol and returns its handle.
func (c *Channel) SubscribeBars(symbol string, fn BarFunc) *Subscription {
	return c.subscribe(barTopic(normalize(symbol)), &Subscription{onBar: fn})
}

// SubscribeQuotes registers a quote callback for symbol and returns its handle.
func (c *Channel) SubscribeQuotes(symbol string, fn QuoteFunc) *Subscription {
	return c.subscribe(quoteTopic(normalize(symbol)), &Subscription{onQuote: fn})
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (c *Channel) subscribe(topic string, sub *Subscription) *Subscription {
	if strings.HasSuffix(topic, ".") {
		return nil
	}
	sub.topic = topic
	sub.done = make(chan struct{})

	c.mu.Lock()
	if _, ok := c.watchers[topic]; !ok {
		c.watchers[topic] = make(map[*Subscription]struct{})
	}
	c.watchers[topic][sub] = struct{}{}
	if _, ok := c.subscribed[topic]; !ok {
		c.subscribed[topic] = struct{}{}
		// Non-blocking so a large initial watchlist never stalls startup;
		// the reconnect path resubscribes everything anyway.
		select {
		case c.outbound <- subscribeMsg(topic):
		default:
		}
	}
	c.mu.Unlock()
	return sub
}

// Unsubscribe releases a handle. The upstream topic is dropped only when
// its last handle goes away; the connection itself is never closed here
// because other consumers share it.
func (c *Channel) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.close()

	c.mu.Lock()
	ws := c.watchers[sub.topic]
	if ws != nil {
		delete(ws, sub)
		if len(ws) == 0 {
			delete(c.watchers, sub.topic)
			delete(c.subscribed, sub.topic)
			select {
			case c.outbound <- unsubscribeMsg(sub.topic):
			default:
			}
		}
	}
	c.mu.Unlock()
}

// ForceRefresh re-delivers the latest known bar and quote for symbol to the
// current watchers and asks the upstream to re-push current state.
func (c *Channel) ForceRefresh(symbol string) {
	sym := normalize(symbol)

	c.mu.RLock()
	bar, hasBar := c.lastBar[sym]
	quote, hasQuote := c.lastQuote[sym]
	c.mu.RUnlock()

	if hasBar {
		c.dispatchBar(sym, bar)
	}
	if hasQuote {
		c.dispatchQuote(sym, quote)
	}

	select {
	case c.outbound <- refreshMsg(sym):
	default:
	}
}

// Run maintains the connection, reconnecting with exponential backoff
// until ctx is cancelled. An authentication rejection is terminal.
func (c *Channel) Run(ctx context.Context) error {
	var backoff time.Duration
	connectedBefore := false

	for {
		if connectedBefore {
			c.setStatus(model.StatusReconnecting)
		} else {
			c.setStatus(model.StatusConnecting)
		}

		connected := false
		err := c.runOnce(ctx, &connected)
		if connected {
			connectedBefore = true
		}
		switch {
		case ctx.Err() != nil:
			c.setStatus(model.StatusDisconnected)
			return ctx.Err()
		case errors.Is(err, errAuthFailed):
			c.setStatus(model.StatusError)
			return err
		default:
			log.Printf("[WARN] stream disconnected: %v", err)
		}

		backoff = nextBackoff(backoff, connected)
		select {
		case <-ctx.Done():
			c.setStatus(model.StatusDisconnected)
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// nextBackoff grows the reconnect delay toward 30s across consecutive
// failed attempts. An attempt that reached the connected state starts the
// progression over, so a single blip after a stable connection never
// inherits delay accumulated during an earlier flaky period.
func nextBackoff(cur time.Duration, connected bool) time.Duration {
	if connected || cur == 0 {
		return time.Second
	}
	if cur < 30*time.Second {
		return 2 * cur
	}
	return cur
}

func (c *Channel) runOnce(ctx context.Context, connected *bool) error {
	dialer := websocket.Dialer{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: true,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := conn.WriteJSON(authMsg(c.cfg.APIKey)); err != nil {
		return fmt.Errorf("auth write: %w", err)
	}

	// Re-request everything consumers currently hold.
	c.mu.RLock()
	for topic := range c.subscribed {
		_ = conn.WriteJSON(subscribeMsg(topic))
	}
	c.mu.RUnlock()

	c.setStatus(model.StatusConnected)
	*connected = true

	ping := time.NewTicker(45 * time.Second)
	defer ping.Stop()

	errCh := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			if err := c.HandleFrame(data); err != nil {
				if errors.Is(err, errAuthFailed) {
					errCh <- err
					return
				}
				log.Printf("[WARN] stream frame: %v", err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ping.C:
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case msg := <-c.outbound:
			_ = conn.WriteJSON(msg)
		case err := <-errCh:
			return err
		}
	}
}

// HandleFrame processes one raw push frame, dispatching its events to the
// matching watchers. The websocket reader feeds it; any transport (or a
// test) delivering well-formed frames works the same way.
func (c *Channel) HandleFrame(data []byte) error {
	events, err := parseFrame(data)
	if err != nil {
		return err
	}
	for _, ev := range events {
		switch ev.kind {
		case "B":
			c.dispatchBar(ev.symbol, ev.bar)
		case "Q":
			c.dispatchQuote(ev.symbol, ev.quote)
		case "status":
			if ev.status == "auth_failed" {
				return errAuthFailed
			}
		}
	}
	return nil
}

func (c *Channel) dispatchBar(symbol string, bar model.Bar) {
	topic := barTopic(symbol)

	c.mu.Lock()
	c.lastBar[symbol] = bar
	subs := make([]*Subscription, 0, len(c.watchers[topic]))
	for sub := range c.watchers[topic] {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		select {
		case <-sub.done:
			// released, never fire
		default:
			sub.onBar(symbol, bar)
		}
	}
}

func (c *Channel) dispatchQuote(symbol string, quote model.Quote) {
	topic := quoteTopic(symbol)

	c.mu.Lock()
	c.lastQuote[symbol] = quote
	subs := make([]*Subscription, 0, len(c.watchers[topic]))
	for sub := range c.watchers[topic] {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		select {
		case <-sub.done:
		default:
			sub.onQuote(symbol, quote)
		}
	}
}

// watcherCount reports the number of live handles for a topic (tests).
func (c *Channel) watcherCount(topic string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.watchers[topic])
}
