package analyzer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// Collector turns CDP network events into ledger entries and tracks the
// in-flight request count used by the idle-settle condition. Event callbacks
// fire concurrently with the blocked navigation wait, so all state is
// mutex-guarded. Body reads happen on their own goroutines (fetching a body
// inside the event handler would stall CDP event dispatch); WaitBodies blocks
// until every outstanding read has committed its entry.
type Collector struct {
	ledger *ResourceLedger

	mu           sync.Mutex
	pending      map[network.RequestID]*pendingExchange
	inflight     int
	lastActivity time.Time
	bodyReads    int
}

type pendingExchange struct {
	res         Resource
	hasResponse bool
}

func NewCollector(ledger *ResourceLedger) *Collector {
	return &Collector{
		ledger:       ledger,
		pending:      make(map[network.RequestID]*pendingExchange),
		lastActivity: time.Now(),
	}
}

// OnRequestWillBeSent registers a new in-flight request. A redirect hop
// re-fires this event with the same request ID, so the counter moves only on
// first sight; the whole chain still gets a single terminal event. A request
// carrying a redirect response also finalizes the redirected exchange:
// redirects have no readable body, so their size is recorded as 0.
func (c *Collector) OnRequestWillBeSent(ev *network.EventRequestWillBeSent) {
	c.mu.Lock()
	if _, seen := c.pending[ev.RequestID]; !seen {
		c.inflight++
		c.pending[ev.RequestID] = &pendingExchange{}
	}
	c.lastActivity = time.Now()
	c.mu.Unlock()

	if ev.RedirectResponse != nil {
		c.ledger.Put(responseToResource(ev.RedirectResponse, ev.Type))
	}
}

// OnResponseReceived records the response metadata for a pending request.
func (c *Collector) OnResponseReceived(ev *network.EventResponseReceived) {
	if ev.Response == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
	p, ok := c.pending[ev.RequestID]
	if !ok {
		// Response for a request that predates this collector; still worth
		// keeping, it arrived during the page load.
		p = &pendingExchange{}
		c.pending[ev.RequestID] = p
	}
	p.res = responseToResource(ev.Response, ev.Type)
	p.hasResponse = true
}

// OnLoadingFinished finalizes an exchange. fetchBody reads the full response
// body; a failed read degrades to size 0 rather than failing the analysis.
func (c *Collector) OnLoadingFinished(ev *network.EventLoadingFinished, fetchBody func() ([]byte, error)) {
	p := c.takePending(ev.RequestID)
	if p == nil || !p.hasResponse {
		return
	}

	res := p.res
	c.mu.Lock()
	c.bodyReads++
	c.mu.Unlock()
	go func() {
		if fetchBody != nil {
			body, err := fetchBody()
			if err != nil {
				slog.Debug("response body unavailable", "url", res.URL, "error", err)
			} else {
				res.Size = int64(len(body))
			}
		}
		c.ledger.Put(res)
		c.mu.Lock()
		c.bodyReads--
		c.mu.Unlock()
	}()
}

// OnLoadingFailed drops the exchange. If a response had already been seen
// (e.g. the connection broke mid-body), the entry is kept with size 0.
func (c *Collector) OnLoadingFailed(ev *network.EventLoadingFailed) {
	p := c.takePending(ev.RequestID)
	if p == nil {
		return
	}
	if p.hasResponse {
		c.ledger.Put(p.res)
	}
}

func (c *Collector) takePending(id network.RequestID) *pendingExchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
	if c.inflight > 0 {
		c.inflight--
	}
	p := c.pending[id]
	delete(c.pending, id)
	return p
}

// Inflight returns the number of requests without a terminal event yet.
func (c *Collector) Inflight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

func (c *Collector) idleSince(maxInflight int) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity, c.inflight <= maxInflight
}

// WaitSettle blocks until network activity stays at or below maxInflight
// in-flight requests for a full window, or ctx is done.
func (c *Collector) WaitSettle(ctx context.Context, maxInflight int, window time.Duration) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			last, idle := c.idleSince(maxInflight)
			if idle && time.Since(last) >= window {
				return nil
			}
		}
	}
}

func (c *Collector) outstandingBodies() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bodyReads
}

// WaitBodies blocks until all outstanding body reads have written their
// ledger entries, or ctx is done. The mutex-guarded counter stays safe when
// a late loadingFinished starts a new read while a wait is in progress.
func (c *Collector) WaitBodies(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if c.outstandingBodies() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func responseToResource(resp *network.Response, typ network.ResourceType) Resource {
	return Resource{
		URL:     resp.URL,
		Type:    strings.ToLower(string(typ)),
		Status:  int(resp.Status),
		Timing:  resp.Timing,
		Headers: lowerHeaders(resp.Headers),
	}
}

// lowerHeaders flattens CDP headers into a string map with lower-cased
// names, so later lookups are case-insensitive.
func lowerHeaders(headers network.Headers) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if s, ok := v.(string); ok {
			out[strings.ToLower(k)] = s
		}
	}
	return out
}
