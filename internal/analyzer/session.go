package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/performance"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Options configures one analysis session.
type Options struct {
	ExecPath     string        // Chrome binary override, empty for auto-detect
	Headless     bool          //
	NavTimeout   time.Duration // deadline for navigate + settle
	EvalTimeout  time.Duration // deadline for one in-page evaluation
	SettleWindow time.Duration // quiet period required before load counts as settled
	MaxInflight  int           // in-flight requests tolerated during the quiet period
	UserAgent    string        // optional UA override
}

// Device profile names accepted by the v1 analyze endpoint.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
)

// pageSession is the browser capability the report assembler drives. The
// production implementation owns one headless Chrome process and one page;
// tests substitute a fake.
type pageSession interface {
	// Navigate loads url and blocks until the network settles, returning the
	// wall-clock load time in milliseconds. The ledger is final afterwards.
	Navigate(ctx context.Context, url string) (float64, error)
	// Ledger gives access to the resources captured during navigation.
	Ledger() *ResourceLedger
	// CollectVitals runs the measurement script inside the page context.
	CollectVitals(ctx context.Context) (pageVitals, error)
	// MetricsSnapshot reads the browser's low-level metric counters.
	MetricsSnapshot(ctx context.Context) (map[string]float64, error)
	// DocumentHTML captures the fully rendered markup.
	DocumentHTML(ctx context.Context) (string, error)
	// Close releases the page and browser process. Idempotent.
	Close()
}

// sessionFactory creates a session for one analysis. Swappable in tests.
type sessionFactory func(ctx context.Context, opts Options, device string) (pageSession, error)

type chromeSession struct {
	allocCancel context.CancelFunc
	pageCtx     context.Context
	pageCancel  context.CancelFunc

	opts      Options
	ledger    *ResourceLedger
	collector *Collector
	closeOnce sync.Once
}

// newChromeSession launches an isolated headless browser, opens a page,
// enables the network/page/performance domains and request interception, and
// wires network events into a fresh ledger. The caller's ctx is the root of
// the browser contexts, so an external cancel or deadline tears the whole
// process down.
func newChromeSession(ctx context.Context, opts Options, device string) (pageSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		allocCancel: allocCancel,
		pageCtx:     pageCtx,
		pageCancel:  pageCancel,
		opts:        opts,
		ledger:      NewResourceLedger(),
	}
	s.collector = NewCollector(s.ledger)

	chromedp.ListenTarget(pageCtx, s.handleEvent)

	actions := []chromedp.Action{
		network.Enable(),
		network.SetCacheDisabled(true),
		page.Enable(),
		performance.Enable(),
		// Interception is observation-only: every paused request is continued
		// unmodified by handleEvent.
		fetch.Enable(),
	}
	if action := deviceAction(device); action != nil {
		actions = append(actions, action)
	}

	if err := chromedp.Run(pageCtx, actions...); err != nil {
		s.Close()
		return nil, newError(CodeBrowserUnavailable, "browser launch failed", err)
	}
	slog.Debug("browser session ready", "device", device)
	return s, nil
}

func deviceAction(device string) chromedp.Action {
	switch device {
	case DeviceMobile:
		return emulation.SetDeviceMetricsOverride(390, 844, 3, true)
	case DeviceDesktop, "":
		return emulation.SetDeviceMetricsOverride(1920, 1080, 1, false)
	default:
		return nil
	}
}

func (s *chromeSession) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *fetch.EventRequestPaused:
		// Let the request through untouched; pausing exists only so the
		// response stream is observable.
		requestID := e.RequestID
		go func() {
			err := chromedp.Run(s.pageCtx, chromedp.ActionFunc(func(ctx context.Context) error {
				return fetch.ContinueRequest(requestID).Do(ctx)
			}))
			if err != nil {
				slog.Debug("continue intercepted request failed", "request_id", requestID, "error", err)
			}
		}()
	case *network.EventRequestWillBeSent:
		s.collector.OnRequestWillBeSent(e)
	case *network.EventResponseReceived:
		s.collector.OnResponseReceived(e)
	case *network.EventLoadingFinished:
		requestID := e.RequestID
		s.collector.OnLoadingFinished(e, func() ([]byte, error) {
			bodyCtx, cancel := context.WithTimeout(s.pageCtx, 10*time.Second)
			defer cancel()
			var body []byte
			err := chromedp.Run(bodyCtx, chromedp.ActionFunc(func(ctx context.Context) error {
				var err error
				body, err = network.GetResponseBody(requestID).Do(ctx)
				return err
			}))
			return body, err
		})
	case *network.EventLoadingFailed:
		s.collector.OnLoadingFailed(e)
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) (float64, error) {
	navCtx := s.pageCtx
	if s.opts.NavTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(navCtx, s.opts.NavTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, newError(CodeNavTimeout, "navigation timed out", err)
		}
		return 0, newError(CodeNavFailed, "navigation failed", err)
	}

	if err := s.collector.WaitSettle(navCtx, s.opts.MaxInflight, s.opts.SettleWindow); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, newError(CodeNavTimeout, "network never settled", err)
		}
		return 0, newError(CodeNavFailed, "settle wait aborted", err)
	}
	loadTime := float64(time.Since(start).Milliseconds())

	// Outstanding body reads finish before the ledger is declared final.
	if err := s.collector.WaitBodies(navCtx); err != nil {
		slog.Warn("body reads still pending at settle", "url", url, "error", err)
	}

	slog.Info("page settled", "url", url, "load_time_ms", loadTime, "resources", s.ledger.Len())
	return loadTime, nil
}

func (s *chromeSession) Ledger() *ResourceLedger { return s.ledger }

func (s *chromeSession) CollectVitals(ctx context.Context) (pageVitals, error) {
	_ = ctx // cancellation propagates through pageCtx, rooted at the request context
	raw, err := s.evaluate(jsCollectVitals())
	if err != nil {
		return pageVitals{}, err
	}
	var vitals pageVitals
	if err := decodeEnvelope(raw, &vitals); err != nil {
		return pageVitals{}, err
	}
	return vitals, nil
}

func (s *chromeSession) evaluate(js string) (string, error) {
	evalCtx := s.pageCtx
	if s.opts.EvalTimeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(evalCtx, s.opts.EvalTimeout)
		defer cancel()
	}

	var raw string
	err := chromedp.Run(evalCtx, chromedp.Evaluate(js, &raw,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return "", newError(CodeEvalFailure, "in-page evaluation failed", err)
	}
	return raw, nil
}

func (s *chromeSession) MetricsSnapshot(_ context.Context) (map[string]float64, error) {
	var metrics []*performance.Metric
	err := chromedp.Run(s.pageCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		metrics, err = performance.GetMetrics().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, newError(CodeEvalFailure, "performance snapshot failed", err)
	}
	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		out[m.Name] = m.Value
	}
	return out, nil
}

func (s *chromeSession) DocumentHTML(_ context.Context) (string, error) {
	var html string
	if err := chromedp.Run(s.pageCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", newError(CodeEvalFailure, "document capture failed", err)
	}
	return html, nil
}

func (s *chromeSession) Close() {
	s.closeOnce.Do(func() {
		s.pageCancel()
		s.allocCancel()
		slog.Debug("browser session closed")
	})
}
