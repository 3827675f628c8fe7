package analyzer

import (
	"context"
	"log/slog"
	"net/url"
	"time"
)

// Analyzer runs one fire-and-forget page analysis per call. Each call owns
// its own browser process and page; nothing is shared across concurrent
// analyses.
type Analyzer struct {
	opts       Options
	newSession sessionFactory
}

func New(opts Options) *Analyzer {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 60 * time.Second
	}
	if opts.EvalTimeout <= 0 {
		opts.EvalTimeout = 10 * time.Second
	}
	if opts.SettleWindow <= 0 {
		opts.SettleWindow = 500 * time.Millisecond
	}
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 2
	}
	return &Analyzer{opts: opts, newSession: newChromeSession}
}

// Analyze loads the page, captures its network traffic, measures vitals,
// inspects the rendered markup and assembles the report. The session is
// released exactly once on every exit path; an expired ctx cancels the
// navigation and forces teardown.
func (a *Analyzer) Analyze(ctx context.Context, target, device string) (*AnalysisResult, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	session, err := a.newSession(ctx, a.opts, device)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	loadTime, err := session.Navigate(ctx, target)
	if err != nil {
		return nil, err
	}

	// The ledger is final from here on: settle has fired and outstanding
	// body reads were drained inside Navigate.
	metrics := a.collectMetrics(ctx, session)

	html, err := session.DocumentHTML(ctx)
	if err != nil {
		return nil, err
	}
	blocking, err := InspectRenderBlocking(html)
	if err != nil {
		return nil, err
	}

	resources := session.Ledger().Snapshot()
	var totalSize int64
	for _, res := range resources {
		totalSize += res.Size
	}

	result := &AnalysisResult{
		URLAnalyzed:             target,
		Timestamp:               time.Now().UTC(),
		Resources:               resources,
		TotalResources:          len(resources),
		TotalSize:               totalSize,
		LoadTime:                loadTime,
		RenderBlockingResources: blocking,
		PerformanceMetrics:      metrics,
		Recommendations:         Recommend(resources),
	}
	slog.Info("analysis complete",
		"url", target,
		"resources", result.TotalResources,
		"total_size", result.TotalSize,
		"load_time_ms", result.LoadTime,
		"recommendations", len(result.Recommendations),
	)
	return result, nil
}

// collectMetrics merges the in-page vitals with the browser's low-level
// metric snapshot. Both sources degrade independently: an engine without
// paint observation still yields navigation timing, and a failed snapshot
// just leaves the extension map empty.
func (a *Analyzer) collectMetrics(ctx context.Context, session pageSession) PerformanceMetrics {
	var metrics PerformanceMetrics

	vitals, err := session.CollectVitals(ctx)
	if err != nil {
		slog.Warn("in-page vitals unavailable", "error", err)
	} else {
		metrics.TTFB = vitals.TTFB
		metrics.DOMContentLoaded = vitals.DOMContentLoaded
		metrics.WindowLoad = vitals.WindowLoad
		metrics.FirstContentfulPaint = vitals.FirstContentfulPaint
		metrics.LargestContentfulPaint = vitals.LargestContentfulPaint
		metrics.CumulativeLayoutShift = vitals.CumulativeLayoutShift
	}

	snapshot, err := session.MetricsSnapshot(ctx)
	if err != nil {
		slog.Warn("performance snapshot unavailable", "error", err)
	} else if len(snapshot) > 0 {
		metrics.Extra = snapshot
	}
	return metrics
}

func validateTarget(target string) error {
	if target == "" {
		return newError(CodeValidation, "url is required", nil)
	}
	u, err := url.Parse(target)
	if err != nil {
		return newError(CodeValidation, "invalid url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newError(CodeValidation, "url must be http or https", nil)
	}
	if u.Host == "" {
		return newError(CodeValidation, "url is missing a host", nil)
	}
	return nil
}
