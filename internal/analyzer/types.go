package analyzer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
)

const (
	CodeValidation         = "VALIDATION"
	CodeNavFailed          = "NAV_FAILED"
	CodeNavTimeout         = "NAV_TIMEOUT"
	CodeBrowserUnavailable = "BROWSER_UNAVAILABLE"
	CodeEvalFailure        = "EVAL_FAILURE"
	CodeInternal           = "INTERNAL"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// Resource is one captured network exchange, keyed by final URL within a
// single analysis. Header names are stored lower-cased.
type Resource struct {
	URL     string                  `json:"url"`
	Type    string                  `json:"type"`
	Status  int                     `json:"status"`
	Size    int64                   `json:"size"`
	Timing  *network.ResourceTiming `json:"timing"`
	Headers map[string]string       `json:"headers"`
}

// RenderBlockingResource is a head stylesheet or non-deferred external script
// found in the final rendered markup.
type RenderBlockingResource struct {
	Type     string `json:"type"` // "css" or "js"
	URL      string `json:"url"`
	Blocking string `json:"blocking"` // always "render"
}

// Severity levels for recommendations. SeverityLow is reserved for future
// rules; no current rule emits it.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Recommendation is a single heuristic finding over the resource ledger.
type Recommendation struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// PerformanceMetrics holds the page's timing measurements. The required
// fields are always present; the optional paint/layout fields are nil when
// the loaded context does not support the corresponding observation. Extra
// carries any additional numeric metrics from the browser's low-level
// performance snapshot; unknown keys round-trip through JSON unchanged.
type PerformanceMetrics struct {
	TTFB             float64 `json:"ttfb"`
	DOMContentLoaded float64 `json:"domContentLoaded"`
	WindowLoad       float64 `json:"windowLoad"`

	FirstContentfulPaint   *float64 `json:"firstContentfulPaint,omitempty"`
	LargestContentfulPaint *float64 `json:"largestContentfulPaint,omitempty"`
	CumulativeLayoutShift  *float64 `json:"cumulativeLayoutShift,omitempty"`

	Extra map[string]float64 `json:"-"`
}

// namedMetricKeys are the JSON keys owned by the struct fields; extension
// entries never override them.
var namedMetricKeys = map[string]bool{
	"ttfb":                   true,
	"domContentLoaded":       true,
	"windowLoad":             true,
	"firstContentfulPaint":   true,
	"largestContentfulPaint": true,
	"cumulativeLayoutShift":  true,
}

func (m PerformanceMetrics) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, len(m.Extra)+6)
	for k, v := range m.Extra {
		if namedMetricKeys[k] {
			continue
		}
		out[k] = v
	}
	out["ttfb"] = m.TTFB
	out["domContentLoaded"] = m.DOMContentLoaded
	out["windowLoad"] = m.WindowLoad
	if m.FirstContentfulPaint != nil {
		out["firstContentfulPaint"] = *m.FirstContentfulPaint
	}
	if m.LargestContentfulPaint != nil {
		out["largestContentfulPaint"] = *m.LargestContentfulPaint
	}
	if m.CumulativeLayoutShift != nil {
		out["cumulativeLayoutShift"] = *m.CumulativeLayoutShift
	}
	return json.Marshal(out)
}

func (m *PerformanceMetrics) UnmarshalJSON(data []byte) error {
	raw := map[string]float64{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = PerformanceMetrics{}
	for k, v := range raw {
		switch k {
		case "ttfb":
			m.TTFB = v
		case "domContentLoaded":
			m.DOMContentLoaded = v
		case "windowLoad":
			m.WindowLoad = v
		case "firstContentfulPaint":
			m.FirstContentfulPaint = ptr(v)
		case "largestContentfulPaint":
			m.LargestContentfulPaint = ptr(v)
		case "cumulativeLayoutShift":
			m.CumulativeLayoutShift = ptr(v)
		default:
			if m.Extra == nil {
				m.Extra = map[string]float64{}
			}
			m.Extra[k] = v
		}
	}
	return nil
}

func ptr(v float64) *float64 { return &v }

// AnalysisResult is the immutable report for one analyzed page.
type AnalysisResult struct {
	URLAnalyzed             string                   `json:"urlAnalyzed"`
	Timestamp               time.Time                `json:"timestamp"`
	Resources               []Resource               `json:"resources"`
	TotalResources          int                      `json:"totalResources"`
	TotalSize               int64                    `json:"totalSize"`
	LoadTime                float64                  `json:"loadTime"`
	RenderBlockingResources []RenderBlockingResource `json:"renderBlockingResources"`
	PerformanceMetrics      PerformanceMetrics       `json:"performanceMetrics"`
	Recommendations         []Recommendation         `json:"recommendations"`
}
