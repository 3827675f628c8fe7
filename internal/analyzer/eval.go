package analyzer

import "encoding/json"

// evalEnvelope is the wire shape every in-page measurement script returns.
type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

func buildIIFE(async bool, body string) string {
	prefix := "(function(){\n"
	if async {
		prefix = "(async function(){\n"
	}
	return prefix + `try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}

func wrapJSEval(body string) string      { return buildIIFE(false, body) }
func wrapJSEvalAsync(body string) string { return buildIIFE(true, body) }

// pageVitals is the payload of jsCollectVitals. Pointer fields stay nil when
// the page environment cannot observe the corresponding metric.
type pageVitals struct {
	TTFB                   float64  `json:"ttfb"`
	DOMContentLoaded       float64  `json:"dom_content_loaded"`
	WindowLoad             float64  `json:"window_load"`
	FirstContentfulPaint   *float64 `json:"first_contentful_paint,omitempty"`
	LargestContentfulPaint *float64 `json:"largest_contentful_paint,omitempty"`
	CumulativeLayoutShift  *float64 `json:"cumulative_layout_shift,omitempty"`
}

// jsCollectVitals measures paint timing, LCP, CLS and navigation timing from
// inside the page. Paint/layout entries exist only in the page's own
// execution context, hence the eval. Everything degrades independently:
// an engine without PerformanceObserver still reports navigation timing.
func jsCollectVitals() string {
	return wrapJSEvalAsync(`
var result = {ttfb:0,dom_content_loaded:0,window_load:0};

var nav = null;
if (performance.getEntriesByType) {
  var navEntries = performance.getEntriesByType("navigation");
  if (navEntries && navEntries.length > 0) nav = navEntries[0];
}
if (nav) {
  result.ttfb = nav.responseStart - nav.requestStart;
  result.dom_content_loaded = nav.domContentLoadedEventEnd;
  result.window_load = nav.loadEventEnd;
} else if (performance.timing) {
  var t = performance.timing;
  result.ttfb = t.responseStart - t.requestStart;
  result.dom_content_loaded = t.domContentLoadedEventEnd - t.navigationStart;
  result.window_load = t.loadEventEnd - t.navigationStart;
}

if (performance.getEntriesByType) {
  var paints = performance.getEntriesByType("paint");
  for (var i = 0; i < paints.length; i++) {
    if (paints[i].name === "first-contentful-paint") result.first_contentful_paint = paints[i].startTime;
  }
}

var supported = typeof PerformanceObserver !== "undefined" && PerformanceObserver.supportedEntryTypes ?
  PerformanceObserver.supportedEntryTypes : [];

if (supported.indexOf("largest-contentful-paint") >= 0) {
  var lcpEntries = await new Promise(function(resolve) {
    var po = new PerformanceObserver(function(){});
    po.observe({type:"largest-contentful-paint", buffered:true});
    setTimeout(function(){ resolve(po.takeRecords()); }, 0);
  });
  if (lcpEntries && lcpEntries.length > 0) {
    result.largest_contentful_paint = lcpEntries[lcpEntries.length - 1].startTime;
  }
}

if (supported.indexOf("layout-shift") >= 0) {
  var shifts = await new Promise(function(resolve) {
    var po = new PerformanceObserver(function(){});
    po.observe({type:"layout-shift", buffered:true});
    setTimeout(function(){ resolve(po.takeRecords()); }, 0);
  });
  var cls = 0;
  for (var j = 0; j < shifts.length; j++) {
    if (!shifts[j].hadRecentInput) cls += shifts[j].value;
  }
  result.cumulative_layout_shift = cls;
}

return JSON.stringify({ok:true,data:result});
`)
}

// decodeEnvelope unmarshals a raw eval result into out.
func decodeEnvelope(raw string, out any) error {
	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation envelope", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = CodeEvalFailure
		}
		return newError(code, env.ErrorMessage, nil)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation data", err)
	}
	return nil
}
