package analyzer

import "fmt"

// largeResourceBytes is the size above which a resource is flagged.
const largeResourceBytes = 1_000_000

// cacheableTypes are the resource types expected to carry cache-control.
var cacheableTypes = map[string]bool{
	"image":      true,
	"font":       true,
	"stylesheet": true,
	"script":     true,
}

// Recommend applies the heuristic rules to the final ledger contents. It is
// a pure function of the snapshot: rules are independent (both can fire for
// one resource) and the output depends only on the multiset of resources,
// so findings follow the ledger's first-seen order deterministically.
func Recommend(resources []Resource) []Recommendation {
	recs := []Recommendation{}
	for _, res := range resources {
		if res.Size > largeResourceBytes {
			recs = append(recs, Recommendation{
				Type:     "resource-size",
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("Large resource (%.2f MB): %s", float64(res.Size)/1_000_000, res.URL),
			})
		}
		if cacheableTypes[res.Type] {
			if _, ok := res.Headers["cache-control"]; !ok {
				recs = append(recs, Recommendation{
					Type:     "caching",
					Severity: SeverityMedium,
					Message:  fmt.Sprintf("Missing cache-control header: %s", res.URL),
				})
			}
		}
	}
	return recs
}
