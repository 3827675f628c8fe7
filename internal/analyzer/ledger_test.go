package analyzer

import (
	"fmt"
	"sync"
	"testing"
)

func TestLedgerConcurrentDistinctURLs(t *testing.T) {
	ledger := NewResourceLedger()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ledger.Put(Resource{URL: fmt.Sprintf("https://example.com/r/%d", i), Size: int64(i)})
		}(i)
	}
	wg.Wait()

	if ledger.Len() != n {
		t.Fatalf("ledger has %d entries, want %d", ledger.Len(), n)
	}
	snap := ledger.Snapshot()
	if len(snap) != n {
		t.Fatalf("snapshot has %d entries, want %d", len(snap), n)
	}
	seen := make(map[string]bool, n)
	for _, res := range snap {
		if seen[res.URL] {
			t.Fatalf("duplicate entry for %s", res.URL)
		}
		seen[res.URL] = true
	}
}

func TestLedgerDuplicateURLKeepsLater(t *testing.T) {
	ledger := NewResourceLedger()
	ledger.Put(Resource{URL: "https://example.com/a.js", Status: 200, Size: 10})
	ledger.Put(Resource{URL: "https://example.com/img.png", Size: 1})
	ledger.Put(Resource{URL: "https://example.com/a.js", Status: 304, Size: 0})

	if ledger.Len() != 2 {
		t.Fatalf("ledger has %d entries, want 2", ledger.Len())
	}
	res, ok := ledger.Get("https://example.com/a.js")
	if !ok {
		t.Fatalf("entry missing after overwrite")
	}
	if res.Status != 304 || res.Size != 0 {
		t.Fatalf("overwrite kept earlier entry: status=%d size=%d", res.Status, res.Size)
	}

	// Replacement keeps the first-seen position.
	snap := ledger.Snapshot()
	if snap[0].URL != "https://example.com/a.js" {
		t.Fatalf("first-seen order lost: first entry is %s", snap[0].URL)
	}
}

func TestLedgerSnapshotIsCopy(t *testing.T) {
	ledger := NewResourceLedger()
	ledger.Put(Resource{URL: "https://example.com/", Size: 5})

	snap := ledger.Snapshot()
	snap[0].Size = 999

	res, _ := ledger.Get("https://example.com/")
	if res.Size != 5 {
		t.Fatalf("snapshot mutation leaked into ledger: size=%d", res.Size)
	}
}
