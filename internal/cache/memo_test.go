package cache

import "testing"

func TestMemo(t *testing.T) {
	var memo Memo[uint64, []string]
	calls := 0
	compute := func() []string {
		calls++
		return []string{"Ann", "Bob"}
	}

	first := memo.Get(1, compute)
	second := memo.Get(1, compute)

	if calls != 1 {
		t.Fatalf("Expected one computation for an unchanged key, got %d", calls)
	}
	if &first[0] != &second[0] {
		t.Error("Expected the cached slice to be returned on a hit")
	}

	memo.Get(2, compute)
	if calls != 2 {
		t.Errorf("Expected recomputation after key change, got %d calls", calls)
	}

	hits, misses := memo.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Expected 1 hit and 2 misses, got %d and %d", hits, misses)
	}

	memo.Get(1, compute)
	if calls != 3 {
		t.Errorf("Expected recomputation when an earlier key returns, got %d calls", calls)
	}
}
