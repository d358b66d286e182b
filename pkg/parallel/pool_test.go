package parallel

import (
	"sync/atomic"
	"testing"
)

func TestDoVisitsEveryIndexOnce(t *testing.T) {
	p := New(4)
	const n = 1000

	counts := make([]int32, n)
	p.Do(n, func(i int) {
		atomic.AddInt32(&counts[i], 1)
	})

	for i, c := range counts {
		if c != 1 {
			t.Fatalf("index %d visited %d times, want 1", i, c)
		}
	}
}

func TestDoNilPoolRunsSequentially(t *testing.T) {
	var p *Pool

	if got := p.Size(); got != 1 {
		t.Fatalf("nil pool Size() = %d, want 1", got)
	}

	order := make([]int, 0, 8)
	p.Do(8, func(i int) {
		order = append(order, i)
	})

	for i, v := range order {
		if v != i {
			t.Fatalf("sequential order broken at %d: got %d", i, v)
		}
	}
}

func TestDoZeroCount(t *testing.T) {
	p := New(2)
	called := false
	p.Do(0, func(int) { called = true })
	if called {
		t.Fatal("fn called for n=0")
	}
}

func TestDoReusable(t *testing.T) {
	p := New(3)
	for round := 0; round < 20; round++ {
		var sum atomic.Int64
		p.Do(100, func(i int) {
			sum.Add(int64(i))
		})
		if got := sum.Load(); got != 4950 {
			t.Fatalf("round %d: sum = %d, want 4950", round, got)
		}
	}
}
