package storage

import (
	"testing"

	"pgregory.net/rapid"
)

// TestSequence_CapacityRespect checks that pushing past a
// limit always fails with ErrCapacityExceeded, never panics and never
// silently drops the limit.
func TestSequence_CapacityRespect(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 32).Draw(t, "limit")
		pushes := rapid.IntRange(0, 64).Draw(t, "pushes")

		s := NewSequence[int]("seq", limit)
		accepted := 0
		for i := 0; i < pushes; i++ {
			err := s.Push(i)
			if i < limit {
				if err != nil {
					t.Fatalf("push %d/%d unexpectedly failed: %v", i, limit, err)
				}
				accepted++
			} else {
				if err == nil {
					t.Fatalf("push %d exceeded limit %d but did not fail", i, limit)
				}
			}
		}
		if s.Len() != accepted {
			t.Fatalf("sequence length %d != accepted %d", s.Len(), accepted)
		}
		if s.Len() > limit {
			t.Fatalf("sequence length %d exceeds limit %d", s.Len(), limit)
		}
	})
}
