package queue

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/5l1v3r1/plaso/errors"
)

// TestMemory_FIFOModel checks the memory queue against a plain slice model
// under arbitrary interleavings of push, pop and sentinel operations.
func TestMemory_FIFOModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		q := NewMemory[int]()
		var model []item[int]

		t.Repeat(map[string]func(*rapid.T){
			"push": func(t *rapid.T) {
				v := rapid.Int().Draw(t, "v")
				if err := q.Push(ctx, v); err != nil {
					t.Fatalf("push failed: %v", err)
				}
				model = append(model, item[int]{value: v})
			},
			"signal": func(t *rapid.T) {
				if err := q.SignalEndOfInput(ctx); err != nil {
					t.Fatalf("signal failed: %v", err)
				}
				model = append(model, item[int]{end: true})
			},
			"pop": func(t *rapid.T) {
				got, err := q.Pop(ctx)
				if len(model) == 0 {
					if !errors.Is(err, errors.ErrQueueEmpty) {
						t.Fatalf("expected ErrQueueEmpty, got %v (%v)", err, got)
					}
					return
				}
				want := model[0]
				model = model[1:]
				if want.end {
					if !errors.Is(err, errors.ErrEndOfInput) {
						t.Fatalf("expected ErrEndOfInput, got %v", err)
					}
					return
				}
				if err != nil {
					t.Fatalf("unexpected pop error: %v", err)
				}
				if got != want.value {
					t.Fatalf("FIFO violation: got %d, want %d", got, want.value)
				}
			},
			"len": func(t *rapid.T) {
				n, err := q.Len()
				if err != nil {
					t.Fatalf("len failed: %v", err)
				}
				if n != len(model) {
					t.Fatalf("len mismatch: got %d, want %d", n, len(model))
				}
			},
		})
	})
}
