package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/dipper/internal/core"
)

// readAll drains f.
func readAll(ctx context.Context, f Feed) ([]core.Tick, error) {
	var ticks []core.Tick
	for {
		t, err := f.Next(ctx)
		if errors.Is(err, core.ErrFeedExhausted) {
			return ticks, nil
		}
		if err != nil {
			return ticks, err
		}
		ticks = append(ticks, t)
	}
}

func TestSlice_ImplementsFeed(t *testing.T) {
	var _ Feed = (*Slice)(nil)
	var _ Feed = (*CSV)(nil)
}

func TestFromPrices(t *testing.T) {
	f := FromPrices(10, 9.97, 9.95)
	if len(f.ticks) != 3 {
		t.Errorf("expected 3 ticks, got %d", len(f.ticks))
	}

	ticks, err := readAll(context.Background(), f)
	if err != nil {
		t.Fatalf("readAll failed: %v", err)
	}
	if ticks[2].Number != 2 {
		t.Errorf("expected number 2, got %d", ticks[2].Number)
	}
	if ticks[2].Price.String() != "9.95" {
		t.Errorf("expected price 9.95, got %s", ticks[2].Price)
	}

	if _, err := f.Next(context.Background()); !errors.Is(err, core.ErrFeedExhausted) {
		t.Errorf("expected ErrFeedExhausted, got %v", err)
	}
}

func TestSlice_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := FromPrices(10).Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
