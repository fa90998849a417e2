package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeAdvanceMovesNow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	f.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), f.Now())
}

func TestFakeTickerFiresWhenDue(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	tk := f.NewTicker(time.Second)
	defer tk.Stop()

	f.Advance(500 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticker fired before its deadline")
	default:
	}

	f.Advance(500 * time.Millisecond)
	select {
	case at := <-tk.C():
		assert.Equal(t, time.Unix(1, 0), at)
	default:
		t.Fatal("expected ticker to fire at its deadline")
	}
}

func TestFakeTickerDropsMissedTicks(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	tk := f.NewTicker(time.Second)
	defer tk.Stop()

	f.Advance(5 * time.Second)

	require.Len(t, tk.C(), 1)
	<-tk.C()

	f.Advance(999 * time.Millisecond)
	assert.Len(t, tk.C(), 0, "next deadline must be rescheduled past the jump")

	f.Advance(time.Millisecond)
	assert.Len(t, tk.C(), 1)
}

func TestFakeTickerStopUnregisters(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	tk := f.NewTicker(time.Second)
	require.Equal(t, 1, f.Tickers())

	tk.Stop()
	tk.Stop()
	assert.Equal(t, 0, f.Tickers())

	f.Advance(2 * time.Second)
	assert.Len(t, tk.C(), 0)
}

func TestRealClockTicker(t *testing.T) {
	c := Real()
	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()

	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker did not fire")
	}
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}
