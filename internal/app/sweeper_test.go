package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweeperRunTicksUntilCanceled(t *testing.T) {
	o := NewOrchestrator(100)
	c := connect(o, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSweeper(o, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.pings > 0
	}, time.Second, 5*time.Millisecond, "sweep should probe registered connections")

	// Keep the connection alive across passes.
	o.MarkAlive("s1")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}

func TestNewSweeperDefaultsInterval(t *testing.T) {
	s := NewSweeper(NewOrchestrator(100), 0)
	assert.Equal(t, 5*time.Second, s.interval)
}
