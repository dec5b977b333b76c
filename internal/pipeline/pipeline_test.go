package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RunOrderWithFailingStep(t *testing.T) {
	var log []string
	var active, overlap int32
	step := func(name string, err error) Step {
		return func(ctx context.Context) error {
			if atomic.AddInt32(&active, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			defer atomic.AddInt32(&active, -1)
			log = append(log, "start "+name)
			time.Sleep(time.Millisecond)
			log = append(log, "end "+name)
			return err
		}
	}
	failure := errors.New("nk")
	p := New(step("a", nil), step("b", failure), step("c", nil))

	var settled []string
	p.OnSettle(func(index int, err error) {
		settled = append(settled, fmt.Sprintf("%d:%v", index, err))
	})
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, []string{"start a", "end a", "start b", "end b", "start c", "end c"}, log)
	assert.Equal(t, []string{"0:<nil>", "1:nk", "2:<nil>"}, settled)
	assert.Equal(t, int32(0), overlap)
	assert.Equal(t, 3, p.Cursor())
	assert.Equal(t, 3, p.Total())
	assert.False(t, p.Running())
}

func Test_RunRejectsConcurrentPass(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	p := New(func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	})
	done := make(chan error)
	go func() { done <- p.Run(context.Background()) }()
	<-entered

	assert.True(t, p.Running())
	assert.Equal(t, 0, p.Cursor())
	assert.ErrorIs(t, p.Run(context.Background()), ErrAlreadyRunning)

	close(release)
	assert.NoError(t, <-done)
	assert.Equal(t, 1, p.Cursor())
}

func Test_RunStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran []int
	p := New(
		func(ctx context.Context) error { ran = append(ran, 0); return nil },
		func(ctx context.Context) error { ran = append(ran, 1); cancel(); return nil },
		func(ctx context.Context) error { ran = append(ran, 2); return nil },
	)
	assert.ErrorIs(t, p.Run(ctx), context.Canceled)
	assert.Equal(t, []int{0, 1}, ran)
	assert.Equal(t, 2, p.Cursor())
	assert.False(t, p.Running())
}

func Test_RunEmpty(t *testing.T) {
	p := New()
	assert.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 0, p.Total())
}
