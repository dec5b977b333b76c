package pipeline

import (
	"context"
	"errors"
	"sync"
)

var ErrAlreadyRunning = errors.New("pipeline already running")

// Step issues one device exchange and returns once it has settled.
type Step func(ctx context.Context) error

// Pipeline runs its steps strictly one after another. A failed step is reported to the
// settle observer and the pass moves on to the next step.
type Pipeline struct {
	steps []Step

	mux      sync.Mutex
	running  bool
	cursor   int
	onSettle func(index int, err error)
}

func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// OnSettle registers fn to be called after each step with the step's index and outcome.
func (p *Pipeline) OnSettle(fn func(index int, err error)) *Pipeline {
	p.mux.Lock()
	p.onSettle = fn
	p.mux.Unlock()
	return p
}

func (p *Pipeline) Total() int {
	return len(p.steps)
}

// Cursor is the number of steps settled in the current or last pass.
func (p *Pipeline) Cursor() int {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.cursor
}

func (p *Pipeline) Running() bool {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.running
}

// Run makes one full pass. It only returns an error if the pass could not start or ctx
// ended before every step had run.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mux.Lock()
	if p.running {
		p.mux.Unlock()
		return ErrAlreadyRunning
	}
	p.running = true
	p.cursor = 0
	p.mux.Unlock()
	defer func() {
		p.mux.Lock()
		p.running = false
		p.mux.Unlock()
	}()

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := step(ctx)
		p.mux.Lock()
		p.cursor = i + 1
		fn := p.onSettle
		p.mux.Unlock()
		if fn != nil {
			fn(i, err)
		}
	}
	return nil
}
