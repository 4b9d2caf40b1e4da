package drilldown

import (
	"context"
	"errors"
)

// ErrSuperseded resolves a Pending whose result was dropped because a newer
// request was issued before it completed.
var ErrSuperseded = errors.New("drilldown: request superseded")

// ErrClosed resolves a request that needed a load after the controller was closed.
var ErrClosed = errors.New("drilldown: controller closed")

// Pending tracks the completion of one controller request.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolved(err error) *Pending {
	p := newPending()
	p.resolve(err)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns nil until the request has completed.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the request completes or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
