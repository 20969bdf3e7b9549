package backend

import (
	"errors"
	"sync"
)

// ErrTransportClosed is returned by Send after either end has closed.
var ErrTransportClosed = errors.New("backend: transport closed")

// Transport is one end of a reliable, in-order message channel. Send is
// fire-and-forget; delivery and correlation are the proxy's business.
type Transport interface {
	Send(Envelope) error
	Recv() <-chan Envelope
	// Done is closed once either end closes the transport.
	Done() <-chan struct{}
	Close() error
}

type pipeEnd struct {
	out  chan Envelope
	in   chan Envelope
	done chan struct{}
	once *sync.Once
}

// Pipe returns two connected in-process transport ends: one for the
// proxy, one for the service. Messages sent on one end arrive on the
// other in order. The buffer keeps Send from blocking under normal
// request rates.
func Pipe() (proxyEnd, serviceEnd Transport) {
	a := make(chan Envelope, 64)
	b := make(chan Envelope, 64)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{out: a, in: b, done: done, once: once},
		&pipeEnd{out: b, in: a, done: done, once: once}
}

func (p *pipeEnd) Send(env Envelope) error {
	select {
	case <-p.done:
		return ErrTransportClosed
	case p.out <- env:
		return nil
	}
}

func (p *pipeEnd) Recv() <-chan Envelope { return p.in }

func (p *pipeEnd) Done() <-chan struct{} { return p.done }

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
