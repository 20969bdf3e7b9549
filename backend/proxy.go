package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wudi/docview/observability"
)

// ErrNotSupported is returned when a call names a method the service
// did not announce at handshake time.
var ErrNotSupported = errors.New("backend: method not supported by service")

// ErrProxyClosed is returned by calls issued after Close.
var ErrProxyClosed = errors.New("backend: proxy closed")

type outcome struct {
	result interface{}
	err    error
}

// Proxy turns the message channel into typed async calls. Each call gets
// a monotonically increasing correlation id and one entry in the pending
// table; the entry is removed when the matching response, failure, or
// protocol violation arrives. The proxy issues nothing before the
// service's ready announcement.
type Proxy struct {
	transport Transport
	log       observability.Logger

	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan outcome
	methods map[string]bool
	closed  bool

	ready chan struct{}
	done  chan struct{}
}

// ProxyConfig carries optional proxy settings.
type ProxyConfig struct {
	Logger observability.Logger
}

// NewProxy wraps a transport and starts the receive loop. Call Start to
// wait for the service handshake before issuing operations.
func NewProxy(t Transport, cfg ProxyConfig) *Proxy {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	p := &Proxy{
		transport: t,
		log:       cfg.Logger,
		pending:   make(map[uint64]chan outcome),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.receive()
	return p
}

// Start blocks until the service has announced its methods, the context
// is canceled, or the transport closes.
func (p *Proxy) Start(ctx context.Context) error {
	select {
	case <-p.ready:
		return nil
	case <-p.done:
		return ErrProxyClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Supports reports whether the service announced the given method.
func (p *Proxy) Supports(method string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.methods[method]
}

// Close tears down the proxy. Outstanding calls are rejected.
func (p *Proxy) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for id, ch := range p.pending {
		delete(p.pending, id)
		ch <- outcome{err: ErrProxyClosed}
	}
	p.mu.Unlock()
	close(p.done)
	return p.transport.Close()
}

// Call issues one request and blocks until its response arrives or the
// context is canceled. Exactly one outbound message is sent per call.
func (p *Proxy) Call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	select {
	case <-p.ready:
	case <-p.done:
		return nil, ErrProxyClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrProxyClosed
	}
	if !p.methods[method] {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, method)
	}
	id := p.nextID.Add(1)
	ch := make(chan outcome, 1)
	p.pending[id] = ch
	p.mu.Unlock()

	if err := p.transport.Send(Envelope{Kind: KindRequest, ID: id, Method: method, Args: args}); err != nil {
		p.drop(id)
		return nil, err
	}

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		p.drop(id)
		return nil, ctx.Err()
	}
}

func (p *Proxy) drop(id uint64) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

func (p *Proxy) receive() {
	for {
		select {
		case env := <-p.transport.Recv():
			p.dispatch(env)
		case <-p.transport.Done():
			p.rejectAll(ErrTransportClosed)
			return
		case <-p.done:
			return
		}
	}
}

func (p *Proxy) dispatch(env Envelope) {
	switch env.Kind {
	case KindReady:
		p.mu.Lock()
		p.methods = make(map[string]bool, len(env.Methods))
		for _, m := range env.Methods {
			p.methods[m] = true
		}
		p.mu.Unlock()
		select {
		case <-p.ready:
		default:
			close(p.ready)
		}
		p.log.Info("backend ready", observability.Int("methods", len(env.Methods)))
	case KindResponse:
		p.resolve(env.ID, outcome{result: env.Result})
	case KindFailure:
		err := env.Err
		if err == nil {
			err = &RemoteError{Kind: ErrKindProtocol, Message: "failure envelope without error"}
		}
		p.resolve(env.ID, outcome{err: err})
	default:
		// Unrecognized envelope. Reject the matching pending call if
		// there is one; otherwise drop it. Either way the proxy keeps
		// running.
		rejected := p.resolve(env.ID, outcome{err: &RemoteError{
			Kind:    ErrKindProtocol,
			Message: fmt.Sprintf("unrecognized envelope kind %v", env.Kind),
		}})
		if !rejected {
			p.log.Warn("dropping unrecognized envelope",
				observability.String("kind", env.Kind.String()),
				observability.Int64("id", int64(env.ID)))
		}
	}
}

func (p *Proxy) resolve(id uint64, out outcome) bool {
	p.mu.Lock()
	ch, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- out
	return true
}

func (p *Proxy) rejectAll(err error) {
	p.mu.Lock()
	for id, ch := range p.pending {
		delete(p.pending, id)
		ch <- outcome{err: err}
	}
	p.mu.Unlock()
}
