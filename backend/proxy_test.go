package backend

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeService answers requests on the service end of a pipe with a
// caller-supplied handler.
type fakeService struct {
	end Transport
}

func startFakeService(t *testing.T, methods []string, handle func(Envelope) Envelope) (*Proxy, *fakeService) {
	t.Helper()
	proxyEnd, serviceEnd := Pipe()
	svc := &fakeService{end: serviceEnd}
	if methods != nil {
		if err := serviceEnd.Send(Envelope{Kind: KindReady, Methods: methods}); err != nil {
			t.Fatalf("send ready: %v", err)
		}
	}
	if handle != nil {
		go func() {
			for {
				select {
				case env := <-serviceEnd.Recv():
					if env.Kind != KindRequest {
						continue
					}
					reply := handle(env)
					if err := serviceEnd.Send(reply); err != nil {
						return
					}
				case <-serviceEnd.Done():
					return
				}
			}
		}()
	}
	p := NewProxy(proxyEnd, ProxyConfig{})
	t.Cleanup(func() { p.Close() })
	return p, svc
}

func TestProxy_Handshake(t *testing.T) {
	p, _ := startFakeService(t, AllMethods(), func(req Envelope) Envelope {
		return Envelope{Kind: KindResponse, ID: req.ID, Result: 5}
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !p.Supports(MethodCountPages) {
		t.Fatalf("announced method not recorded")
	}
	n, err := p.CountPages(ctx, Handle("h"))
	if err != nil || n != 5 {
		t.Fatalf("count pages: %d %v", n, err)
	}
}

func TestProxy_StartBlocksUntilReady(t *testing.T) {
	proxyEnd, serviceEnd := Pipe()
	p := NewProxy(proxyEnd, ProxyConfig{})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("start before ready: %v", err)
	}

	if err := serviceEnd.Send(Envelope{Kind: KindReady, Methods: AllMethods()}); err != nil {
		t.Fatalf("send ready: %v", err)
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := p.Start(ctx2); err != nil {
		t.Fatalf("start after ready: %v", err)
	}
}

func TestProxy_NotSupported(t *testing.T) {
	p, _ := startFakeService(t, []string{MethodCountPages}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := p.Title(ctx, Handle("h"))
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("want ErrNotSupported, got %v", err)
	}
}

func TestProxy_OutOfOrderResponses(t *testing.T) {
	proxyEnd, serviceEnd := Pipe()
	p := NewProxy(proxyEnd, ProxyConfig{})
	defer p.Close()
	if err := serviceEnd.Send(Envelope{Kind: KindReady, Methods: AllMethods()}); err != nil {
		t.Fatalf("send ready: %v", err)
	}

	// Answer the two requests in reverse order of arrival.
	go func() {
		var reqs []Envelope
		for len(reqs) < 2 {
			env := <-serviceEnd.Recv()
			if env.Kind == KindRequest {
				reqs = append(reqs, env)
			}
		}
		serviceEnd.Send(Envelope{Kind: KindResponse, ID: reqs[1].ID, Result: reqs[1].Args[0].(Handle) == Handle("b")})
		serviceEnd.Send(Envelope{Kind: KindResponse, ID: reqs[0].ID, Result: 11})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	type res struct {
		n   int
		err error
	}
	first := make(chan res, 1)
	go func() {
		n, err := p.CountPages(ctx, Handle("a"))
		first <- res{n, err}
	}()
	// Second call resolves first; its result must not leak into the
	// first call's future.
	time.Sleep(10 * time.Millisecond)
	if _, err := p.Call(ctx, MethodCountPages, Handle("b")); err != nil {
		t.Fatalf("second call: %v", err)
	}
	got := <-first
	if got.err != nil || got.n != 11 {
		t.Fatalf("first call: %d %v", got.n, got.err)
	}
}

func TestProxy_FailureEnvelope(t *testing.T) {
	p, _ := startFakeService(t, AllMethods(), func(req Envelope) Envelope {
		return Envelope{Kind: KindFailure, ID: req.ID, Err: &RemoteError{
			Kind:    "open-failed",
			Message: "not a document",
			Trace:   "decode stack",
		}}
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := p.OpenDocument(ctx, []byte("junk"), "pdf")
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("want RemoteError, got %v", err)
	}
	if remote.Kind != "open-failed" || remote.Trace != "decode stack" {
		t.Fatalf("remote error fields: %+v", remote)
	}
}

func TestProxy_UnrecognizedEnvelope(t *testing.T) {
	proxyEnd, serviceEnd := Pipe()
	p := NewProxy(proxyEnd, ProxyConfig{})
	defer p.Close()
	serviceEnd.Send(Envelope{Kind: KindReady, Methods: AllMethods()})

	go func() {
		env := <-serviceEnd.Recv()
		// Reply with a kind the proxy has never heard of.
		serviceEnd.Send(Envelope{Kind: Kind(99), ID: env.ID})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := p.CountPages(ctx, Handle("h"))
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Kind != ErrKindProtocol {
		t.Fatalf("want protocol violation, got %v", err)
	}

	// An unmatched garbage envelope is dropped and the proxy keeps
	// serving.
	serviceEnd.Send(Envelope{Kind: Kind(99), ID: 12345})
	go func() {
		env := <-serviceEnd.Recv()
		serviceEnd.Send(Envelope{Kind: KindResponse, ID: env.ID, Result: 3})
	}()
	n, err := p.CountPages(ctx, Handle("h"))
	if err != nil || n != 3 {
		t.Fatalf("proxy did not survive garbage envelope: %d %v", n, err)
	}
}

func TestProxy_TypedResultMismatch(t *testing.T) {
	p, _ := startFakeService(t, AllMethods(), func(req Envelope) Envelope {
		return Envelope{Kind: KindResponse, ID: req.ID, Result: "not an int"}
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := p.CountPages(ctx, Handle("h"))
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Kind != ErrKindProtocol {
		t.Fatalf("want protocol violation, got %v", err)
	}
}

func TestProxy_ContextCancel(t *testing.T) {
	p, _ := startFakeService(t, AllMethods(), nil) // never answers
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	callCtx, callCancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer callCancel()
	_, err := p.CountPages(callCtx, Handle("h"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	p.mu.Lock()
	n := len(p.pending)
	p.mu.Unlock()
	if n != 0 {
		t.Fatalf("pending table leaked %d entries", n)
	}
}

func TestProxy_CloseRejectsPending(t *testing.T) {
	p, _ := startFakeService(t, AllMethods(), nil)
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := p.CountPages(ctx, Handle("h"))
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	p.Close()
	if err := <-done; !errors.Is(err, ErrProxyClosed) {
		t.Fatalf("want ErrProxyClosed, got %v", err)
	}
}
