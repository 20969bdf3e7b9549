// Package stub is an in-memory document service speaking the backend
// wire contract. It fabricates page content deterministically from the
// opened buffer, which is all the orchestration layer needs for tests
// and demos; it is not a rendering engine.
package stub

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wudi/docview/backend"
	"github.com/wudi/docview/observability"
)

// Document is the service-side model of an open document.
type Document struct {
	Title   string
	Outline []backend.OutlineItem
	Pages   []Page
}

// Page holds the precomputed content of one page.
type Page struct {
	Size  backend.Size
	Text  backend.TextContent
	Links []backend.Link
}

// Decoder turns an opened buffer into a Document.
type Decoder func(data []byte, formatHint string) (*Document, error)

// Config carries optional service settings.
type Config struct {
	// Decode builds the document model at open time. Defaults to
	// SyntheticDecode.
	Decode Decoder
	// Delay is an artificial per-request latency, useful for exercising
	// debounce and staleness paths.
	Delay  time.Duration
	Logger observability.Logger
}

// Service answers requests arriving on its transport end. Each request
// is handled on its own goroutine, so responses may interleave; the
// correlation id keeps them matched.
type Service struct {
	transport backend.Transport
	cfg       Config

	mu   sync.Mutex
	docs map[backend.Handle]*Document
}

// Serve announces the method set on the transport and starts answering
// requests.
func Serve(t backend.Transport, cfg Config) (*Service, error) {
	if cfg.Decode == nil {
		cfg.Decode = SyntheticDecode
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	s := &Service{
		transport: t,
		cfg:       cfg,
		docs:      make(map[backend.Handle]*Document),
	}
	if err := t.Send(backend.Envelope{Kind: backend.KindReady, Methods: backend.AllMethods()}); err != nil {
		return nil, err
	}
	go s.loop()
	return s, nil
}

func (s *Service) loop() {
	for {
		select {
		case env := <-s.transport.Recv():
			if env.Kind != backend.KindRequest {
				continue
			}
			go s.handle(env)
		case <-s.transport.Done():
			return
		}
	}
}

func (s *Service) handle(req backend.Envelope) {
	if s.cfg.Delay > 0 {
		time.Sleep(s.cfg.Delay)
	}
	result, err := s.invoke(req.Method, req.Args)
	if err != nil {
		remote, ok := err.(*backend.RemoteError)
		if !ok {
			remote = &backend.RemoteError{Kind: "internal", Message: err.Error()}
		}
		s.transport.Send(backend.Envelope{Kind: backend.KindFailure, ID: req.ID, Err: remote})
		return
	}
	s.transport.Send(backend.Envelope{Kind: backend.KindResponse, ID: req.ID, Result: result})
}

func (s *Service) invoke(method string, args []interface{}) (interface{}, error) {
	switch method {
	case backend.MethodOpenDocument:
		data, _ := args[0].([]byte)
		hint, _ := args[1].(string)
		doc, err := s.cfg.Decode(data, hint)
		if err != nil {
			return nil, &backend.RemoteError{
				Kind:    "open-failed",
				Message: err.Error(),
				Trace:   fmt.Sprintf("stub decode (%d bytes, hint %q)", len(data), hint),
			}
		}
		h := backend.Handle(uuid.NewString())
		s.mu.Lock()
		s.docs[h] = doc
		s.mu.Unlock()
		s.cfg.Logger.Info("document opened",
			observability.String("handle", string(h)),
			observability.Int("pages", len(doc.Pages)))
		return h, nil
	case backend.MethodCloseDocument:
		h, _ := args[0].(backend.Handle)
		s.mu.Lock()
		delete(s.docs, h)
		s.mu.Unlock()
		return nil, nil
	case backend.MethodCountPages:
		doc, err := s.doc(args)
		if err != nil {
			return nil, err
		}
		return len(doc.Pages), nil
	case backend.MethodTitle:
		doc, err := s.doc(args)
		if err != nil {
			return nil, err
		}
		return doc.Title, nil
	case backend.MethodOutline:
		doc, err := s.doc(args)
		if err != nil {
			return nil, err
		}
		if len(doc.Outline) == 0 {
			return nil, nil
		}
		return doc.Outline, nil
	case backend.MethodPageSize:
		doc, err := s.doc(args)
		if err != nil {
			return nil, err
		}
		// This call numbers pages from 1.
		n, _ := args[1].(int)
		page, err := s.page(doc, n-1)
		if err != nil {
			return nil, err
		}
		return page.Size, nil
	case backend.MethodPageText:
		doc, err := s.doc(args)
		if err != nil {
			return nil, err
		}
		idx, _ := args[1].(int)
		page, err := s.page(doc, idx)
		if err != nil {
			return nil, err
		}
		return page.Text, nil
	case backend.MethodPageLinks:
		doc, err := s.doc(args)
		if err != nil {
			return nil, err
		}
		idx, _ := args[1].(int)
		page, err := s.page(doc, idx)
		if err != nil {
			return nil, err
		}
		if len(page.Links) == 0 {
			return nil, nil
		}
		return page.Links, nil
	case backend.MethodRenderPage:
		doc, err := s.doc(args)
		if err != nil {
			return nil, err
		}
		idx, _ := args[1].(int)
		scale, _ := args[2].(float64)
		page, err := s.page(doc, idx)
		if err != nil {
			return nil, err
		}
		return renderBitmap(idx, page.Size, scale), nil
	case backend.MethodSearchPage:
		doc, err := s.doc(args)
		if err != nil {
			return nil, err
		}
		idx, _ := args[1].(int)
		needle, _ := args[2].(string)
		page, err := s.page(doc, idx)
		if err != nil {
			return nil, err
		}
		hits := searchPage(page, needle)
		if len(hits) == 0 {
			return nil, nil
		}
		return hits, nil
	default:
		return nil, &backend.RemoteError{
			Kind:    "unknown-method",
			Message: fmt.Sprintf("no handler for %q", method),
		}
	}
}

func (s *Service) doc(args []interface{}) (*Document, error) {
	h, _ := args[0].(backend.Handle)
	s.mu.Lock()
	doc, ok := s.docs[h]
	s.mu.Unlock()
	if !ok {
		return nil, &backend.RemoteError{
			Kind:    "bad-handle",
			Message: fmt.Sprintf("unknown document handle %q", h),
		}
	}
	return doc, nil
}

func (s *Service) page(doc *Document, idx int) (*Page, error) {
	if idx < 0 || idx >= len(doc.Pages) {
		return nil, &backend.RemoteError{
			Kind:    "bad-page",
			Message: fmt.Sprintf("page %d out of range [0,%d)", idx, len(doc.Pages)),
		}
	}
	return &doc.Pages[idx], nil
}
