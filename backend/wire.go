// Package backend models the document-processing service as a typed
// request/response facade over a fire-and-forget message channel. The
// service itself (decoding, rasterization, text extraction) is opaque;
// this package owns correlation ids, the pending-call table, the startup
// handshake, and the failure envelope, and exposes the remote operations
// as ordinary Go methods.
package backend

import "fmt"

// Kind discriminates message envelopes on the wire.
type Kind int

const (
	// KindReady is sent once by the service before anything else and
	// announces the callable method names.
	KindReady Kind = iota
	// KindRequest carries a correlated call from the proxy to the service.
	KindRequest
	// KindResponse carries a successful result back to the proxy.
	KindResponse
	// KindFailure carries a RemoteError back to the proxy.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindReady:
		return "ready"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Envelope is one message on the channel. Which fields are meaningful
// depends on Kind. Binary payloads inside Result (bitmap pixels, source
// buffers in Args) are shared by reference across the channel, never
// copied.
type Envelope struct {
	Kind    Kind
	ID      uint64        // correlation id; zero for ready
	Method  string        // request
	Args    []interface{} // request
	Result  interface{}   // response
	Err     *RemoteError  // failure
	Methods []string      // ready
}

// RemoteError is a typed failure crossing the wire: a stable kind for
// programmatic handling, a human-readable message, and a diagnostic
// trace from the service side.
type RemoteError struct {
	Kind    string
	Message string
	Trace   string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Kind
	}
	return e.Kind + ": " + e.Message
}

// Error kinds produced locally by the proxy.
const (
	ErrKindProtocol = "protocol-violation"
	ErrKindClosed   = "channel-closed"
)

// Remote method names announced at handshake time. The set is closed at
// build time; the handshake is a capability check, not discovery.
const (
	MethodOpenDocument  = "openDocument"
	MethodCloseDocument = "closeDocument"
	MethodCountPages    = "countPages"
	MethodTitle         = "documentTitle"
	MethodOutline       = "documentOutline"
	MethodPageSize      = "getPageSize"
	MethodPageText      = "getPageText"
	MethodPageLinks     = "getPageLinks"
	MethodRenderPage    = "renderPage"
	MethodSearchPage    = "searchPage"
)

// AllMethods lists every remote operation the proxy knows how to issue.
func AllMethods() []string {
	return []string{
		MethodOpenDocument,
		MethodCloseDocument,
		MethodCountPages,
		MethodTitle,
		MethodOutline,
		MethodPageSize,
		MethodPageText,
		MethodPageLinks,
		MethodRenderPage,
		MethodSearchPage,
	}
}
