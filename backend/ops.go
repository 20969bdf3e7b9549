package backend

import (
	"context"
	"fmt"
)

// Typed wrappers over Call for the closed set of remote operations. A
// result of the wrong shape is a protocol violation, reported the same
// way as an unrecognized envelope.

func protocolErr(method string, got interface{}) error {
	return &RemoteError{
		Kind:    ErrKindProtocol,
		Message: fmt.Sprintf("%s: unexpected result type %T", method, got),
	}
}

// OpenDocument submits a raw buffer with a format hint and returns the
// service-assigned handle. The buffer travels by reference.
func (p *Proxy) OpenDocument(ctx context.Context, data []byte, formatHint string) (Handle, error) {
	res, err := p.Call(ctx, MethodOpenDocument, data, formatHint)
	if err != nil {
		return "", err
	}
	h, ok := res.(Handle)
	if !ok {
		return "", protocolErr(MethodOpenDocument, res)
	}
	return h, nil
}

// CloseDocument releases the service-side resources for a handle.
func (p *Proxy) CloseDocument(ctx context.Context, h Handle) error {
	_, err := p.Call(ctx, MethodCloseDocument, h)
	return err
}

// CountPages returns the number of pages in the document.
func (p *Proxy) CountPages(ctx context.Context, h Handle) (int, error) {
	res, err := p.Call(ctx, MethodCountPages, h)
	if err != nil {
		return 0, err
	}
	n, ok := res.(int)
	if !ok {
		return 0, protocolErr(MethodCountPages, res)
	}
	return n, nil
}

// Title returns the document title, possibly empty.
func (p *Proxy) Title(ctx context.Context, h Handle) (string, error) {
	res, err := p.Call(ctx, MethodTitle, h)
	if err != nil {
		return "", err
	}
	s, ok := res.(string)
	if !ok {
		return "", protocolErr(MethodTitle, res)
	}
	return s, nil
}

// Outline returns the outline tree, or nil when the document has none.
func (p *Proxy) Outline(ctx context.Context, h Handle) ([]OutlineItem, error) {
	res, err := p.Call(ctx, MethodOutline, h)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	items, ok := res.([]OutlineItem)
	if !ok {
		return nil, protocolErr(MethodOutline, res)
	}
	return items, nil
}

// PageSize returns the extent of a page in points. pageIndex is 0-based;
// this particular wire call numbers pages from 1, so the index is
// shifted on the way out.
func (p *Proxy) PageSize(ctx context.Context, h Handle, pageIndex int) (Size, error) {
	res, err := p.Call(ctx, MethodPageSize, h, pageIndex+1)
	if err != nil {
		return Size{}, err
	}
	sz, ok := res.(Size)
	if !ok {
		return Size{}, protocolErr(MethodPageSize, res)
	}
	return sz, nil
}

// PageText returns the structured text of a page (0-based index).
func (p *Proxy) PageText(ctx context.Context, h Handle, pageIndex int) (TextContent, error) {
	res, err := p.Call(ctx, MethodPageText, h, pageIndex)
	if err != nil {
		return TextContent{}, err
	}
	tc, ok := res.(TextContent)
	if !ok {
		return TextContent{}, protocolErr(MethodPageText, res)
	}
	return tc, nil
}

// PageLinks returns the link regions of a page (0-based index).
func (p *Proxy) PageLinks(ctx context.Context, h Handle, pageIndex int) ([]Link, error) {
	res, err := p.Call(ctx, MethodPageLinks, h, pageIndex)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	links, ok := res.([]Link)
	if !ok {
		return nil, protocolErr(MethodPageLinks, res)
	}
	return links, nil
}

// RenderPage rasterizes a page at the given scale factor. A nil bitmap
// means the service superseded the request.
func (p *Proxy) RenderPage(ctx context.Context, h Handle, pageIndex int, scale float64) (*Bitmap, error) {
	res, err := p.Call(ctx, MethodRenderPage, h, pageIndex, scale)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	bm, ok := res.(*Bitmap)
	if !ok {
		return nil, protocolErr(MethodRenderPage, res)
	}
	return bm, nil
}

// SearchPage returns hit rectangles for the needle on one page, possibly
// empty.
func (p *Proxy) SearchPage(ctx context.Context, h Handle, pageIndex int, needle string) ([]Rect, error) {
	res, err := p.Call(ctx, MethodSearchPage, h, pageIndex, needle)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	hits, ok := res.([]Rect)
	if !ok {
		return nil, protocolErr(MethodSearchPage, res)
	}
	return hits, nil
}
