package viewer

import (
	"context"
	"time"

	"github.com/wudi/docview/observability"
	"github.com/wudi/docview/scripting"
)

// ScriptAPI adapts a session to the scripting surface. Scripts get the
// same operations the keyboard has, nothing more: zoom, navigation,
// search. Alert goes to the injected callback, or to the session log
// when none is given.
type ScriptAPI struct {
	session *Session
	alert   func(string)
}

var _ scripting.ViewerAPI = (*ScriptAPI)(nil)

// NewScriptAPI wraps a session for script access. alert may be nil.
func NewScriptAPI(s *Session, alert func(string)) *ScriptAPI {
	return &ScriptAPI{session: s, alert: alert}
}

func (a *ScriptAPI) Title() string        { return a.session.Title() }
func (a *ScriptAPI) PageCount() int       { return a.session.PageCount() }
func (a *ScriptAPI) Zoom() float64        { return a.session.Zoom() }
func (a *ScriptAPI) SetZoom(zoom float64) { a.session.SetZoom(zoom) }
func (a *ScriptAPI) GotoPage(n int)       { a.session.ScrollToPage(n) }
func (a *ScriptAPI) ClearSearch()         { a.session.ClearSearch() }

// Find sets the needle and walks one step in the given direction. The
// walk gets a generous deadline; a script should never wedge the
// session.
func (a *ScriptAPI) Find(needle string, direction int) (int, int, bool) {
	a.session.SetNeedle(needle)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := a.session.Search(ctx, direction, 1)
	if err != nil || res.Status != SearchFound {
		return 0, 0, false
	}
	return res.Page, res.Hits, true
}

func (a *ScriptAPI) Alert(message string) {
	if a.alert != nil {
		a.alert(message)
		return
	}
	a.session.log.Info("script alert", observability.String("message", message))
}
