package scripting

import (
	"context"

	"github.com/dop251/goja"
)

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	vm := goja.New()
	return &GojaEngine{vm: vm}
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val.Export(), nil
}

// RegisterViewer installs the 'app' and 'viewer' globals. The viewer
// object mirrors the keyboard surface: zoom, navigation, search.
func (e *GojaEngine) RegisterViewer(api ViewerAPI) error {
	appObj := e.vm.NewObject()
	err := appObj.Set("alert", func(call goja.FunctionCall) goja.Value {
		msg := ""
		if len(call.Arguments) > 0 {
			msg = call.Arguments[0].String()
		}
		api.Alert(msg)
		return goja.Undefined()
	})
	if err != nil {
		return err
	}
	if err := e.vm.Set("app", appObj); err != nil {
		return err
	}

	viewerObj := e.vm.NewObject()
	if err := viewerObj.Set("title", func(goja.FunctionCall) goja.Value {
		return e.vm.ToValue(api.Title())
	}); err != nil {
		return err
	}
	if err := viewerObj.Set("pageCount", func(goja.FunctionCall) goja.Value {
		return e.vm.ToValue(api.PageCount())
	}); err != nil {
		return err
	}
	if err := viewerObj.Set("gotoPage", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) > 0 {
			api.GotoPage(int(call.Arguments[0].ToInteger()))
		}
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := viewerObj.Set("find", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Null()
		}
		needle := call.Arguments[0].String()
		direction := 1
		if len(call.Arguments) > 1 {
			direction = int(call.Arguments[1].ToInteger())
		}
		page, hits, ok := api.Find(needle, direction)
		if !ok {
			return goja.Null()
		}
		result := e.vm.NewObject()
		result.Set("page", page)
		result.Set("hits", hits)
		return result
	}); err != nil {
		return err
	}
	if err := viewerObj.Set("clearSearch", func(goja.FunctionCall) goja.Value {
		api.ClearSearch()
		return goja.Undefined()
	}); err != nil {
		return err
	}

	// 'zoom' reads and writes through accessors so scripts can treat it
	// as a plain property.
	if err := viewerObj.DefineAccessorProperty("zoom",
		e.vm.ToValue(func(goja.FunctionCall) goja.Value {
			return e.vm.ToValue(api.Zoom())
		}),
		e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) > 0 {
				api.SetZoom(call.Arguments[0].ToFloat())
			}
			return goja.Undefined()
		}),
		goja.FLAG_TRUE,
		goja.FLAG_TRUE,
	); err != nil {
		return err
	}

	return e.vm.Set("viewer", viewerObj)
}
