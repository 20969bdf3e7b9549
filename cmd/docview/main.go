// Command docview is a terminal front end for the viewer orchestration
// core. It opens a document from a file or URL against the in-process
// stub service, shows page text with search and link overlays, and
// drives zoom, directional search, outline navigation, and optional
// automation scripts.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wudi/docview/backend"
	"github.com/wudi/docview/backend/stub"
	"github.com/wudi/docview/observability"
)

type options struct {
	target  string
	zoom    float64
	script  string
	watch   bool
	delay   time.Duration
	logPath string
	verbose bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docview: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "docview: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: docview [flags] <file-or-url>\n")
		flag.PrintDefaults()
	}
	zoom := flag.Float64("zoom", 96, "Initial zoom in pixels per inch (96 = 100%)")
	script := flag.String("script", "", "JavaScript automation file to run after open")
	watch := flag.Bool("watch", false, "Reload when the opened file changes on disk")
	delay := flag.Duration("delay", 0, "Artificial backend latency, e.g. 150ms")
	logPath := flag.String("log", "", "Write structured logs to this file")
	verbose := flag.Bool("v", false, "Include debug events in the log")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing document path or url")
	}
	opts.target = flag.Arg(0)
	opts.zoom = *zoom
	opts.script = *script
	opts.watch = *watch
	opts.delay = *delay
	opts.logPath = *logPath
	opts.verbose = *verbose
	return opts, nil
}

func run(opts options) error {
	var logOut io.Writer
	if opts.logPath != "" {
		f, err := os.OpenFile(opts.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	var log observability.Logger = observability.NopLogger{}
	if logOut != nil {
		log = observability.NewTextLogger(logOut, opts.verbose)
	}

	var script string
	if opts.script != "" {
		src, err := os.ReadFile(opts.script)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		script = string(src)
	}

	clientEnd, serviceEnd := backend.Pipe()
	if _, err := stub.Serve(serviceEnd, stub.Config{
		Delay:  opts.delay,
		Logger: log.With(observability.String("component", "stub")),
	}); err != nil {
		return fmt.Errorf("start stub service: %w", err)
	}
	proxy := backend.NewProxy(clientEnd, backend.ProxyConfig{
		Logger: log.With(observability.String("component", "proxy")),
	})
	defer proxy.Close()

	m := newModel(appConfig{
		target:      opts.target,
		isURL:       isURL(opts.target),
		proxy:       proxy,
		log:         log.With(observability.String("component", "tui")),
		initialZoom: opts.zoom,
		script:      script,
		watch:       opts.watch && !isURL(opts.target),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.program = p
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
