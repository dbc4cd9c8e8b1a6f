// posture-watch shows a running posture-monitor's live score in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/monitor"
	"github.com/teslashibe/go-posture/pkg/watch"
)

func main() {
	server := flag.String("server", "http://localhost:5000", "posture-monitor status server")
	debug := flag.Bool("debug", false, "Log stream events to posture-watch.log")
	flag.Parse()

	if *debug {
		f, err := os.OpenFile("posture-watch.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			stdlog.Fatalf("❌ Log file: %v", err)
		}
		defer f.Close()
		log.InitWriter(f, "debug", false)
	} else {
		log.InitWriter(io.Discard, "error", false)
	}

	wsURL, err := watch.StreamURL(*server)
	if err != nil {
		stdlog.Fatalf("❌ %v", err)
	}

	program := tea.NewProgram(watch.NewModel(wsURL), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := watch.NewStream(wsURL)
	stream.OnState = func(connected bool, err error) {
		program.Send(watch.ConnMsg{Connected: connected, Err: err})
	}
	go stream.Run(ctx, func(f monitor.FrameResult) {
		program.Send(watch.FrameMsg(f))
	})

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
