package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/thereayou/hushroom/internal/logging"
	"github.com/thereayou/hushroom/internal/tui"
	"github.com/thereayou/hushroom/pkg/client"
	"github.com/thereayou/hushroom/pkg/domain"
	"github.com/thereayou/hushroom/pkg/names"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	url := flag.String("url", envOr("HUSHROOM_URL", "ws://localhost:3001/ws"), "relay websocket url")
	name := flag.String("name", "", "display name (random when empty)")
	logFile := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	user := domain.User{ID: uuid.NewString(), Username: *name}
	if user.Username == "" {
		user.Username = names.Username()
	}

	opts := client.Options{URL: *url}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		opts.Logger = logging.NewWithWriter(f, "dev", "debug")
	}

	events := make(chan client.Event, 64)
	done := make(chan struct{})
	opts.OnEvent = func(evt client.Event) {
		select {
		case events <- evt:
		case <-done:
		}
	}
	ctrl := client.New(opts)

	p := tea.NewProgram(tui.NewModel(ctrl, user, events), tea.WithAltScreen())
	go func() {
		// Failures schedule their own retries and surface as events.
		_ = ctrl.Connect(context.Background())
	}()

	_, err := p.Run()
	close(done)
	ctrl.Disconnect()
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
