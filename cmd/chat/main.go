package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"pdf-qa-platform/internal/config"
	"pdf-qa-platform/internal/logger"
	"pdf-qa-platform/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	defaultServer := os.Getenv("PDFQA_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:5000"
	}

	var (
		server  string
		session string
		logPath string
		timeout time.Duration
	)
	flag.StringVar(&server, "server", defaultServer, "Base URL of the pdf-qa server")
	flag.StringVar(&session, "session", "", "Conversation ID (random when empty)")
	flag.StringVar(&logPath, "log", "", "Write client logs to this file")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Per-request timeout")
	flag.Parse()

	var sink io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		sink = f
	}
	logger.InitWithWriter(&config.Config{GinMode: "debug"}, sink)

	if session == "" {
		session = uuid.NewString()
	}
	logger.Info("Chat client starting", "server", server, "session_id", session)

	client := tui.NewClient(server, timeout)
	p := tea.NewProgram(tui.New(client, session, timeout))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chat client failed: %v\n", err)
		os.Exit(1)
	}
}
