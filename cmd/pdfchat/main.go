package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"pdfchat/internal/app"
	"pdfchat/internal/config"
	"pdfchat/internal/platform/logger"
	"pdfchat/internal/session"
	"pdfchat/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/pdfchat/config.yaml if not provided)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("Usage: pdfchat [--config=config.yaml] document.pdf")
		os.Exit(1)
	}
	path := flag.Arg(0)

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// the terminal belongs to the TUI; logs go to a file next to the binary
	logOut, err := os.OpenFile("pdfchat.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logOut.Close()
	slogger := logger.New(logger.Config{Level: cfg.Logging.Level, Format: "text", Output: logOut})

	components, err := app.BuildComponents(cfg)
	if err != nil {
		log.Fatalf("failed to assemble pipeline: %v", err)
	}

	s := session.New("local", components, session.Options{
		TopK:             cfg.Retriever.TopK,
		SummarySentences: cfg.Summarizer.MaxSentences,
		Logger:           slogger,
	})
	defer s.Close()

	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", path, err)
	}
	res, err := s.Ingest(context.Background(), filepath.Base(path), file)
	file.Close()
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}

	summary := fmt.Sprintf("%s: %d chunks indexed.", res.Filename, res.Chunks)
	if res.Summary != "" {
		summary += " " + res.Summary
	}
	if _, err := tea.NewProgram(tui.New(s, summary)).Run(); err != nil {
		log.Fatal(err)
	}
}
