// Package cmd provides CLI commands for the CV advisor.
//
// Commands:
//   - serve: HTTP API server exposing chat, search and ingestion
//   - version: build and configuration information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute is the main entry point for the CV advisor CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "version", "--version", "-v":
		return runVersion()
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("cv-advisor - Multi-agent CV and résumé advisor")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cv-advisor serve [addr]  Start HTTP API server (default: 127.0.0.1:3400)")
	fmt.Println("  cv-advisor --version     Show version information")
	fmt.Println("  cv-advisor --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GOOGLE_CLOUD_PROJECT   Cloud project id (vertex provider)")
	fmt.Println("  GCS_BUCKET_NAME        Bucket for CV uploads; empty disables ingestion")
	fmt.Println("  RAG_CORPUS             Optional pre-provisioned corpus reference")
	fmt.Println("  GEMINI_API_KEY         API key (local provider)")
	fmt.Println("  CVADVISOR_PROVIDER     Corpus provider: vertex (default) or local")
	fmt.Println("  CVADVISOR_POSTGRES_URL Database URL (local provider)")
	fmt.Println("  DEBUG                  Optional: enable debug logging")
}
