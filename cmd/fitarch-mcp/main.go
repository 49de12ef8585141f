package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/fitarch/internal/config"
	fitmcp "github.com/claude/fitarch/internal/mcp"
	"github.com/claude/fitarch/internal/stores"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (local mode)")
	serverURL := flag.String("server", "", "fitarch server URL (remote mode)")
	apiKey := flag.String("api-key", os.Getenv("FITARCH_AUTH_API_KEY"), "API key for remote mode")
	migrationsPath := flag.String("migrations", "migrations", "path to PostgreSQL migrations")
	userID := flag.String("user", fitmcp.DefaultUserID, "user whose workouts are served")
	flag.Parse()

	// stdout carries the MCP protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*configPath == "") == (*serverURL == "") {
		fmt.Fprintf(os.Stderr, "Usage: fitarch-mcp (-config config.yaml | -server https://fitarch.tailnet.ts.net -api-key KEY) [-user ID]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var ds fitmcp.DataSource
	if *serverURL != "" {
		ds = fitmcp.NewHTTPClient(*serverURL, *apiKey)
		log.Info("remote mode", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		store, err := stores.Open(context.Background(), cfg.Database, *migrationsPath, log)
		if err != nil {
			log.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		ds = store
	}

	s := fitmcp.New(ds, Version, log)
	user := *userID
	err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return fitmcp.WithUserID(ctx, user)
	}))
	if err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
