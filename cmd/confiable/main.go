// Command confiable starts the Confiable analysis API server.
// Usage: go run ./cmd/confiable [-config FILE] [-addr ADDR] [-db FILE] [-log-level LEVEL]
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/dtoro641/confiable/internal/app"
	"github.com/dtoro641/confiable/internal/cli"
	"github.com/dtoro641/confiable/internal/logging"
	"github.com/dtoro641/confiable/internal/server"
)

func main() {
	// .env is optional; variables already exported win either way.
	_ = godotenv.Load()

	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	cfg, err := app.LoadConfig(args.ConfigPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if args.Addr != "" {
		cfg.Addr = args.Addr
	}
	if args.DBPath != "" {
		cfg.DBPath = args.DBPath
	}
	if args.LogLevel != "" {
		cfg.LogLevel = args.LogLevel
	}

	logger := logging.NewStdoutLogger("confiable")
	logger.SetLevel(cfg.LogLevel)

	svc, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("Startup error: %v", err)
	}

	srv, err := server.NewServer(server.Config{
		ListenAddr: cfg.Addr,
		Service:    svc,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
	defer srv.Close()

	logger.Info("listening", logging.Field{Key: "addr", Value: cfg.Addr})
	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
