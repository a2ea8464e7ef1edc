package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"users-service/confs"
	"users-service/server"

	"github.com/sirupsen/logrus"
)

func main() {
	// load config
	cfg, err := confs.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Error loading config")
	}
	server.ConfigureLogging(cfg)
	logrus.Infof("Configuration loaded: %v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// connect to database and optional cache/broker
	deps, cleanup, err := server.Bootstrap(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialise dependencies")
	}
	defer cleanup()

	srv, err := server.NewServer(cfg, deps)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build server")
	}
	if err := srv.Run(ctx); err != nil {
		logrus.WithError(err).Error("Server stopped with error")
	}
}
