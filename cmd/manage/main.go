package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"users-service/confs"
	"users-service/manage"
	"users-service/server"

	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	command := ""
	if len(args) > 0 {
		command = args[0]
	} else {
		choice, err := pickCommand()
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
			return 1
		}
		if choice == "" {
			return 0
		}
		command = choice
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case manage.CmdTest:
		root, err := moduleRoot()
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
			return 1
		}
		code := manage.NewTestRunner(root, os.Stdout, os.Stderr).Run(ctx)
		if code == 0 {
			fmt.Println(successStyle.Render("all tests passed"))
		} else {
			fmt.Println(errorStyle.Render("tests failed"))
		}
		return code
	case manage.CmdSeedDB, manage.CmdRecreateDB, manage.CmdRun:
		if err := withApp(ctx, command); err != nil {
			logrus.WithError(err).Error(command + " failed")
			return 1
		}
		return 0
	default:
		usage()
		return 2
	}
}

// withApp builds the application through the factory and runs command on it.
func withApp(ctx context.Context, command string) error {
	cfg, err := confs.LoadConfig()
	if err != nil {
		return err
	}
	server.ConfigureLogging(cfg)

	deps, cleanup, err := server.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := server.NewServer(cfg, deps)
	if err != nil {
		return err
	}

	switch command {
	case manage.CmdSeedDB:
		if err := manage.SeedDB(ctx, srv.Users()); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("database seeded"))
	case manage.CmdRecreateDB:
		if err := manage.RecreateDB(ctx, deps.Database, srv.Users()); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("database recreated"))
	case manage.CmdRun:
		return srv.Run(ctx)
	}
	return nil
}

// moduleRoot walks up from the working directory to the nearest go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above the working directory")
		}
		dir = parent
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: manage <command>")
	fmt.Fprintln(os.Stderr)
	for _, cmd := range manage.Descriptions {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", cmd.Name, cmd.Help)
	}
}
