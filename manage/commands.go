// Package manage implements the out-of-band maintenance commands.
package manage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"users-service/db"
	"users-service/usecases"

	"github.com/sirupsen/logrus"
)

// Command names accepted by cmd/manage.
const (
	CmdSeedDB     = "seed_db"
	CmdRecreateDB = "recreate_db"
	CmdTest       = "test"
	CmdRun        = "run"
)

// Descriptions is shown by the usage text and the interactive menu.
var Descriptions = []struct {
	Name string
	Help string
}{
	{CmdSeedDB, "Insert the sample users"},
	{CmdRecreateDB, "Drop and recreate every table"},
	{CmdTest, "Run the test suite without coverage"},
	{CmdRun, "Start the HTTP server"},
}

// SeedDB inserts the fixed sample users.
func SeedDB(ctx context.Context, users *usecases.UserUseCase) error {
	created, err := users.SeedUsers(ctx)
	if err != nil {
		return fmt.Errorf("seed_db: %w", err)
	}
	logrus.WithField("inserted", len(created)).Info("database seeded")
	return nil
}

// RecreateDB drops and recreates the schema, then empties the user cache.
func RecreateDB(ctx context.Context, database db.Database, users *usecases.UserUseCase) error {
	if err := database.Recreate(); err != nil {
		return fmt.Errorf("recreate_db: %w", err)
	}
	if err := users.FlushCache(ctx); err != nil {
		return fmt.Errorf("recreate_db: flush cache: %w", err)
	}
	logrus.Info("database recreated")
	return nil
}

// TestRunner runs the module's test suite in a child process.
type TestRunner struct {
	Dir    string
	Name   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// NewTestRunner runs `go test -v ./...` in dir.
func NewTestRunner(dir string, stdout, stderr io.Writer) *TestRunner {
	return &TestRunner{
		Dir:    dir,
		Name:   "go",
		Args:   []string{"test", "-v", "./..."},
		Stdout: stdout,
		Stderr: stderr,
	}
}

// Run returns the process exit code: 0 when every test passed, 1 otherwise.
func (r *TestRunner) Run(ctx context.Context) int {
	cmd := exec.CommandContext(ctx, r.Name, r.Args...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	err := cmd.Run()
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		logrus.WithError(err).Error("could not start test runner")
	}
	return 1
}
