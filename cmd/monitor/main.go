package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"schedule-monitor/internal/domain/entity"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 2 for configuration errors, 1 for any other failure
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := SetupCommands().ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, "Error:", err)

	var configErr *entity.ConfigError
	if errors.As(err, &configErr) {
		return 2
	}
	return 1
}
