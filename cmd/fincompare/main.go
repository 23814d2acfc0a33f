package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fincompare/fincompare/cmd/fincompare/cli"
	"github.com/fincompare/fincompare/internal/app"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "fincompare:", err)
		stop()
		os.Exit(1)
	}
}
