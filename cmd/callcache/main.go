package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charlesng35/callcache/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}

func run(ctx context.Context, args []string) error {
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
