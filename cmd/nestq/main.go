// Command nestq plans nested aggregate queries over a semantic schema.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/nestq/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
