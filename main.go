// Package main provides the autobatch CLI, which estimates the largest
// training batch size that fits in accelerator memory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sammcj/autobatch/styles"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle().Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
