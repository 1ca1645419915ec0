package main

import (
	"context"
	"io"
	"os"

	"github.com/robotalks/uart.go/pkg/env"
	"github.com/robotalks/uart.go/pkg/sched"
)

// echoTerminal bridges stdin and stdout to the far end of a simulated cable.
func echoTerminal(link *env.Link) func(context.Context) error {
	return func(ctx context.Context) error {
		go io.Copy(link.Terminal, os.Stdin)
		return sched.RunWithContextCloser(ctx, link.Terminal, func() error {
			_, err := io.Copy(os.Stdout, link.Terminal)
			return err
		})
	}
}
