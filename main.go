package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr, term.IsTerminal(int(syscall.Stdin)))
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur : %s\n", UserMessage(err))
		a.logger.Debug().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
