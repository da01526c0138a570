package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// InterruptibleContext returns a context that's cancelled when the process
// receives SIGINT or SIGTERM. The returned function stops listening for the
// signals and cancels the context.
func InterruptibleContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			log.WithField("signal", sig).Info("Interrupted. Cleaning up.")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}
