package util

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ClearProgress erases the progress line when passed to StopWithPrint.
const ClearProgress = "\r\033[K"

const progressInterval = time.Second

// ProgressPrinter prints a message followed by a growing line of dots
// until it's stopped.
type ProgressPrinter struct {
	out io.Writer
	msg string

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewProgressPrinter creates a printer that writes msg to out.
func NewProgressPrinter(out io.Writer, msg string) *ProgressPrinter {
	return &ProgressPrinter{
		out:  out,
		msg:  msg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Run prints the progress until Stop is called. It's meant to be run in its
// own goroutine.
func (pp *ProgressPrinter) Run() {
	defer close(pp.done)

	fmt.Fprint(pp.out, pp.msg)
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-pp.stop:
			return
		case <-ticker.C:
			fmt.Fprint(pp.out, ".")
		}
	}
}

// Stop stops printing, and ends the progress line.
func (pp *ProgressPrinter) Stop() {
	pp.StopWithPrint("\n")
}

// StopWithPrint stops printing, and then prints s. It blocks until Run
// returns, so it must only be called after Run has been started.
func (pp *ProgressPrinter) StopWithPrint(s string) {
	pp.stopOnce.Do(func() {
		close(pp.stop)
		<-pp.done
		fmt.Fprint(pp.out, s)
	})
}
