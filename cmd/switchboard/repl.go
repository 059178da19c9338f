package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

const (
	prompt          = "\n> "
	forceQuitWindow = 2 * time.Second
	maxLineBytes    = 1 << 20
)

// executor runs one line of input. Implemented by session.Session.
type executor interface {
	Execute(ctx context.Context, line string) (string, bool)
}

type repl struct {
	exec      executor
	in        io.Reader
	out       io.Writer
	signals   <-chan os.Signal
	logger    *slog.Logger
	forceQuit time.Duration
}

func newREPL(exec executor, in io.Reader, out io.Writer, signals <-chan os.Signal, logger *slog.Logger) *repl {
	if logger == nil {
		logger = slog.Default()
	}
	return &repl{exec: exec, in: in, out: out, signals: signals, logger: logger, forceQuit: forceQuitWindow}
}

// run reads lines until /exit, end of input, cancellation or a second
// interrupt at the prompt.
func (r *repl) run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	lines, errc := r.readLines(stop)

	var lastInterrupt time.Time
	for {
		fmt.Fprint(r.out, prompt)
		select {
		case <-ctx.Done():
			return nil
		case <-r.signals:
			if !lastInterrupt.IsZero() && time.Since(lastInterrupt) < r.forceQuit {
				fmt.Fprintln(r.out, "\nForce quitting...")
				return nil
			}
			lastInterrupt = time.Now()
			fmt.Fprintf(r.out, "\n\nUse /exit or /quit to exit the REPL, or Ctrl+C again within %s to force quit\n", r.forceQuit)
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out, "\nExiting REPL...")
				return <-errc
			}
			text, exit := r.turn(ctx, line)
			if text != "" {
				fmt.Fprintln(r.out, text)
			}
			if exit {
				return nil
			}
		}
	}
}

// turn executes line; an interrupt while it runs cancels only this turn.
func (r *repl) turn(ctx context.Context, line string) (string, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		text string
		exit bool
	}
	done := make(chan result, 1)
	go func() {
		text, exit := r.exec.Execute(ctx, line)
		done <- result{text, exit}
	}()

	for {
		select {
		case res := <-done:
			return res.text, res.exit
		case <-r.signals:
			r.logger.Info("Turn interrupted by user")
			fmt.Fprintln(r.out, "\n⏹  Interrupting...")
			cancel()
		}
	}
}

func (r *repl) readLines(stop <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}
