package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// consoleOutbox renders outbound messages on a terminal. Choice keyboards
// and voice messages have no console equivalent, so they degrade to a
// bracketed hint line.
type consoleOutbox struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleOutbox(w io.Writer) *consoleOutbox {
	return &consoleOutbox{w: w}
}

func (c *consoleOutbox) SendText(_ context.Context, _, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "%s\n\n", text)
	return err
}

func (c *consoleOutbox) SendChoices(_ context.Context, _, text string, choices []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "%s\n  [%s]\n\n", text, strings.Join(choices, " | "))
	return err
}

func (c *consoleOutbox) SendAudio(_ context.Context, _, path, caption string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "🔊 %s: %s\n\n", caption, path)
	return err
}

// runConsole reads lines until EOF or ctx cancellation and feeds each one
// through the router. Dispatch failures were already reported to the user
// by the session layer, so the loop just keeps going.
func runConsole(ctx context.Context, r *router, userID, firstName string, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	fmt.Fprintln(out, "daybook - your daily reflection companion. Type /help for commands.")
	fmt.Fprintln(out)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			r.Dispatch(ctx, userID, firstName, line)
		}
	}
}
