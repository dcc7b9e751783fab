// Package console reads command lines from a stream (stdin) on its own goroutine and hands them
// to the frame loop, which executes them between frames.
package console

import (
	"bufio"
	"context"
	"io"

	"walkthrough/internal/logger"
)

// queueSize bounds the lines waiting for the next frame; the reader blocks when it is full.
const queueSize = 16

// Runner executes one line.
type Runner interface {
	RunLine(line string) error
}

// Console forwards lines from a reader to a Runner on the frame loop.
type Console struct {
	lines  chan string
	runner Runner
	log    *logger.Logger
}

// New returns a console executing lines with runner. Errors are logged.
func New(runner Runner, log *logger.Logger) *Console {
	return &Console{lines: make(chan string, queueSize), runner: runner, log: log}
}

// Read scans r line by line until EOF, a read error, or ctx is done. Run it on its own goroutine.
func (c *Console) Read(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case c.lines <- sc.Text():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return sc.Err()
}

// Submit queues a line without blocking. It reports false when the queue is full.
func (c *Console) Submit(line string) bool {
	select {
	case c.lines <- line:
		return true
	default:
		return false
	}
}

// Drain executes the queued lines and returns how many ran. Call it from the frame loop.
func (c *Console) Drain() int {
	n := 0
	for {
		select {
		case line := <-c.lines:
			c.exec(line)
			n++
		default:
			return n
		}
	}
}

func (c *Console) exec(line string) {
	if line == "" {
		return
	}
	c.log.Log("> " + line)
	if err := c.runner.RunLine(line); err != nil {
		c.log.Log(err.Error())
	}
}
