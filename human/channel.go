// Package human provides channels connecting workflows to human reviewers.
//
// A channel implements agent.HumanChannel: Request shows the prompt,
// AwaitResponse blocks until the reviewer answers or the context ends.
package human

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// DefaultFeedback is the answer used when no reviewer is attached.
const DefaultFeedback = "Good response with clear communication"

// ErrClosed is returned by AwaitResponse once a QueueChannel is closed.
var ErrClosed = errors.New("human channel closed")

// ConsoleOptions configures a ConsoleChannel.
type ConsoleOptions struct {
	In  io.Reader
	Out io.Writer
	// Default answers when the input is not interactive, the reviewer
	// enters an empty line or input ends.
	Default string
	// Interactive reports whether a human sits behind In. Defaults to a
	// terminal check when In is an *os.File.
	Interactive func() bool
}

// ConsoleChannel asks a reviewer on a terminal.
type ConsoleChannel struct {
	out         io.Writer
	def         string
	interactive bool

	in      io.Reader
	once    sync.Once
	lines   chan string
	readErr error // set before lines is closed
}

// NewConsoleChannel creates a console channel on stdin and stdout.
func NewConsoleChannel(optFns ...func(o *ConsoleOptions)) *ConsoleChannel {
	opts := ConsoleOptions{
		In:      os.Stdin,
		Out:     os.Stdout,
		Default: DefaultFeedback,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Interactive == nil {
		opts.Interactive = func() bool {
			f, ok := opts.In.(*os.File)
			return ok && term.IsTerminal(int(f.Fd()))
		}
	}

	return &ConsoleChannel{
		out:         opts.Out,
		def:         opts.Default,
		interactive: opts.Interactive(),
		in:          opts.In,
		lines:       make(chan string),
	}
}

// Request prints the prompt for the reviewer.
func (c *ConsoleChannel) Request(_ context.Context, prompt string) error {
	rule := strings.Repeat("=", 60)

	_, err := fmt.Fprintf(c.out, "\n%s\nREQUEST FOR HUMAN INTERVIEWER:\n%s\n%s\n> Your feedback: ", rule, prompt, rule)

	return err
}

// AwaitResponse reads one line from the console. A line typed after an
// abandoned wait is kept for the next call.
func (c *ConsoleChannel) AwaitResponse(ctx context.Context) (string, error) {
	if !c.interactive {
		return c.def, nil
	}

	c.once.Do(func() { go c.readLines() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text, ok := <-c.lines:
		if !ok {
			if c.readErr != nil && !errors.Is(c.readErr, io.EOF) {
				return "", fmt.Errorf("read feedback: %w", c.readErr)
			}

			return c.def, nil
		}

		if answer := strings.TrimSpace(text); answer != "" {
			return answer, nil
		}

		return c.def, nil
	}
}

// readLines is the only reader of the console input. Each line is handed to
// exactly one AwaitResponse call.
func (c *ConsoleChannel) readLines() {
	reader := bufio.NewReader(c.in)

	for {
		text, err := reader.ReadString('\n')
		if text != "" || err == nil {
			c.lines <- text
		}

		if err != nil {
			c.readErr = err
			close(c.lines)

			return
		}
	}
}

// StaticChannel answers every request with the same text.
type StaticChannel struct {
	Answer string
}

// NewStaticChannel creates a static channel. An empty answer uses DefaultFeedback.
func NewStaticChannel(answer string) *StaticChannel {
	if answer == "" {
		answer = DefaultFeedback
	}

	return &StaticChannel{Answer: answer}
}

// Request implements agent.HumanChannel.
func (s *StaticChannel) Request(context.Context, string) error { return nil }

// AwaitResponse implements agent.HumanChannel.
func (s *StaticChannel) AwaitResponse(context.Context) (string, error) { return s.Answer, nil }

// QueueChannel hands prompts and answers over Go channels, for embedding
// the workflow in another program.
type QueueChannel struct {
	prompts chan string
	answers chan string
	done    chan struct{}
	once    sync.Once
}

// NewQueueChannel creates a queue channel buffering up to size prompts and answers.
func NewQueueChannel(size int) *QueueChannel {
	return &QueueChannel{
		prompts: make(chan string, size),
		answers: make(chan string, size),
		done:    make(chan struct{}),
	}
}

// Prompts returns the stream of prompts awaiting an answer.
func (q *QueueChannel) Prompts() <-chan string { return q.prompts }

// Respond delivers an answer to the waiting agent.
func (q *QueueChannel) Respond(ctx context.Context, answer string) error {
	select {
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case q.answers <- answer:
		return nil
	}
}

// Close unblocks every waiting AwaitResponse with ErrClosed.
func (q *QueueChannel) Close() {
	q.once.Do(func() { close(q.done) })
}

// Request implements agent.HumanChannel.
func (q *QueueChannel) Request(ctx context.Context, prompt string) error {
	select {
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case q.prompts <- prompt:
		return nil
	}
}

// AwaitResponse implements agent.HumanChannel.
func (q *QueueChannel) AwaitResponse(ctx context.Context) (string, error) {
	select {
	case <-q.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-q.answers:
		return a, nil
	}
}
