package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bnema/wayseat/internal/backend"
	"github.com/bnema/wayseat/internal/wire"
)

// MaxScriptSize bounds the script a session may send
const MaxScriptSize = 1 << 20

// ErrScriptTooLarge is returned when a session sends more than MaxScriptSize
var ErrScriptTooLarge = errors.New("script too large")

// Mode selects how a session's trace is written
type Mode string

const (
	// ModeText writes one Message.String() line per message
	ModeText Mode = "text"
	// ModeRaw writes length-prefixed protobuf records
	ModeRaw Mode = "raw"
)

// ParseMode maps a session command onto a mode. No command means text.
func ParseMode(command []string) (Mode, error) {
	if len(command) == 0 {
		return ModeText, nil
	}
	if len(command) > 1 {
		return "", fmt.Errorf("unexpected arguments %v", command[1:])
	}
	switch Mode(command[0]) {
	case ModeText:
		return ModeText, nil
	case ModeRaw:
		return ModeRaw, nil
	}
	return "", fmt.Errorf("unknown mode %q (use text or raw)", command[0])
}

// Result summarizes one replay
type Result struct {
	Steps    int
	Applied  int
	Messages int
}

type countingSink struct {
	next  wire.Sink
	count int
}

func (c *countingSink) Send(m wire.Message) {
	c.count++
	c.next.Send(m)
}

// Replay decodes a script from in, runs it against a fresh seat built from
// opts and writes the trace to out. opts.Sink is replaced.
func Replay(ctx context.Context, in io.Reader, out io.Writer, mode Mode, opts backend.Options) (Result, error) {
	data, err := io.ReadAll(io.LimitReader(in, MaxScriptSize+1))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read script: %w", err)
	}
	if len(data) > MaxScriptSize {
		return Result{}, ErrScriptTooLarge
	}

	script, err := backend.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, err
	}

	var (
		sink   wire.Sink
		writer *wire.TraceWriter
	)
	switch mode {
	case ModeRaw:
		writer = wire.NewTraceWriter(out)
		sink = writer
	default:
		sink = wire.SinkFunc(func(m wire.Message) {
			fmt.Fprintln(out, m.String())
		})
	}
	counter := &countingSink{next: sink}
	opts.Sink = counter

	runner, err := backend.NewRunner(script, opts)
	if err != nil {
		return Result{Steps: len(script.Steps)}, err
	}
	runErr := runner.Run(ctx)

	res := Result{Steps: len(script.Steps), Applied: runner.Applied(), Messages: counter.count}
	if writer != nil && writer.Err() != nil {
		return res, writer.Err()
	}
	return res, runErr
}
