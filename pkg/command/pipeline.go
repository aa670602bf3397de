// Package command orchestrates one finalized utterance through the
// transcript parser and the caller-owned record adder. Failures become
// warnings, never process faults; retry is a fresh user action.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/voxpense/voxpense/pkg/transcript"
)

// Warning categories reported through the sink.
const (
	WarnEmptyInput    = "input_empty"
	WarnNoAmount      = "parse_no_amount"
	WarnNoDescription = "parse_no_description"
	WarnRecordAdd     = "record_add_failed"
	WarnBusy          = "busy_dropped"
)

// ErrBusy reports that a previous utterance is still in flight.
var ErrBusy = errors.New("pipeline busy")

// RecordAdder persists one parsed expense. The adder is a capability
// owned by the caller; the pipeline never retries it.
type RecordAdder interface {
	AddRecord(ctx context.Context, description string, amount decimal.Decimal) error
}

// WarningSink receives non-fatal pipeline failures for display.
type WarningSink interface {
	Report(ctx context.Context, category, message string)
}

// Pipeline runs finalized utterances through parse and record-add. An
// utterance arriving while a previous one is still in flight is dropped
// with a warning; the guard is an explicit busy flag, not a queue.
type Pipeline struct {
	parser *transcript.Parser
	adder  RecordAdder
	sink   WarningSink

	busy atomic.Bool
}

// NewPipeline creates a pipeline over the given parser and collaborators.
func NewPipeline(parser *transcript.Parser, adder RecordAdder, sink WarningSink) *Pipeline {
	return &Pipeline{parser: parser, adder: adder, sink: sink}
}

// Busy reports whether an utterance is currently being processed.
func (p *Pipeline) Busy() bool {
	return p.busy.Load()
}

// Process parses one utterance and hands the result to the record adder.
// Parse and add failures are reported through the warning sink and
// returned; none of them stop the pipeline.
func (p *Pipeline) Process(ctx context.Context, utterance string) (transcript.Command, error) {
	if !p.busy.CompareAndSwap(false, true) {
		p.report(ctx, WarnBusy, "still processing the previous utterance")
		return transcript.Command{}, ErrBusy
	}
	defer p.busy.Store(false)

	cmd, err := p.parser.Parse(utterance)
	if err != nil {
		category, message := classifyParseError(err)
		p.report(ctx, category, message)
		return transcript.Command{}, err
	}

	if err := p.adder.AddRecord(ctx, cmd.Description, cmd.Amount); err != nil {
		p.report(ctx, WarnRecordAdd, fmt.Sprintf("could not save the expense: %v", err))
		return transcript.Command{}, fmt.Errorf("add record: %w", err)
	}

	slog.DebugContext(ctx, "expense recorded",
		slog.String("description", cmd.Description),
		slog.String("amount", cmd.Amount.String()))
	return cmd, nil
}

func (p *Pipeline) report(ctx context.Context, category, message string) {
	if p.sink != nil {
		p.sink.Report(ctx, category, message)
	}
}

func classifyParseError(err error) (category, message string) {
	switch {
	case errors.Is(err, transcript.ErrEmptyUtterance):
		return WarnEmptyInput, "nothing was heard"
	case errors.Is(err, transcript.ErrNoAmount):
		return WarnNoAmount, `no amount heard, try "spent 10 dollars on lunch"`
	case errors.Is(err, transcript.ErrNoDescription):
		return WarnNoDescription, "heard an amount but no description"
	default:
		return WarnNoAmount, err.Error()
	}
}
