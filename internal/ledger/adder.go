package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/voxpense/voxpense/pkg/events"
)

type provenanceKey struct{}

// Provenance identifies the capture and utterance an expense came from.
// It rides on the context so the narrow RecordAdder interface stays
// free of capture-layer concerns.
type Provenance struct {
	CaptureID  string
	Transcript string
}

// WithProvenance returns a context annotated with record provenance.
func WithProvenance(ctx context.Context, p Provenance) context.Context {
	return context.WithValue(ctx, provenanceKey{}, p)
}

// ProvenanceFrom extracts record provenance from the context, if any.
func ProvenanceFrom(ctx context.Context) Provenance {
	p, _ := ctx.Value(provenanceKey{}).(Provenance)
	return p
}

// Adder persists parsed expenses and publishes record.added events.
// It implements the pipeline's RecordAdder contract.
type Adder struct {
	repo *Repository
	pub  *events.Publisher
}

// NewAdder creates an adder backed by the given repository.
func NewAdder(repo *Repository, pub *events.Publisher) *Adder {
	return &Adder{repo: repo, pub: pub}
}

// AddRecord stores one expense and emits its record.added event.
func (a *Adder) AddRecord(ctx context.Context, description string, amount decimal.Decimal) error {
	prov := ProvenanceFrom(ctx)
	rec := &Record{
		Description: description,
		Amount:      amount,
		Transcript:  prov.Transcript,
		CaptureID:   prov.CaptureID,
	}
	if err := a.repo.Create(ctx, rec); err != nil {
		return fmt.Errorf("create record: %w", err)
	}

	slog.InfoContext(ctx, "expense recorded",
		slog.String("record_id", rec.ID),
		slog.String("description", description),
		slog.String("amount", amount.StringFixed(2)))

	if a.pub != nil {
		err := a.pub.Emit(ctx, events.RecordAdded, prov.CaptureID, events.RecordAddedData{
			RecordID:    rec.ID,
			Description: description,
			Amount:      amount.StringFixed(2),
			Transcript:  prov.Transcript,
		})
		if err != nil {
			slog.WarnContext(ctx, "record.added emit failed",
				slog.String("record_id", rec.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}
