package classifier

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/filter"
	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/types"
)

// DefaultTokenLimit is the largest description, in model tokens, that is sent for classification.
const DefaultTokenLimit = 4097

// ErrIrregular reports a model answer that is neither a pass nor a fail.
var ErrIrregular = errors.New("irregular model answer")

// Model classifies vulnerability descriptions.
type Model interface {
	TokenCount(ctx context.Context, text string) (int, error)
	// Classify reports whether text reads like a well formed vulnerability description.
	Classify(ctx context.Context, text string) (bool, error)
}

type Stats struct {
	Processed int64 `json:"processed"`
	Rejected  int64 `json:"rejected"`
	Irregular int64 `json:"irregular"`
	Tokens    int64 `json:"tokens"`
}

type options struct {
	tokenLimit int
}

type Option interface {
	apply(*options)
}

type tokenLimitOption int

func (t tokenLimitOption) apply(opts *options) {
	opts.tokenLimit = int(t)
}

func WithTokenLimit(n int) Option {
	return tokenLimitOption(n)
}

// Filter rejects descriptions the model judges malformed. Oversized descriptions are rejected without
// asking the model, and irregular answers let the record pass.
type Filter struct {
	model      Model
	tokenLimit int

	processed atomic.Int64
	rejected  atomic.Int64
	irregular atomic.Int64
	tokens    atomic.Int64
}

func New(m Model, opts ...Option) *Filter {
	o := &options{tokenLimit: DefaultTokenLimit}
	for _, opt := range opts {
		opt.apply(o)
	}
	return &Filter{model: m, tokenLimit: o.tokenLimit}
}

func (f *Filter) Name() string {
	return filter.GPT
}

func (f *Filter) Passes(ctx context.Context, r *types.Record) (bool, error) {
	desc := strings.TrimSpace(r.Description)

	n, err := f.model.TokenCount(ctx, desc)
	if err != nil {
		return false, errors.Wrapf(err, "count tokens of record %d", r.ID)
	}
	processed := f.processed.Add(1)
	if n > f.tokenLimit {
		slog.Warn("Reject oversized description", "cve", r.CVEID, "id", r.ID, "source", r.SourceURL, "tokens", n)
		f.rejected.Add(1)
		return false, nil
	}

	passed, err := f.model.Classify(ctx, desc)
	if err != nil {
		if !errors.Is(err, ErrIrregular) {
			return false, errors.Wrapf(err, "classify record %d", r.ID)
		}
		slog.Debug("Irregular classification", "cve", r.CVEID, "id", r.ID, "err", err)
		f.irregular.Add(1)
		passed = true
	}
	tokens := f.tokens.Add(int64(n))

	if processed%10 == 0 {
		slog.Info("Classified records", "processed", processed, "tokens", tokens, "rejected", f.rejected.Load(), "irregular", f.irregular.Load())
	}
	if !passed {
		slog.Info("Rejected by classifier", "cve", r.CVEID, "id", r.ID, "source", r.SourceURL)
		f.rejected.Add(1)
	}
	return passed, nil
}

func (f *Filter) Stats() Stats {
	return Stats{
		Processed: f.processed.Load(),
		Rejected:  f.rejected.Load(),
		Irregular: f.irregular.Load(),
		Tokens:    f.tokens.Load(),
	}
}

// ParseAnswer decodes a "0" (pass) or "1" (fail) model answer.
func ParseAnswer(answer string) (bool, error) {
	switch strings.TrimSpace(answer) {
	case "0":
		return true, nil
	case "1":
		return false, nil
	default:
		return false, errors.Wrapf(ErrIrregular, "answer %q", answer)
	}
}
