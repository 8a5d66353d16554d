// Package transform implements the order cleaning rules.
//
// Each rule is a pure function of one record. A Pipeline composes them in a
// fixed order: night-order filter, time-of-day classification, date
// truncation, product filter and normalization, category normalization and
// purchase state extraction. Rules that read order_date always read the
// original timestamp, so time_of_day never sees a truncated date.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/leapclean/pkg/core"
	"golang.org/x/sync/errgroup"
)

// ErrMalformedAddress is returned under AddressPolicyFail when a
// purchase_address has fewer than three segments.
var ErrMalformedAddress = errors.New("malformed purchase address")

// AddressPolicy decides what happens to a record whose address has no state
// segment.
type AddressPolicy string

// Address policies.
const (
	// AddressPolicyNull keeps the record with a NULL purchase_state.
	AddressPolicyNull AddressPolicy = "null"
	// AddressPolicyFail aborts the batch.
	AddressPolicyFail AddressPolicy = "fail"
)

// ParseAddressPolicy converts a config value into an AddressPolicy.
// The empty string selects AddressPolicyNull.
func ParseAddressPolicy(s string) (AddressPolicy, error) {
	switch AddressPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AddressPolicyNull:
		return AddressPolicyNull, nil
	case AddressPolicyFail:
		return AddressPolicyFail, nil
	default:
		return "", fmt.Errorf("unknown address policy %q (want %q or %q)", s, AddressPolicyNull, AddressPolicyFail)
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLocation sets the time zone hours are read in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithAddressPolicy sets the malformed address policy.
func WithAddressPolicy(policy AddressPolicy) Option {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithLogger sets the logger (nil uses a discard logger).
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline is the ordered list of cleaning rules.
type Pipeline struct {
	rules  []Rule
	loc    *time.Location
	policy AddressPolicy
	logger *slog.Logger
}

// NewPipeline creates the standard cleaning pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		loc:    time.UTC,
		policy: AddressPolicyNull,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.rules = []Rule{
		{Name: "filter_night_orders", Apply: filterNightOrders},
		{Name: "classify_time_of_day", Apply: classifyTimeOfDay},
		{Name: "truncate_order_date", Apply: truncateOrderDate},
		{Name: "normalize_product", Apply: normalizeProduct},
		{Name: "normalize_category", Apply: normalizeCategory},
		{Name: "extract_purchase_state", Apply: p.extractPurchaseState},
	}
	return p
}

// Rules returns the rule names in execution order.
func (p *Pipeline) Rules() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name
	}
	return names
}

// Location returns the time zone hours are read in.
func (p *Pipeline) Location() *time.Location {
	return p.loc
}

func (p *Pipeline) extractPurchaseState(r *Row) error {
	r.Out.PurchaseState = nil
	if r.In.PurchaseAddress == nil {
		return nil
	}
	state, ok := ExtractState(*r.In.PurchaseAddress)
	if !ok {
		r.MalformedAddress = true
		if p.policy == AddressPolicyFail {
			return fmt.Errorf("row %d: %w: %q", r.In.Ordinal, ErrMalformedAddress, *r.In.PurchaseAddress)
		}
		p.logger.Debug("purchase address has no state segment",
			slog.Int64("ordinal", r.In.Ordinal),
			slog.String("address", *r.In.PurchaseAddress))
		return nil
	}
	r.Out.PurchaseState = &state
	return nil
}

// Result is the outcome of running one record through the pipeline.
type Result struct {
	Record           core.CleanedOrderRecord
	Outcome          Outcome
	MalformedAddress bool
}

// Kept reports whether the record survived every filter.
func (r Result) Kept() bool {
	return r.Outcome == Keep
}

// Apply runs a single record through every rule. The input is not modified.
func (p *Pipeline) Apply(rec core.OrderRecord) (Result, error) {
	out := core.CleanedOrderRecord{
		Ordinal:     rec.Ordinal,
		Passthrough: rec.Passthrough,
	}
	row := &Row{In: &rec, Out: &out, loc: p.loc}

	for _, rule := range p.rules {
		if err := rule.Apply(row); err != nil {
			return Result{}, fmt.Errorf("%s: %w", rule.Name, err)
		}
		if row.Outcome != Keep {
			return Result{Outcome: row.Outcome, MalformedAddress: row.MalformedAddress}, nil
		}
	}

	return Result{Record: out, Outcome: Keep, MalformedAddress: row.MalformedAddress}, nil
}

// ApplyBatch runs every record through the pipeline, splitting the input into
// contiguous partitions processed by up to workers goroutines. The returned
// records keep the input order.
func (p *Pipeline) ApplyBatch(ctx context.Context, records []core.OrderRecord, workers int) ([]core.CleanedOrderRecord, Stats, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(records) {
		workers = max(len(records), 1)
	}

	size := (len(records) + workers - 1) / workers
	parts := make([]partition, workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := range parts {
		start := i * size
		end := min(start+size, len(records))
		if start >= end {
			continue
		}
		part := &parts[i]
		g.Go(func() error {
			return p.applyPartition(gctx, records[start:end], part)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	var stats Stats
	total := 0
	for i := range parts {
		stats = stats.Merge(parts[i].stats)
		total += len(parts[i].out)
	}
	cleaned := make([]core.CleanedOrderRecord, 0, total)
	for i := range parts {
		cleaned = append(cleaned, parts[i].out...)
	}

	p.logger.Debug("batch transformed",
		slog.Int("workers", workers),
		slog.Int64("read", stats.Read),
		slog.Int64("kept", stats.Kept))

	return cleaned, stats, nil
}

type partition struct {
	out   []core.CleanedOrderRecord
	stats Stats
}

// cancelCheckInterval is how many records a worker processes between
// context checks.
const cancelCheckInterval = 1024

func (p *Pipeline) applyPartition(ctx context.Context, records []core.OrderRecord, part *partition) error {
	part.out = make([]core.CleanedOrderRecord, 0, len(records))
	for i := range records {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		res, err := p.Apply(records[i])
		if err != nil {
			return err
		}
		part.stats.Add(res)
		if res.Kept() {
			part.out = append(part.out, res.Record)
		}
	}
	return nil
}
