package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/pricing"
)

const (
	bloomFPR   = 0.001
	maxCodeLen = 64
)

var hundred = decimal.NewFromInt(100)

// parseFile reads a gzipped CSV export with the columns
// code,type,value,valid_from,valid_until. A leading header row is skipped.
func parseFile(ctx context.Context, path string) ([]coupon.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	rules, err := parseCSV(ctx, gz)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return rules, nil
}

func parseCSV(ctx context.Context, r io.Reader) ([]coupon.Rule, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var rules []coupon.Rule
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rules, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv")
		}
		line, _ := cr.FieldPos(0)
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "code") {
			continue
		}
		rule, err := parseRecord(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		rules = append(rules, rule)
	}
}

func parseRecord(rec []string) (coupon.Rule, error) {
	code := strings.ToUpper(strings.TrimSpace(rec[0]))
	if code == "" || len(code) > maxCodeLen {
		return coupon.Rule{}, errors.Errorf("code must be 1-%d characters, got %q", maxCodeLen, code)
	}

	typ := pricing.DiscountType(strings.ToLower(strings.TrimSpace(rec[1])))
	if !typ.Valid() {
		return coupon.Rule{}, errors.Errorf("unsupported discount type %q", rec[1])
	}

	value, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
	if err != nil {
		return coupon.Rule{}, errors.Wrap(err, "value")
	}
	if value.IsNegative() {
		return coupon.Rule{}, errors.Errorf("value must not be negative, got %s", value)
	}
	if typ == pricing.DiscountPercentage && value.GreaterThan(hundred) {
		return coupon.Rule{}, errors.Errorf("percentage must not exceed 100, got %s", value)
	}

	from, err := parseBound(rec[3], false)
	if err != nil {
		return coupon.Rule{}, errors.Wrap(err, "valid_from")
	}
	until, err := parseBound(rec[4], true)
	if err != nil {
		return coupon.Rule{}, errors.Wrap(err, "valid_until")
	}
	if from != nil && until != nil && until.Before(*from) {
		return coupon.Rule{}, errors.New("valid_until is before valid_from")
	}

	return coupon.Rule{
		Code:         code,
		DiscountType: typ,
		Value:        value,
		Description:  "Imported coupon " + code,
		Active:       true,
		ValidFrom:    from,
		ValidUntil:   until,
	}, nil
}

// parseBound accepts an empty string, an RFC 3339 timestamp or a plain date.
// A plain date used as an upper bound covers the whole day.
func parseBound(s string, upper bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, errors.Errorf("expected RFC 3339 time or YYYY-MM-DD, got %q", s)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

// deduper keeps the first occurrence of every code in two passes. Pass one
// runs all codes through a bloom filter and records the ones it may have seen
// before. Only those candidates are tracked exactly in pass two; every other
// code is known to be unique.
type deduper struct {
	filter     *bloom.BloomFilter
	candidates map[string]bool // code -> first occurrence already kept
}

func newDeduper(estimate uint) *deduper {
	if estimate == 0 {
		estimate = 1
	}
	return &deduper{
		filter:     bloom.NewWithEstimates(estimate, bloomFPR),
		candidates: make(map[string]bool),
	}
}

// observe feeds code into the filter during pass one.
func (d *deduper) observe(code string) {
	if d.filter.TestAndAddString(code) {
		d.candidates[code] = false
	}
}

// keep reports during pass two whether this occurrence of code is the first.
func (d *deduper) keep(code string) bool {
	kept, ok := d.candidates[code]
	if !ok {
		return true
	}
	if kept {
		return false
	}
	d.candidates[code] = true
	return true
}

// merge flattens per-file rules in file order. The first occurrence of a code
// wins; later ones are counted as duplicates.
func merge(files [][]coupon.Rule) (rules []coupon.Rule, duplicates int) {
	var total int
	for _, f := range files {
		total += len(f)
	}
	d := newDeduper(uint(total))
	for _, f := range files {
		for _, r := range f {
			d.observe(r.Code)
		}
	}

	rules = make([]coupon.Rule, 0, total)
	for _, f := range files {
		for _, r := range f {
			if !d.keep(r.Code) {
				duplicates++
				continue
			}
			rules = append(rules, r)
		}
	}
	return rules, duplicates
}
