// Package codec encodes domain values as JSON with go-faster/jx. The same
// shapes are served over HTTP, published as events and stored in the cache.
package codec

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Decimal writes d as a JSON number with two decimal places.
func Decimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

// DecodeDecimal reads a JSON number or a numeric string.
func DecodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return parseDecimal(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return parseDecimal(n.String())
	default:
		return decimal.Decimal{}, errors.Errorf("expected number, got %s", d.Next())
	}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "parse decimal %q", s)
	}
	return v, nil
}

// Time writes t in RFC 3339 with nanoseconds, in UTC.
func Time(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

// DecodeTime reads an RFC 3339 timestamp.
func DecodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", s)
	}
	return t, nil
}

// OptTime writes t, or null when t is nil.
func OptTime(e *jx.Encoder, t *time.Time) {
	if t == nil {
		e.Null()
		return
	}
	Time(e, *t)
}

// DecodeOptTime reads a timestamp or null.
func DecodeOptTime(d *jx.Decoder) (*time.Time, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	t, err := DecodeTime(d)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Marshal runs f against a fresh encoder and returns a copy of the output.
func Marshal(f func(e *jx.Encoder)) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	f(e)
	return append([]byte(nil), e.Bytes()...)
}

func fieldErr(key string, err error) error {
	if err != nil {
		return errors.Wrapf(err, "field %q", key)
	}
	return nil
}
