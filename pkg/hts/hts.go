// Package hts reads and writes time series in the HTimeseries text
// format used by Enhydris: one "timestamp,value,flags" record per
// line, optionally preceded by a "Key=Value" header section terminated
// by a blank line. Header fields (variable, unit, time zone and so on)
// are carried through untouched.
package hts

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one measurement: a timestamp, a value and an optional
// flags string. Timestamps are timezone-naive; they are stored in UTC
// only so that they compare correctly.
type Record struct {
	Timestamp time.Time
	Value     decimal.Decimal
	Flags     string
}

// Block is an ordered sequence of records plus any header metadata the
// server sent along. Records are strictly increasing by timestamp. A
// Block with zero records is valid; it is what an empty server
// response parses to.
type Block struct {
	Metadata map[string]string
	Records  []Record
}

// ParseError describes malformed time-series text. Line is 1-based
// and zero when the error is not tied to a specific line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("hts: line %d: %s", e.Line, e.Msg)
	}
	return "hts: " + e.Msg
}

// TimestampFormat is how record timestamps are serialized.
const TimestampFormat = "2006-01-02 15:04:05"

// Layouts accepted when parsing timestamps. Seconds and the T
// separator are optional; the server renders minutes-precision
// timestamps with a space.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Layouts with a zone offset. The offset is discarded after parsing:
// what matters for comparing series is the wall clock the server
// rendered, not the zone it happened to render it in.
var zonedTimestampLayouts = []string{
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
}

// ParseTimestamp parses a timestamp in any of the accepted layouts,
// returning a timezone-naive result (wall clock kept, zone dropped).
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	for _, layout := range zonedTimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return naive(t), nil
		}
	}
	return time.Time{}, &ParseError{Msg: fmt.Sprintf("invalid timestamp %q", s)}
}

// naive rebuilds t from its wall-clock fields, discarding the zone.
func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Parse reads a block from r, line by line. An empty input yields an
// empty block. Records must be strictly increasing by timestamp.
func Parse(r io.Reader) (*Block, error) {
	b := &Block{}
	sc := bufio.NewScanner(r)

	const (
		stateStart = iota
		stateHeader
		stateData
	)
	state := stateStart
	lineno := 0
	var prev time.Time

	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())

		if state == stateStart {
			if line == "" {
				continue
			}
			if strings.Contains(line, "=") && !strings.Contains(line, ",") {
				state = stateHeader
			} else {
				state = stateData
			}
		}

		if state == stateHeader {
			if line == "" {
				// blank line ends the header section
				state = stateData
				continue
			}
			key, val, ok := strings.Cut(line, "=")
			if !ok {
				return nil, &ParseError{Line: lineno, Msg: fmt.Sprintf("malformed header line %q", line)}
			}
			if b.Metadata == nil {
				b.Metadata = map[string]string{}
			}
			b.Metadata[strings.TrimSpace(key)] = strings.TrimSpace(val)
			continue
		}

		if line == "" {
			continue
		}
		rec, err := parseRecord(line, lineno)
		if err != nil {
			return nil, err
		}
		if len(b.Records) > 0 && !rec.Timestamp.After(prev) {
			return nil, &ParseError{Line: lineno, Msg: fmt.Sprintf("timestamp %s is not after %s",
				rec.Timestamp.Format(TimestampFormat), prev.Format(TimestampFormat))}
		}
		prev = rec.Timestamp
		b.Records = append(b.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

func parseRecord(line string, lineno int) (Record, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) < 2 {
		return Record{}, &ParseError{Line: lineno, Msg: fmt.Sprintf("record %q has no value field", line)}
	}
	ts, err := ParseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return Record{}, &ParseError{Line: lineno, Msg: fmt.Sprintf("invalid timestamp %q", parts[0])}
	}
	value, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return Record{}, &ParseError{Line: lineno, Msg: fmt.Sprintf("invalid value %q", parts[1])}
	}
	rec := Record{Timestamp: ts, Value: value}
	if len(parts) == 3 {
		rec.Flags = strings.TrimSpace(parts[2])
	}
	return rec, nil
}

// Dump writes the block's records to w, one per line, without the
// header section. An empty flags field is kept as a trailing comma,
// which is what the server expects back.
func (b *Block) Dump(w io.Writer) error {
	for _, rec := range b.Records {
		_, err := fmt.Fprintf(w, "%s,%s,%s\n", rec.Timestamp.Format(TimestampFormat), formatValue(rec.Value), rec.Flags)
		if err != nil {
			return err
		}
	}
	return nil
}

// formatValue renders the value at its own scale, so "15.0" stays
// "15.0" across a read/write round trip (Decimal.String would trim it
// to "15").
func formatValue(d decimal.Decimal) string {
	places := -d.Exponent()
	if places < 0 {
		places = 0
	}
	return d.StringFixed(places)
}

// String returns the serialized records.
func (b *Block) String() string {
	var sb strings.Builder
	_ = b.Dump(&sb) // strings.Builder never errors
	return sb.String()
}

// ParseEndDate recovers the timestamp of the last record from a
// tail-rendered page body: it scans lines from the end, skips blank
// ones, and parses the part of the first non-blank line up to the
// first comma. A body with no non-blank lines yields (nil, nil),
// meaning the series has no data yet.
func ParseEndDate(body string) (*time.Time, error) {
	lines := strings.Split(body, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		datestring, _, _ := strings.Cut(line, ",")
		t, err := ParseTimestamp(strings.TrimSpace(datestring))
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("invalid end date %q", datestring)}
		}
		return &t, nil
	}
	return nil, nil
}
