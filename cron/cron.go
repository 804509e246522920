// Package cron parses the extended seven-field cron grammar and computes
// the next firing instant for an arbitrary wall-clock time.
//
// Grammar: "second minute hour day-of-month month day-of-week year", plus
// the shorthands @yearly, @monthly, @weekly, @daily, @hourly and @minutely.
// Fields accept integer literals, ranges (a-b), steps (a/b), the wildcard
// (*), comma-separated lists, and month names (Jan-Dec).
package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a malformed cron expression.
type ParseError struct {
	Expr   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cron: invalid expression %q: %s", e.Expr, e.Reason)
}

// field bounds, in grammar order.
const (
	fieldSecond = iota
	fieldMinute
	fieldHour
	fieldDOM
	fieldMonth
	fieldDOW
	fieldYear
	fieldCount
)

var fieldBounds = [fieldCount][2]int{
	fieldSecond: {0, 59},
	fieldMinute: {0, 59},
	fieldHour:   {0, 23},
	fieldDOM:    {1, 31},
	fieldMonth:  {1, 12},
	fieldDOW:    {0, 6},
	fieldYear:   {1970, 2500},
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var shorthands = map[string]string{
	"@yearly":   "0 0 0 1 1 * *",
	"@annually": "0 0 0 1 1 * *",
	"@monthly":  "0 0 0 1 * * *",
	"@weekly":   "0 0 0 * * 0 *",
	"@daily":    "0 0 0 * * * *",
	"@hourly":   "0 0 * * * * *",
	"@minutely": "0 * * * * * *",
}

// field holds the set of values one cron field accepts.
type field struct {
	wildcard bool
	values   []int // sorted, deduplicated; unused when wildcard
	min, max int
}

func (f *field) matches(v int) bool {
	if f.wildcard {
		return v >= f.min && v <= f.max
	}
	i := searchInts(f.values, v)
	return i < len(f.values) && f.values[i] == v
}

// next returns the smallest allowed value >= v, or ok=false if none exists
// at or below f.max.
func (f *field) next(v int) (int, bool) {
	if v > f.max {
		return 0, false
	}
	if f.wildcard {
		if v < f.min {
			v = f.min
		}
		return v, true
	}
	i := searchInts(f.values, v)
	if i < len(f.values) {
		return f.values[i], true
	}
	return 0, false
}

func searchInts(values []int, v int) int {
	lo, hi := 0, len(values)
	for lo < hi {
		mid := (lo + hi) / 2
		if values[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Expr is a parsed cron expression.
type Expr struct {
	raw    string
	fields [fieldCount]field
	// domRestricted/dowRestricted record whether the original field was
	// something other than "*", for the union/intersection combine rule.
	domRestricted bool
	dowRestricted bool
}

// String returns the expression text as given to Parse (a shorthand is
// returned as written, not expanded); for At it is the RFC 3339 instant.
func (e *Expr) String() string { return e.raw }

// Parse parses a seven-field cron expression or a shorthand. It never fails
// at runtime — only here, at construction time.
func Parse(expr string) (*Expr, error) {
	trimmed := strings.TrimSpace(expr)
	if canonical, ok := shorthands[strings.ToLower(trimmed)]; ok {
		e, err := parseCanonical(canonical)
		if err != nil {
			return nil, err
		}
		e.raw = trimmed
		return e, nil
	}
	e, err := parseCanonical(trimmed)
	if err != nil {
		return nil, &ParseError{Expr: expr, Reason: err.Error()}
	}
	e.raw = trimmed
	return e, nil
}

func parseCanonical(expr string) (*Expr, error) {
	parts := strings.Fields(expr)
	if len(parts) != fieldCount {
		return nil, fmt.Errorf("expected %d space-separated fields, got %d", fieldCount, len(parts))
	}

	e := &Expr{}
	for i, part := range parts {
		useNames := i == fieldMonth
		f, restricted, err := parseField(part, fieldBounds[i][0], fieldBounds[i][1], useNames)
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, part, err)
		}
		e.fields[i] = f
		if i == fieldDOM {
			e.domRestricted = restricted
		}
		if i == fieldDOW {
			e.dowRestricted = restricted
		}
	}
	return e, nil
}

func parseField(raw string, min, max int, useMonthNames bool) (field, bool, error) {
	if raw == "*" {
		return field{wildcard: true, min: min, max: max}, false, nil
	}

	set := map[int]bool{}
	for _, piece := range strings.Split(raw, ",") {
		if err := parsePiece(piece, min, max, useMonthNames, set); err != nil {
			return field{}, false, err
		}
	}
	if len(set) == 0 {
		return field{}, false, fmt.Errorf("no values produced")
	}

	values := make([]int, 0, len(set))
	for v := range set {
		if v < min || v > max {
			return field{}, false, fmt.Errorf("value %d out of range [%d,%d]", v, min, max)
		}
		values = append(values, v)
	}
	sortInts(values)
	return field{values: values, min: min, max: max}, true, nil
}

func sortInts(vs []int) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j-1] > vs[j]; j-- {
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}

func parsePiece(piece string, min, max int, useMonthNames bool, set map[int]bool) error {
	step := 1
	rangePart := piece
	if idx := strings.IndexByte(piece, '/'); idx >= 0 {
		rangePart = piece[:idx]
		s, err := strconv.Atoi(piece[idx+1:])
		if err != nil || s <= 0 {
			return fmt.Errorf("invalid step %q", piece[idx+1:])
		}
		step = s
	}

	start, end := min, max
	switch {
	case rangePart == "*":
		// start/end already default to the full range
	case strings.Contains(rangePart, "-"):
		bounds := strings.SplitN(rangePart, "-", 2)
		a, err := parseValue(bounds[0], useMonthNames)
		if err != nil {
			return err
		}
		b, err := parseValue(bounds[1], useMonthNames)
		if err != nil {
			return err
		}
		start, end = a, b
	default:
		v, err := parseValue(rangePart, useMonthNames)
		if err != nil {
			return err
		}
		if idx := strings.IndexByte(piece, '/'); idx < 0 {
			set[v] = true
			return nil
		}
		start, end = v, max
	}

	for v := start; v <= end; v += step {
		set[v] = true
	}
	return nil
}

func parseValue(s string, useMonthNames bool) (int, error) {
	if useMonthNames {
		if v, ok := monthNames[strings.ToLower(s)]; ok {
			return v, nil
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return v, nil
}

// dayMatches applies the standard cron day-of-month/day-of-week combine
// rule: union when both fields are restricted, intersection (i.e. both
// wildcards trivially pass) otherwise.
func (e *Expr) dayMatches(t time.Time) bool {
	dom := e.fields[fieldDOM].matches(t.Day())
	dow := e.fields[fieldDOW].matches(int(t.Weekday()))
	switch {
	case e.domRestricted && e.dowRestricted:
		return dom || dow
	default:
		return dom && dow
	}
}

// maxAscentSteps bounds the field-wise ascent so a cron expression that can
// never match (e.g. Feb 30) terminates instead of looping forever.
const maxAscentSteps = 4_000_000

// NextAfter returns the next instant, strictly after t, at which the
// expression matches, quantized to whole seconds. It returns the zero
// Time if no match exists within the ascent bound.
func (e *Expr) NextAfter(t time.Time) time.Time {
	cur := t.Truncate(time.Second).Add(time.Second)

	for step := 0; step < maxAscentSteps; step++ {
		if y, ok := e.fields[fieldYear].next(cur.Year()); !ok {
			return time.Time{}
		} else if y != cur.Year() {
			cur = time.Date(y, 1, 1, 0, 0, 0, 0, cur.Location())
			continue
		}

		if m, ok := e.fields[fieldMonth].next(int(cur.Month())); !ok {
			cur = time.Date(cur.Year()+1, 1, 1, 0, 0, 0, 0, cur.Location())
			continue
		} else if m != int(cur.Month()) {
			cur = time.Date(cur.Year(), time.Month(m), 1, 0, 0, 0, 0, cur.Location())
			continue
		}

		if !e.dayMatches(cur) {
			cur = time.Date(cur.Year(), cur.Month(), cur.Day()+1, 0, 0, 0, 0, cur.Location())
			continue
		}

		if h, ok := e.fields[fieldHour].next(cur.Hour()); !ok {
			cur = time.Date(cur.Year(), cur.Month(), cur.Day()+1, 0, 0, 0, 0, cur.Location())
			continue
		} else if h != cur.Hour() {
			cur = time.Date(cur.Year(), cur.Month(), cur.Day(), h, 0, 0, 0, cur.Location())
			continue
		}

		if mi, ok := e.fields[fieldMinute].next(cur.Minute()); !ok {
			cur = time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour()+1, 0, 0, 0, cur.Location())
			continue
		} else if mi != cur.Minute() {
			cur = time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), mi, 0, 0, cur.Location())
			continue
		}

		if s, ok := e.fields[fieldSecond].next(cur.Second()); !ok {
			cur = time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), cur.Minute()+1, 0, 0, cur.Location())
			continue
		} else if s != cur.Second() {
			cur = time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), cur.Minute(), s, 0, cur.Location())
			continue
		}

		return cur
	}
	return time.Time{}
}

// --- ergonomic constructors layered on top of the canonical grammar ---

// Every builds an expression that fires once per d, on the wall-clock
// multiples of d within each minute, hour or day (d is rounded to whole
// seconds). It is a convenience over the canonical grammar, not a new
// primitive.
func Every(d time.Duration) (*Expr, error) {
	secs := int(d.Round(time.Second) / time.Second)
	if secs <= 0 {
		return nil, &ParseError{Expr: d.String(), Reason: "duration must be at least one second"}
	}
	if secs < 60 && 60%secs == 0 {
		return Parse(fmt.Sprintf("0/%d * * * * * *", secs))
	}
	if secs%60 == 0 && secs/60 < 60 && 60%(secs/60) == 0 {
		return Parse(fmt.Sprintf("0 0/%d * * * * *", secs/60))
	}
	if secs%3600 == 0 && secs/3600 < 24 && 24%(secs/3600) == 0 {
		return Parse(fmt.Sprintf("0 0 0/%d * * * *", secs/3600))
	}
	return nil, &ParseError{Expr: d.String(), Reason: "interval must divide evenly into a minute, hour, or day"}
}

// At builds a one-shot expression matching exactly the given instant's
// second, minute, hour, day, month and year.
func At(t time.Time) *Expr {
	return &Expr{
		raw: t.Format(time.RFC3339),
		fields: [fieldCount]field{
			fieldSecond: {values: []int{t.Second()}, min: 0, max: 59},
			fieldMinute: {values: []int{t.Minute()}, min: 0, max: 59},
			fieldHour:   {values: []int{t.Hour()}, min: 0, max: 23},
			fieldDOM:    {values: []int{t.Day()}, min: 1, max: 31},
			fieldMonth:  {values: []int{int(t.Month())}, min: 1, max: 12},
			fieldDOW:    {wildcard: true, min: 0, max: 6},
			fieldYear:   {values: []int{t.Year()}, min: fieldBounds[fieldYear][0], max: fieldBounds[fieldYear][1]},
		},
		domRestricted: true,
	}
}
