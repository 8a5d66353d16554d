package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapclean/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Hour bounds of the night-order filter. Orders are kept when
// FirstDayHour <= hour < DayEndHour. The upper bound never excludes
// anything since clock hours stop at 23.
const (
	FirstDayHour = 5
	DayEndHour   = 24
)

// Half-open time-of-day bins.
const (
	morningStart   = 5
	afternoonStart = 12
	eveningStart   = 18
)

// addressSeparator splits purchase_address into street, city, "STATE ZIP", country.
const addressSeparator = ", "

// stateSegment is the zero-based index of the "STATE ZIP" segment.
const stateSegment = 2

// stateLength is the number of characters kept from the state segment.
const stateLength = 2

// timestampLayouts are tried in order when order_date is stored as text.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

// ParseOrderDate converts a raw order_date value into a time in loc.
// It returns false for NULL and for values it cannot interpret.
func ParseOrderDate(v any, loc *time.Location) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t.In(loc), true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return t.In(loc), true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
				return parsed.In(loc), true
			}
		}
		return time.Time{}, false
	case []byte:
		return ParseOrderDate(string(t), loc)
	default:
		return time.Time{}, false
	}
}

// HourOf returns the hour-of-day of a raw order_date value in loc.
func HourOf(v any, loc *time.Location) (int, bool) {
	t, ok := ParseOrderDate(v, loc)
	if !ok {
		return 0, false
	}
	return t.Hour(), true
}

// InDayWindow reports whether hour survives the night-order filter.
func InDayWindow(hour int) bool {
	return hour >= FirstDayHour && hour < DayEndHour
}

// ClassifyHour maps an hour to its time-of-day bin. Hours outside every bin
// return false.
func ClassifyHour(hour int) (core.TimeOfDay, bool) {
	switch {
	case hour >= morningStart && hour < afternoonStart:
		return core.Morning, true
	case hour >= afternoonStart && hour < eveningStart:
		return core.Afternoon, true
	case hour >= eveningStart && hour < DayEndHour:
		return core.Evening, true
	default:
		return "", false
	}
}

// TruncateToDate drops the time-of-day of t, keeping the calendar date t has
// in its own location. The result is midnight UTC of that date.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Lower lowercases s using Unicode case mapping.
func Lower(s string) string {
	// Casers carry state and must not be shared across goroutines.
	return cases.Lower(language.Und).String(s)
}

// ContainsTV reports whether s contains "tv" in any casing.
func ContainsTV(s string) bool {
	return strings.Contains(Lower(s), "tv")
}

// ExtractState returns the two-letter state code of a purchase address such
// as "123 Main St, Anytown, CA 90210, USA". It returns false when the address
// has fewer than three ", "-separated segments. A state segment shorter than
// two characters is returned as is.
func ExtractState(address string) (string, bool) {
	parts := strings.Split(address, addressSeparator)
	if len(parts) <= stateSegment {
		return "", false
	}
	seg := []rune(parts[stateSegment])
	if len(seg) > stateLength {
		seg = seg[:stateLength]
	}
	return string(seg), true
}

// Outcome tells whether a rule kept a record and, if not, why.
type Outcome int

// Rule outcomes.
const (
	Keep Outcome = iota
	DropNight
	DropNullProduct
	DropTV
)

func (o Outcome) String() string {
	switch o {
	case Keep:
		return "keep"
	case DropNight:
		return "night_order"
	case DropNullProduct:
		return "null_product"
	case DropTV:
		return "tv_product"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Row is the per-record state threaded through the rules.
type Row struct {
	In  *core.OrderRecord
	Out *core.CleanedOrderRecord

	// Outcome is set by filter rules; anything but Keep stops the pipeline.
	Outcome Outcome

	// MalformedAddress is set when the state could not be extracted.
	MalformedAddress bool

	loc     *time.Location
	ts      time.Time
	hasTS   bool
	tsKnown bool
}

// timestamp parses the original order_date once per row.
func (r *Row) timestamp() (time.Time, bool) {
	if !r.tsKnown {
		r.ts, r.hasTS = ParseOrderDate(r.In.OrderDate, r.loc)
		r.tsKnown = true
	}
	return r.ts, r.hasTS
}

// Rule is one step of the cleaning pipeline.
type Rule struct {
	Name  string
	Apply func(*Row) error
}

// filterNightOrders drops rows whose hour is outside the day window. A NULL
// or unreadable timestamp fails the predicate and is dropped too.
func filterNightOrders(r *Row) error {
	ts, ok := r.timestamp()
	if !ok || !InDayWindow(ts.Hour()) {
		r.Outcome = DropNight
	}
	return nil
}

// classifyTimeOfDay derives time_of_day from the original timestamp.
func classifyTimeOfDay(r *Row) error {
	r.Out.TimeOfDay = nil
	ts, ok := r.timestamp()
	if !ok {
		return nil
	}
	if tod, ok := ClassifyHour(ts.Hour()); ok {
		r.Out.TimeOfDay = &tod
	}
	return nil
}

// truncateOrderDate replaces the timestamp with its calendar date.
func truncateOrderDate(r *Row) error {
	ts, ok := r.timestamp()
	if !ok {
		r.Outcome = DropNight
		return nil
	}
	r.Out.OrderDate = TruncateToDate(ts)
	return nil
}

// normalizeProduct drops TV products, checked on the original value, then
// lowercases the survivors.
func normalizeProduct(r *Row) error {
	if r.In.Product == nil {
		r.Outcome = DropNullProduct
		return nil
	}
	lowered := Lower(*r.In.Product)
	if strings.Contains(lowered, "tv") {
		r.Outcome = DropTV
		return nil
	}
	r.Out.Product = lowered
	return nil
}

// normalizeCategory lowercases category; NULL stays NULL.
func normalizeCategory(r *Row) error {
	if r.In.Category == nil {
		r.Out.Category = nil
		return nil
	}
	lowered := Lower(*r.In.Category)
	r.Out.Category = &lowered
	return nil
}
