package core

import "time"

// Well-known column names of the orders dataset.
const (
	ColumnOrderDate       = "order_date"
	ColumnProduct         = "product"
	ColumnCategory        = "category"
	ColumnPurchaseAddress = "purchase_address"
	ColumnTimeOfDay       = "time_of_day"
	ColumnPurchaseState   = "purchase_state"
)

// TimeOfDay is the coarse bucket an order's hour falls into.
type TimeOfDay string

// Time-of-day buckets.
const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// OrderRecord is one input row.
//
// The four named fields are pointers because any of them may be NULL in the
// source file. Everything else in the row is carried in Passthrough keyed by
// column name and is never touched by the transformer.
type OrderRecord struct {
	// Ordinal is the zero-based position of the row in the source file.
	Ordinal int64

	// OrderDate is the raw order_date value: a time.Time, a string, or nil.
	OrderDate any

	Product         *string
	Category        *string
	PurchaseAddress *string

	Passthrough map[string]any
}

// CleanedOrderRecord is one output row.
type CleanedOrderRecord struct {
	Ordinal int64

	// OrderDate is a calendar date at midnight UTC.
	OrderDate time.Time

	// TimeOfDay is nil when the hour matches none of the buckets.
	TimeOfDay *TimeOfDay

	Product  string
	Category *string

	// PurchaseState is nil when the address is NULL or malformed.
	PurchaseState *string

	Passthrough map[string]any
}

// DerivedColumns lists the columns the transformer rewrites or adds, in the
// order they appear in the output.
var DerivedColumns = []string{
	ColumnOrderDate,
	ColumnProduct,
	ColumnCategory,
	ColumnTimeOfDay,
	ColumnPurchaseState,
}

// IsDerived reports whether name is rewritten or added by the transformer.
func IsDerived(name string) bool {
	for _, c := range DerivedColumns {
		if c == name {
			return true
		}
	}
	return false
}

// OrderBatch is an input file loaded into memory.
type OrderBatch struct {
	// Path is the file the batch was read from.
	Path string

	// Columns holds the source schema in file order.
	Columns []Column

	Records []OrderRecord
}

// OutputColumns returns the column names of the cleaned output in order:
// source columns in file order, then time_of_day and purchase_state unless
// the source already had them, in which case they are replaced in place.
func (b *OrderBatch) OutputColumns() []string {
	names := make([]string, 0, len(b.Columns)+2)
	for _, c := range b.Columns {
		names = append(names, c.Name)
	}
	for _, added := range []string{ColumnTimeOfDay, ColumnPurchaseState} {
		if !b.HasColumn(added) {
			names = append(names, added)
		}
	}
	return names
}

// HasColumn reports whether the source schema contains name.
func (b *OrderBatch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
