package transform

import "github.com/leapstack-labs/leapclean/pkg/core"

// Stats counts what the pipeline did to a batch.
type Stats struct {
	Read               int64
	Kept               int64
	DroppedNight       int64
	DroppedTV          int64
	DroppedNullProduct int64
	MalformedAddress   int64
}

// Add records the result of one record.
func (s *Stats) Add(res Result) {
	s.Read++
	switch res.Outcome {
	case Keep:
		s.Kept++
	case DropNight:
		s.DroppedNight++
	case DropTV:
		s.DroppedTV++
	case DropNullProduct:
		s.DroppedNullProduct++
	}
	if res.MalformedAddress {
		s.MalformedAddress++
	}
}

// Merge returns the sum of s and other.
func (s Stats) Merge(other Stats) Stats {
	return Stats{
		Read:               s.Read + other.Read,
		Kept:               s.Kept + other.Kept,
		DroppedNight:       s.DroppedNight + other.DroppedNight,
		DroppedTV:          s.DroppedTV + other.DroppedTV,
		DroppedNullProduct: s.DroppedNullProduct + other.DroppedNullProduct,
		MalformedAddress:   s.MalformedAddress + other.MalformedAddress,
	}
}

// Dropped returns the number of records removed by any filter.
func (s Stats) Dropped() int64 {
	return s.DroppedNight + s.DroppedTV + s.DroppedNullProduct
}

// Counts converts the stats into the counters stored with a batch run.
func (s Stats) Counts() core.RunCounts {
	return core.RunCounts{
		RowsRead:           s.Read,
		RowsWritten:        s.Kept,
		DroppedNight:       s.DroppedNight,
		DroppedTV:          s.DroppedTV,
		DroppedNullProduct: s.DroppedNullProduct,
		MalformedAddress:   s.MalformedAddress,
	}
}
