package types

// TimeFormatUnixMillis requests time values as integer milliseconds since
// the unix epoch. Any other format returns the native on-disk representation.
const TimeFormatUnixMillis = "unix_millis"

// DefaultMaxRows is the effectively unbounded row limit applied when a
// filter does not set one.
const DefaultMaxRows = 999999999

// QueryFilter selects a trailing window of dataset variables.
type QueryFilter struct {
	// Variables lists the requested variable names; empty means all
	Variables []string `json:"variables"`

	// TimeFormat selects the output encoding for the time variable
	TimeFormat string `json:"time_format"`

	// MaxRows bounds the trailing window size; 0 means unbounded
	MaxRows int64 `json:"max_rows"`

	// TransposeTime replaces each variable series with (time, value) pairs
	TransposeTime bool `json:"transpose_time"`
}

// TimedValue is one (time, value) pair produced by a transposed query.
type TimedValue struct {
	Time  interface{} `json:"t"`
	Value interface{} `json:"v"`
}

// QueryResult maps variable names to ordered value sequences. Under
// transpose_time the sequence elements are TimedValue pairs.
type QueryResult map[string][]interface{}
