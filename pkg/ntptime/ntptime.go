// Package ntptime converts between 64-bit NTP timestamps and unix time.
//
// Scientific sensor feeds timestamp samples in NTP64 format: seconds since
// 1900-01-01 in the high 32 bits and a binary fraction of a second in the
// low 32 bits. Stored values keep this encoding; queries convert on the
// way out.
package ntptime

import (
	"time"
)

// unixEraOffset is the number of seconds between the NTP epoch (1900-01-01)
// and the unix epoch (1970-01-01).
const unixEraOffset = 2208988800

// fracScale is the value of one full second in the fractional field.
const fracScale = 1 << 32

// NTP64 is a 64-bit NTP timestamp.
type NTP64 uint64

// FromTime converts a time.Time to an NTP64 timestamp.
func FromTime(t time.Time) NTP64 {
	secs := uint64(t.Unix() + unixEraOffset)
	frac := (uint64(t.Nanosecond()) * fracScale) / uint64(time.Second)
	return NTP64(secs<<32 | frac)
}

// FromUnixMillis converts integer unix milliseconds to an NTP64 timestamp.
func FromUnixMillis(ms int64) NTP64 {
	secs := uint64(ms/1000 + unixEraOffset)
	frac := (uint64(ms%1000) * fracScale) / 1000
	return NTP64(secs<<32 | frac)
}

// Seconds returns the integer seconds field (seconds since 1900).
func (n NTP64) Seconds() uint32 {
	return uint32(n >> 32)
}

// Fraction returns the binary fraction-of-second field.
func (n NTP64) Fraction() uint32 {
	return uint32(n)
}

// UnixMillis returns the timestamp as integer milliseconds since the unix
// epoch, rounded to the nearest millisecond.
func (n NTP64) UnixMillis() int64 {
	secs := int64(n.Seconds()) - unixEraOffset
	ms := (uint64(n.Fraction())*1000 + fracScale/2) / fracScale
	return secs*1000 + int64(ms)
}

// Time returns the timestamp as a time.Time in UTC.
func (n NTP64) Time() time.Time {
	secs := int64(n.Seconds()) - unixEraOffset
	nanos := (uint64(n.Fraction()) * uint64(time.Second)) / fracScale
	return time.Unix(secs, int64(nanos)).UTC()
}

// String formats the timestamp as RFC 3339 with millisecond precision.
func (n NTP64) String() string {
	return n.Time().Format("2006-01-02T15:04:05.000Z07:00")
}
