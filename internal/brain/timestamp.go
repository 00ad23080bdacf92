package brain

import "time"

// vexEpoch is 2000-01-01T00:00:00Z, the zero point for on-wire timestamps
// (seconds since epoch, stored as u32 little-endian), grounded in
// core/src/brain/system.rs's JAN_01_2000 constant.
var vexEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ToVexTimestamp converts t to the on-wire u32 second count. Times before
// the epoch saturate at 0.
func ToVexTimestamp(t time.Time) uint32 {
	d := t.UTC().Sub(vexEpoch)
	if d < 0 {
		return 0
	}
	return uint32(d.Seconds())
}

// FromVexTimestamp converts an on-wire u32 second count back to a UTC time.
func FromVexTimestamp(v uint32) time.Time {
	return vexEpoch.Add(time.Duration(v) * time.Second)
}
