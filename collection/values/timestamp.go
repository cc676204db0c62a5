package values

import (
	"strconv"
	"time"
)

// Timestamp is a collection modification time in milliseconds since epoch.
// The remote service guarantees it increases monotonically per collection.
type Timestamp int64

// ParseTimestamp parses the decimal string rendering of a timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Timestamp(ms), nil
}

// Int64 returns the raw millisecond value.
func (t Timestamp) Int64() int64 {
	return int64(t)
}

// String returns the decimal rendering used in canonical payloads and
// timestamp comparisons.
func (t Timestamp) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// Time returns the timestamp as a UTC time, truncated to second precision.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t)/1000, 0).UTC()
}

// Human returns the operator-facing rendering, e.g. "2016-05-04 13:37:00 UTC".
func (t Timestamp) Human() string {
	return t.Time().Format("2006-01-02 15:04:05") + " UTC"
}
