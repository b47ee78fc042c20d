package timeutil

import (
	"time"
)

// TimeUTC is a small helper type representing Unix time (in seconds) in UTC.
type TimeUTC struct{ T int64 }

func NowUTC() TimeUTC {
	return TimeUTC{T: time.Now().UTC().Unix()}
}

func FromTime(t time.Time) TimeUTC {
	return TimeUTC{T: t.UTC().Unix()}
}

func (t TimeUTC) After(other TimeUTC) bool { return t.T > other.T }
func (t TimeUTC) AddSeconds(sec int64) TimeUTC {
	return TimeUTC{T: t.T + sec}
}

// Since returns the number of seconds elapsed from other to t; negative when other is later.
func (t TimeUTC) Since(other TimeUTC) int64 { return t.T - other.T }

func (t TimeUTC) Time() time.Time { return time.Unix(t.T, 0).UTC() }
