package core

import (
	"fmt"
	"strings"
	"time"
)

// Duration is a length of time with whole-second precision.
type Duration struct {
	d time.Duration
}

// Seconds returns a Duration of n seconds.
func Seconds(n int64) Duration { return Duration{time.Duration(n) * time.Second} }

// Minutes returns a Duration of n minutes.
func Minutes(n int64) Duration { return Duration{time.Duration(n) * time.Minute} }

// Hours returns a Duration of n hours.
func Hours(n int64) Duration { return Duration{time.Duration(n) * time.Hour} }

// Days returns a Duration of n days.
func Days(n int64) Duration { return Duration{time.Duration(n) * 24 * time.Hour} }

// FromTime converts a time.Duration, truncating to whole seconds.
func FromTime(d time.Duration) Duration { return Duration{d.Truncate(time.Second)} }

// IsZero reports whether the duration is unset.
func (d Duration) IsZero() bool { return d.d == 0 }

// Seconds returns the duration in whole seconds.
func (d Duration) Seconds() int64 { return int64(d.d / time.Second) }

// Minutes returns the duration in whole minutes, rounded down.
func (d Duration) Minutes() int64 { return int64(d.d / time.Minute) }

// Days returns the duration in whole days, rounded down.
func (d Duration) Days() int64 { return int64(d.d / (24 * time.Hour)) }

// Std returns the time.Duration.
func (d Duration) Std() time.Duration { return d.d }

// ToHumanString renders the duration with its non-zero units, largest
// first: "1 hour 30 minutes".
func (d Duration) ToHumanString() string {
	secs := d.Seconds()
	if secs == 0 {
		return "0 seconds"
	}
	units := []struct {
		name string
		size int64
	}{
		{"day", 86400},
		{"hour", 3600},
		{"minute", 60},
		{"second", 1},
	}
	var parts []string
	for _, u := range units {
		n := secs / u.size
		if n == 0 {
			continue
		}
		secs -= n * u.size
		name := u.name
		if n != 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}
	return strings.Join(parts, " ")
}

func (d Duration) String() string { return d.ToHumanString() }
