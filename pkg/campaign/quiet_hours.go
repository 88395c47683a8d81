package campaign

import "time"

// QuietHours is the local-time window inside which interactive SMS sends
// are allowed. Background drip ticks ignore it; only "send now" actions
// defer to the next scheduled tick when outside the window.
type QuietHours struct {
	// StartHour is the first allowed local hour, inclusive.
	StartHour int
	// EndHour is the first disallowed local hour.
	EndHour int
	// Location is the reference timezone the hours are evaluated in.
	Location *time.Location
}

// DefaultQuietHours allows sends between 08:00 and 20:00 in the given zone.
func DefaultQuietHours(loc *time.Location) QuietHours {
	return QuietHours{StartHour: 8, EndHour: 20, Location: loc}
}

// Allows reports whether an interactive send may go out at the given
// instant. The caller supplies now so the policy stays testable.
func (q QuietHours) Allows(now time.Time) bool {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()
	if q.StartHour <= q.EndHour {
		return hour >= q.StartHour && hour < q.EndHour
	}
	// Window wraps midnight.
	return hour >= q.StartHour || hour < q.EndHour
}
