package lifecycle

import "time"

// GracePeriod is how long an unpaid reservation holds its vehicle after
// creation before it becomes eligible for auto-expiration.  It applies
// only when no explicit auto-cancel deadline is stored on the record.
const GracePeriod = 2 * time.Hour

// UrgentWindow is the remaining-time threshold under which the countdown
// is flagged urgent for dashboard display.
const UrgentWindow = 30 * time.Minute

// Deadline computes the moment a reservation expires.  An explicit
// autoCancelAt always takes precedence; otherwise the deadline derives
// from the creation time plus the fixed grace period.
func Deadline(createdAt time.Time, autoCancelAt *time.Time) time.Time {
    if autoCancelAt != nil {
        return *autoCancelAt
    }
    return createdAt.Add(GracePeriod)
}

// ShouldExpire reports whether a reservation should be considered expired
// at the instant now.  Statuses without an auto-cancel timer never
// expire.  The comparison is strictly greater-than: a reservation checked
// exactly at its deadline is not yet expired.  The caller supplies now so
// the predicate stays deterministic under test.
func ShouldExpire(status string, createdAt time.Time, autoCancelAt *time.Time, now time.Time) bool {
    if !Resolve(status).HasAutoCancelTimer {
        return false
    }
    return now.After(Deadline(createdAt, autoCancelAt))
}

// Countdown describes the remaining time before a reservation expires.
// Hours and Minutes are whole components of the remainder (both zero once
// expired).  IsUrgent is set when less than UrgentWindow remains.
type Countdown struct {
    Hours     int  `json:"hours"`
    Minutes   int  `json:"minutes"`
    IsExpired bool `json:"is_expired"`
    IsUrgent  bool `json:"is_urgent"`
}

// TimeUntilExpiration returns the countdown toward a reservation's
// deadline for UI display.  The boolean is false for statuses without an
// auto-cancel timer, in which case the Countdown is meaningless.
func TimeUntilExpiration(status string, createdAt time.Time, autoCancelAt *time.Time, now time.Time) (Countdown, bool) {
    if !Resolve(status).HasAutoCancelTimer {
        return Countdown{}, false
    }
    deadline := Deadline(createdAt, autoCancelAt)
    remaining := deadline.Sub(now)
    if remaining < 0 {
        return Countdown{IsExpired: true}, true
    }
    return Countdown{
        Hours:    int(remaining / time.Hour),
        Minutes:  int(remaining % time.Hour / time.Minute),
        IsUrgent: remaining < UrgentWindow,
    }, true
}
