package lifecycle

import (
    "testing"
    "time"
)

var t0 = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestShouldExpireIgnoresStatusesWithoutTimer(t *testing.T) {
    farPast := t0.Add(-100 * time.Hour)
    for _, status := range []string{"paid_no_contract", "contract_generated", "confirmed", "completed", "expired", "cancelled"} {
        if ShouldExpire(status, farPast, nil, t0) {
            t.Errorf("status %s expired despite having no timer", status)
        }
    }
}

func TestShouldExpireStrictDeadlineBoundary(t *testing.T) {
    deadline := t0.Add(GracePeriod)
    if ShouldExpire("awaiting_payment", t0, nil, deadline) {
        t.Error("reservation expired exactly at the deadline; boundary must be strict")
    }
    if !ShouldExpire("awaiting_payment", t0, nil, deadline.Add(time.Millisecond)) {
        t.Error("reservation not expired one millisecond past the deadline")
    }
}

func TestShouldExpireExplicitDeadlineWins(t *testing.T) {
    // Explicit deadline 30 minutes after creation, derived deadline would
    // be 2 hours; the explicit one must govern in both directions.
    short := t0.Add(30 * time.Minute)
    if !ShouldExpire("pending", t0, &short, t0.Add(31*time.Minute)) {
        t.Error("explicit short deadline ignored in favor of the grace period")
    }
    long := t0.Add(6 * time.Hour)
    if ShouldExpire("pending", t0, &long, t0.Add(3*time.Hour)) {
        t.Error("derived grace-period deadline applied despite an explicit later one")
    }
}

func TestShouldExpireGracePeriodScenario(t *testing.T) {
    // awaiting_payment, no explicit deadline: unchanged at T0+119m,
    // expired at T0+121m.
    if ShouldExpire("awaiting_payment", t0, nil, t0.Add(119*time.Minute)) {
        t.Error("expired before the two-hour grace period elapsed")
    }
    if !ShouldExpire("awaiting_payment", t0, nil, t0.Add(121*time.Minute)) {
        t.Error("not expired after the two-hour grace period elapsed")
    }
}

func TestShouldExpireAcceptsLegacyStatusStrings(t *testing.T) {
    if !ShouldExpire("reserved", t0, nil, t0.Add(3*time.Hour)) {
        t.Error("legacy 'reserved' (awaiting_payment) should be timer-eligible")
    }
    if ShouldExpire("rented", t0, nil, t0.Add(3*time.Hour)) {
        t.Error("legacy 'rented' (confirmed) should not be timer-eligible")
    }
}

func TestTimeUntilExpiration(t *testing.T) {
    tests := []struct {
        name   string
        status string
        now    time.Time
        want   Countdown
        wantOK bool
    }{
        {
            name: "no timer", status: "confirmed", now: t0,
            wantOK: false,
        },
        {
            name: "plenty of time", status: "awaiting_payment", now: t0.Add(25 * time.Minute),
            want: Countdown{Hours: 1, Minutes: 35}, wantOK: true,
        },
        {
            name: "urgent", status: "pending", now: t0.Add(GracePeriod - 12*time.Minute),
            want: Countdown{Hours: 0, Minutes: 12, IsUrgent: true}, wantOK: true,
        },
        {
            name: "already expired", status: "awaiting_payment", now: t0.Add(GracePeriod + time.Minute),
            want: Countdown{IsExpired: true}, wantOK: true,
        },
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            got, ok := TimeUntilExpiration(tc.status, t0, nil, tc.now)
            if ok != tc.wantOK {
                t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
            }
            if ok && got != tc.want {
                t.Errorf("countdown = %+v, want %+v", got, tc.want)
            }
        })
    }
}

func TestDeadlinePrefersExplicitValue(t *testing.T) {
    explicit := t0.Add(45 * time.Minute)
    if got := Deadline(t0, &explicit); !got.Equal(explicit) {
        t.Errorf("Deadline with explicit value = %v, want %v", got, explicit)
    }
    if got := Deadline(t0, nil); !got.Equal(t0.Add(GracePeriod)) {
        t.Errorf("derived deadline = %v, want creation + %v", got, GracePeriod)
    }
}
