// Package sweeper implements the auto-expiration of unpaid reservations.
// The algorithm exists exactly once: Sweep is called both by the periodic
// runner (while the service is up) and by the scheduler-facing HTTP
// endpoint, so expiration happens whether or not a background runner is
// alive.  Eligibility and deadlines come from the lifecycle package.
package sweeper

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/iliyamo/car-rental-backoffice/internal/lifecycle"
)

// Reason is the fixed cancellation reason recorded on auto-expired
// reservations.
const Reason = "auto-cancelled: payment not received within the grace period"

// Candidate is one unpaid reservation the store considers eligible for
// expiration.  The store pre-filters by timer-eligible status and
// unpaid payment status; the time-based decision happens here.
type Candidate struct {
    ID           uint64
    VehicleID    uint64
    Status       string
    CustomerName string
    CreatedAt    time.Time
    AutoCancelAt *time.Time
}

// Expired describes one reservation the sweep transitioned.
type Expired struct {
    ID           uint64    `json:"id"`
    CustomerName string    `json:"customer_name"`
    Deadline     time.Time `json:"deadline"`
}

// Result summarizes one sweep cycle.
type Result struct {
    Cancelled    int       `json:"cancelled"`
    Reservations []Expired `json:"reservations"`
}

// Store is the data access the sweep needs.  MarkExpired must repeat
// the eligibility guard in its WHERE clause and report whether the row
// was actually transitioned, so two overlapping sweepers cannot both
// claim the same reservation.  ReleaseVehicleIfReserved must only touch
// vehicles still in the reserved state.
type Store interface {
    ListCandidates(ctx context.Context) ([]Candidate, error)
    MarkExpired(ctx context.Context, id uint64, now time.Time, reason string) (bool, error)
    ReleaseVehicleIfReserved(ctx context.Context, vehicleID uint64) (bool, error)
    ListExpiredHoldingVehicle(ctx context.Context) ([]uint64, error)
}

// Notifier receives the side effects of a sweep: per-reservation expiry
// events and entity-change signals for cache invalidation.  A nil
// Notifier disables both.
type Notifier interface {
    ReservationExpired(ctx context.Context, exp Expired)
    EntitiesChanged(ctx context.Context, entities ...string)
}

// Sweeper runs the expiration algorithm over a Store.
type Sweeper struct {
    store    Store
    notifier Notifier
    now      func() time.Time
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithNotifier wires the event publisher invoked on each transition.
func WithNotifier(n Notifier) Option {
    return func(s *Sweeper) { s.notifier = n }
}

// WithClock overrides the time source; used by tests.
func WithClock(now func() time.Time) Option {
    return func(s *Sweeper) { s.now = now }
}

// New returns a Sweeper over the given store.
func New(store Store, opts ...Option) *Sweeper {
    s := &Sweeper{store: store, now: func() time.Time { return time.Now().UTC() }}
    for _, opt := range opts {
        opt(s)
    }
    return s
}

// Sweep runs one expiration cycle: query candidates, expire the ones
// past their deadline, release their vehicles, then reconcile vehicles
// left reserved by an earlier partial failure.  A fetch failure aborts
// the cycle; per-row write failures are logged and skipped so one bad
// row cannot starve the rest.  The vehicle release is attempted after —
// and independently of — the status transition: its failure never
// blocks or reverts the expiry, it only leaves work for the
// reconciliation pass of a later cycle.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
    now := s.now()
    candidates, err := s.store.ListCandidates(ctx)
    if err != nil {
        return Result{}, fmt.Errorf("list candidates: %w", err)
    }

    result := Result{Reservations: []Expired{}}
    for _, cand := range candidates {
        if !lifecycle.ShouldExpire(cand.Status, cand.CreatedAt, cand.AutoCancelAt, now) {
            continue
        }
        did, err := s.store.MarkExpired(ctx, cand.ID, now, Reason)
        if err != nil {
            log.Printf("sweeper: expire reservation %d failed: %v", cand.ID, err)
            continue
        }
        if !did {
            // A concurrent sweeper won the guarded update, or a payment
            // landed between the query and the write.  Either way this
            // run owns no side effects for the row.
            continue
        }
        if released, err := s.store.ReleaseVehicleIfReserved(ctx, cand.VehicleID); err != nil {
            log.Printf("sweeper: release vehicle %d for reservation %d failed: %v", cand.VehicleID, cand.ID, err)
        } else if !released {
            log.Printf("sweeper: vehicle %d not in reserved state, left untouched", cand.VehicleID)
        }
        exp := Expired{
            ID:           cand.ID,
            CustomerName: cand.CustomerName,
            Deadline:     lifecycle.Deadline(cand.CreatedAt, cand.AutoCancelAt),
        }
        result.Cancelled++
        result.Reservations = append(result.Reservations, exp)
        if s.notifier != nil {
            s.notifier.ReservationExpired(ctx, exp)
        }
    }

    s.reconcile(ctx)

    if result.Cancelled > 0 && s.notifier != nil {
        s.notifier.EntitiesChanged(ctx, "reservations", "vehicles")
    }
    return result, nil
}

// reconcile releases vehicles that an earlier cycle expired without
// freeing (status write succeeded, vehicle release failed).  Failures
// here are logged only; the pass runs again next cycle.
func (s *Sweeper) reconcile(ctx context.Context) {
    vehicleIDs, err := s.store.ListExpiredHoldingVehicle(ctx)
    if err != nil {
        log.Printf("sweeper: reconciliation query failed: %v", err)
        return
    }
    for _, vid := range vehicleIDs {
        if released, err := s.store.ReleaseVehicleIfReserved(ctx, vid); err != nil {
            log.Printf("sweeper: reconciliation release of vehicle %d failed: %v", vid, err)
        } else if released {
            log.Printf("sweeper: reconciliation released vehicle %d held by an expired reservation", vid)
        }
    }
}
