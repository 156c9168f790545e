package sweeper

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/iliyamo/car-rental-backoffice/internal/lifecycle"
    "github.com/iliyamo/car-rental-backoffice/internal/model"
)

var t0 = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

// fakeReservation mirrors the columns the sweep touches.
type fakeReservation struct {
    id           uint64
    vehicleID    uint64
    status       string
    payment      model.PaymentStatus
    customer     string
    createdAt    time.Time
    autoCancelAt *time.Time
    cancelledAt  *time.Time
    reason       string
}

// fakeStore applies the same guards as the SQL store: candidate
// filtering, the guarded expired update and the reserved-only vehicle
// release.
type fakeStore struct {
    reservations map[uint64]*fakeReservation
    vehicles     map[uint64]string
    listErr      error
    releaseErr   map[uint64]error
}

func newFakeStore() *fakeStore {
    return &fakeStore{
        reservations: map[uint64]*fakeReservation{},
        vehicles:     map[uint64]string{},
        releaseErr:   map[uint64]error{},
    }
}

func (f *fakeStore) timerEligible(status string) bool {
    return lifecycle.Resolve(status).HasAutoCancelTimer
}

func (f *fakeStore) ListCandidates(ctx context.Context) ([]Candidate, error) {
    if f.listErr != nil {
        return nil, f.listErr
    }
    out := []Candidate{}
    for _, res := range f.reservations {
        if f.timerEligible(res.status) && res.payment != model.PaymentPaid {
            out = append(out, Candidate{
                ID: res.id, VehicleID: res.vehicleID, Status: res.status,
                CustomerName: res.customer, CreatedAt: res.createdAt, AutoCancelAt: res.autoCancelAt,
            })
        }
    }
    return out, nil
}

func (f *fakeStore) MarkExpired(ctx context.Context, id uint64, now time.Time, reason string) (bool, error) {
    res, ok := f.reservations[id]
    if !ok || !f.timerEligible(res.status) || res.payment == model.PaymentPaid {
        return false, nil
    }
    res.status = string(lifecycle.StatusExpired)
    at := now
    res.cancelledAt = &at
    res.reason = reason
    return true, nil
}

func (f *fakeStore) ReleaseVehicleIfReserved(ctx context.Context, vehicleID uint64) (bool, error) {
    if err := f.releaseErr[vehicleID]; err != nil {
        return false, err
    }
    if f.vehicles[vehicleID] != model.VehicleReserved {
        return false, nil
    }
    f.vehicles[vehicleID] = model.VehicleAvailable
    return true, nil
}

func (f *fakeStore) ListExpiredHoldingVehicle(ctx context.Context) ([]uint64, error) {
    out := []uint64{}
    for _, res := range f.reservations {
        if res.status == string(lifecycle.StatusExpired) && f.vehicles[res.vehicleID] == model.VehicleReserved {
            out = append(out, res.vehicleID)
        }
    }
    return out, nil
}

// fakeNotifier counts the side effects of sweeps.
type fakeNotifier struct {
    expired  []Expired
    entities []string
}

func (n *fakeNotifier) ReservationExpired(ctx context.Context, exp Expired) {
    n.expired = append(n.expired, exp)
}

func (n *fakeNotifier) EntitiesChanged(ctx context.Context, entities ...string) {
    n.entities = append(n.entities, entities...)
}

func at(ts time.Time) Option {
    return WithClock(func() time.Time { return ts })
}

func seedUnpaid(f *fakeStore, id, vehicleID uint64, status string) *fakeReservation {
    res := &fakeReservation{
        id: id, vehicleID: vehicleID, status: status,
        payment: model.PaymentPending, customer: "Dana Villa", createdAt: t0,
    }
    f.reservations[id] = res
    f.vehicles[vehicleID] = model.VehicleReserved
    return res
}

func TestSweepRespectsGracePeriodThenExpires(t *testing.T) {
    store := newFakeStore()
    seedUnpaid(store, 1, 10, "awaiting_payment")

    // Not yet: one minute before the two-hour deadline.
    res, err := New(store, at(t0.Add(119*time.Minute))).Sweep(context.Background())
    if err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if res.Cancelled != 0 {
        t.Fatalf("cancelled %d reservations before the deadline", res.Cancelled)
    }
    if store.reservations[1].status != "awaiting_payment" {
        t.Fatalf("status changed prematurely: %s", store.reservations[1].status)
    }

    // One minute past: expired, vehicle released, timestamp recorded.
    res, err = New(store, at(t0.Add(121*time.Minute))).Sweep(context.Background())
    if err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if res.Cancelled != 1 {
        t.Fatalf("cancelled = %d, want 1", res.Cancelled)
    }
    got := store.reservations[1]
    if got.status != string(lifecycle.StatusExpired) {
        t.Errorf("status = %s, want expired", got.status)
    }
    if got.cancelledAt == nil {
        t.Error("cancellation timestamp not recorded")
    }
    if got.reason != Reason {
        t.Errorf("reason = %q, want %q", got.reason, Reason)
    }
    if store.vehicles[10] != model.VehicleAvailable {
        t.Errorf("vehicle status = %s, want available", store.vehicles[10])
    }
    exp := res.Reservations[0]
    if exp.ID != 1 || exp.CustomerName != "Dana Villa" || !exp.Deadline.Equal(t0.Add(lifecycle.GracePeriod)) {
        t.Errorf("unexpected expired report: %+v", exp)
    }
}

func TestSweepPaymentGuardOverridesElapsedTime(t *testing.T) {
    store := newFakeStore()
    res := seedUnpaid(store, 1, 10, "awaiting_payment")
    res.payment = model.PaymentPaid

    out, err := New(store, at(t0.Add(121*time.Minute))).Sweep(context.Background())
    if err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if out.Cancelled != 0 {
        t.Fatalf("paid reservation expired")
    }
    if res.status != "awaiting_payment" {
        t.Errorf("status = %s, want awaiting_payment", res.status)
    }
    if store.vehicles[10] != model.VehicleReserved {
        t.Errorf("vehicle released for a paid reservation")
    }
}

func TestSweepExplicitDeadlineTakesPrecedence(t *testing.T) {
    store := newFakeStore()
    long := t0.Add(6 * time.Hour)
    seedUnpaid(store, 1, 10, "pending").autoCancelAt = &long

    // Past the derived 2h deadline but before the explicit one.
    out, err := New(store, at(t0.Add(3*time.Hour))).Sweep(context.Background())
    if err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if out.Cancelled != 0 {
        t.Fatal("expired before the explicit deadline")
    }

    out, err = New(store, at(long.Add(time.Minute))).Sweep(context.Background())
    if err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if out.Cancelled != 1 {
        t.Fatal("not expired after the explicit deadline")
    }
    if !out.Reservations[0].Deadline.Equal(long) {
        t.Errorf("reported deadline = %v, want the explicit %v", out.Reservations[0].Deadline, long)
    }
}

func TestSweepLeavesNonReservedVehicleUntouched(t *testing.T) {
    store := newFakeStore()
    seedUnpaid(store, 1, 10, "awaiting_payment")
    store.vehicles[10] = model.VehicleInMaintenance

    out, err := New(store, at(t0.Add(3*time.Hour))).Sweep(context.Background())
    if err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if out.Cancelled != 1 {
        t.Fatalf("cancelled = %d, want 1", out.Cancelled)
    }
    if store.vehicles[10] != model.VehicleInMaintenance {
        t.Errorf("vehicle in maintenance was clobbered to %s", store.vehicles[10])
    }
}

func TestVehicleReleaseFailureNeverRevertsExpiry(t *testing.T) {
    store := newFakeStore()
    seedUnpaid(store, 1, 10, "awaiting_payment")
    store.releaseErr[10] = errors.New("connection reset")

    out, err := New(store, at(t0.Add(3*time.Hour))).Sweep(context.Background())
    if err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if out.Cancelled != 1 {
        t.Fatalf("cancelled = %d, want 1 despite release failure", out.Cancelled)
    }
    if store.reservations[1].status != string(lifecycle.StatusExpired) {
        t.Error("status transition reverted after vehicle release failure")
    }
    if store.vehicles[10] != model.VehicleReserved {
        t.Error("vehicle unexpectedly released")
    }

    // The next cycle's reconciliation pass frees the vehicle even though
    // there are no new candidates.
    delete(store.releaseErr, 10)
    if _, err := New(store, at(t0.Add(4*time.Hour))).Sweep(context.Background()); err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if store.vehicles[10] != model.VehicleAvailable {
        t.Errorf("reconciliation did not release the vehicle, status %s", store.vehicles[10])
    }
}

func TestOverlappingSweepsFireSideEffectsOnce(t *testing.T) {
    store := newFakeStore()
    seedUnpaid(store, 1, 10, "pending")
    notifier := &fakeNotifier{}
    clock := at(t0.Add(3 * time.Hour))

    if _, err := New(store, clock, WithNotifier(notifier)).Sweep(context.Background()); err != nil {
        t.Fatalf("first sweep: %v", err)
    }
    out, err := New(store, clock, WithNotifier(notifier)).Sweep(context.Background())
    if err != nil {
        t.Fatalf("second sweep: %v", err)
    }
    if out.Cancelled != 0 {
        t.Errorf("second sweep claimed %d reservations", out.Cancelled)
    }
    if len(notifier.expired) != 1 {
        t.Errorf("expiry event fired %d times, want exactly once", len(notifier.expired))
    }
    if len(notifier.entities) == 0 {
        t.Error("no entity-change signal published by the winning sweep")
    }
}

func TestSweepAbortsCycleOnFetchFailure(t *testing.T) {
    store := newFakeStore()
    seedUnpaid(store, 1, 10, "awaiting_payment")
    store.listErr = errors.New("driver: bad connection")

    if _, err := New(store, at(t0.Add(3*time.Hour))).Sweep(context.Background()); err == nil {
        t.Fatal("expected an error when the candidate query fails")
    }
    if store.reservations[1].status != "awaiting_payment" {
        t.Error("reservation mutated during an aborted cycle")
    }
}

func TestRunnerSweepsImmediatelyAndStops(t *testing.T) {
    store := newFakeStore()
    seedUnpaid(store, 1, 10, "awaiting_payment")

    s := New(store, at(t0.Add(3*time.Hour)))
    r := StartRunner(context.Background(), s, time.Hour)
    defer r.Stop()

    deadline := time.Now().Add(2 * time.Second)
    for time.Now().Before(deadline) {
        if store.reservations[1].status == string(lifecycle.StatusExpired) {
            return
        }
        time.Sleep(10 * time.Millisecond)
    }
    t.Fatal("runner did not sweep on start")
}
