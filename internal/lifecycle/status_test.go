package lifecycle

import "testing"

func TestTimerFlagOnlyOnPrePaymentStatuses(t *testing.T) {
    for _, cfg := range All() {
        want := cfg.Status == StatusPending || cfg.Status == StatusAwaitingPayment
        if cfg.HasAutoCancelTimer != want {
            t.Errorf("status %s: HasAutoCancelTimer = %v, want %v", cfg.Status, cfg.HasAutoCancelTimer, want)
        }
    }
}

func TestOccupancyAndActivityFlags(t *testing.T) {
    occupies := map[Status]bool{
        StatusPending: true, StatusAwaitingPayment: true, StatusPaidNoContract: true,
        StatusContractGenerated: true, StatusConfirmed: true,
        StatusCompleted: false, StatusExpired: false, StatusCancelled: false,
    }
    for _, cfg := range All() {
        if cfg.OccupiesVehicle != occupies[cfg.Status] {
            t.Errorf("status %s: OccupiesVehicle = %v, want %v", cfg.Status, cfg.OccupiesVehicle, occupies[cfg.Status])
        }
        terminal := cfg.Status == StatusCompleted || cfg.Status == StatusExpired || cfg.Status == StatusCancelled
        if cfg.IsActive == terminal {
            t.Errorf("status %s: IsActive = %v with terminal = %v", cfg.Status, cfg.IsActive, terminal)
        }
    }
}

func TestAllOrderedBySortPriorityTerminalLast(t *testing.T) {
    all := All()
    if len(all) != 8 {
        t.Fatalf("expected 8 canonical statuses, got %d", len(all))
    }
    for i := 1; i < len(all); i++ {
        if all[i-1].SortPriority >= all[i].SortPriority {
            t.Errorf("sort priorities not strictly increasing at index %d (%s then %s)", i, all[i-1].Status, all[i].Status)
        }
    }
    for _, cfg := range all[:5] {
        if !cfg.IsActive {
            t.Errorf("terminal status %s sorted before active ones", cfg.Status)
        }
    }
}

func TestCanonicalNormalizesCaseAndWhitespace(t *testing.T) {
    cases := map[string]Status{
        "confirmed":          StatusConfirmed,
        "  Confirmed  ":      StatusConfirmed,
        "AWAITING_PAYMENT":   StatusAwaitingPayment,
        "\tpaid_no_contract": StatusPaidNoContract,
    }
    for raw, want := range cases {
        if got := Canonical(raw); got != want {
            t.Errorf("Canonical(%q) = %s, want %s", raw, got, want)
        }
    }
}

func TestLegacyStatusesResolveToCanonicalConfig(t *testing.T) {
    // A legacy spelling must yield the exact same registry config as its
    // canonical equivalent passed directly.
    cases := map[string]Status{
        "reserved":       StatusAwaitingPayment,
        "reserved_paid":  StatusPaidNoContract,
        "in_progress":    StatusConfirmed,
        "rented":         StatusConfirmed,
        "finished":       StatusCompleted,
        "auto_cancelled": StatusExpired,
        "canceled":       StatusCancelled,
        "new":            StatusPending,
    }
    for legacy, canonical := range cases {
        want, ok := Lookup(canonical)
        if !ok {
            t.Fatalf("canonical status %s missing from registry", canonical)
        }
        if got := Resolve(legacy); got != want {
            t.Errorf("Resolve(%q) = %+v, want config of %s", legacy, got, canonical)
        }
    }
}

func TestUnknownStatusDefaultsToAwaitingPayment(t *testing.T) {
    got := Resolve("foo_bar")
    want, _ := Lookup(StatusAwaitingPayment)
    if got != want {
        t.Errorf("Resolve(\"foo_bar\") = %+v, want awaiting_payment config", got)
    }
}

func TestCancelledRevenueDependsOnCancellationType(t *testing.T) {
    if !IncludeInRevenue("cancelled", CancellationWithoutRefund) {
        t.Error("cancellation without refund should count as revenue")
    }
    if IncludeInRevenue("cancelled", CancellationWithRefund) {
        t.Error("cancellation with refund should not count as revenue")
    }
    if IncludeInRevenue("cancelled", CancellationNone) {
        t.Error("cancellation without a type should not count as revenue")
    }
    // The type is irrelevant for any other status.
    if !IncludeInRevenue("confirmed", CancellationWithRefund) {
        t.Error("confirmed should count as revenue regardless of cancellation type")
    }
    if IncludeInRevenue("expired", CancellationWithoutRefund) {
        t.Error("expired should never count as revenue")
    }
}

func TestTimerEligibleSet(t *testing.T) {
    got := TimerEligible()
    if len(got) != 2 || got[0] != StatusPending || got[1] != StatusAwaitingPayment {
        t.Errorf("TimerEligible() = %v, want [pending awaiting_payment]", got)
    }
}
