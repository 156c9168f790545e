package lifecycle

// legacy.go maps status strings written by earlier versions of the
// back office onto the canonical set.  The table is many-to-one: several
// historical spellings collapse onto the same canonical status.  The old
// scheme used a single "reserved" family whose payment state was tracked
// out of band, so its variants split between awaiting_payment (unpaid)
// and paid_no_contract (paid).  Inputs are expected to be lower-cased and
// trimmed already; Canonical does that before consulting this table.

var legacyStatuses = map[string]Status{
    // pre-payment
    "new":             StatusPending,
    "created":         StatusPending,
    "draft":           StatusPending,
    "reserved":        StatusAwaitingPayment,
    "reserved_unpaid": StatusAwaitingPayment,
    "pending_payment": StatusAwaitingPayment,
    "unpaid":          StatusAwaitingPayment,

    // paid variants of the old "reserved" scheme
    "reserved_paid": StatusPaidNoContract,
    "paid":          StatusPaidNoContract,
    "prepaid":       StatusPaidNoContract,

    // contract phase
    "contracted":    StatusContractGenerated,
    "with_contract": StatusContractGenerated,

    // active rental
    "active":      StatusConfirmed,
    "in_progress": StatusConfirmed,
    "rented":      StatusConfirmed,

    // terminal
    "finished":       StatusCompleted,
    "closed":         StatusCompleted,
    "returned":       StatusCompleted,
    "auto_cancelled": StatusExpired,
    "timed_out":      StatusExpired,
    "canceled":       StatusCancelled,
    "annulled":       StatusCancelled,
}

// FromLegacy translates a historical status string to its canonical
// status.  The boolean reports whether the input was a known legacy
// spelling.  Unmapped input is not this function's concern; callers fall
// back to the registry default via Canonical.
func FromLegacy(s string) (Status, bool) {
    mapped, ok := legacyStatuses[s]
    return mapped, ok
}
