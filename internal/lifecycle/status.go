// Package lifecycle is the single source of truth for reservation status
// behavior.  Every other layer (repositories, handlers, the expiration
// sweeper, reporting) derives display metadata, vehicle occupancy, revenue
// inclusion and expiration eligibility from the registry defined here.
// Historical status strings from older records are translated through the
// legacy table in legacy.go before lookup.
package lifecycle

import (
    "log"
    "sort"
    "strings"
)

// Status is a canonical reservation status.  The set is closed; strings
// outside it must go through Resolve which applies legacy translation and
// a safe default.
type Status string

const (
    StatusPending           Status = "pending"            // created, payment not yet requested
    StatusAwaitingPayment   Status = "awaiting_payment"   // payment requested, not received
    StatusPaidNoContract    Status = "paid_no_contract"   // paid, contract not yet generated
    StatusContractGenerated Status = "contract_generated" // contract exists, not signed/confirmed
    StatusConfirmed         Status = "confirmed"          // active rental
    StatusCompleted         Status = "completed"          // vehicle returned, terminal
    StatusExpired           Status = "expired"            // auto-cancelled for non-payment, terminal
    StatusCancelled         Status = "cancelled"          // manually cancelled, terminal
)

// CancellationType tags how a cancelled reservation was settled.  It is
// recorded only when a reservation transitions to StatusCancelled and
// decides whether the cancelled reservation still counts as revenue.
type CancellationType string

const (
    CancellationNone          CancellationType = ""
    CancellationWithRefund    CancellationType = "with_refund"
    CancellationWithoutRefund CancellationType = "without_refund"
)

// Config describes the behavior and presentation of one canonical status.
//
// Fields:
//  Status             – the canonical status this config belongs to.
//  Label              – human-readable name for list views.
//  BadgeClass         – style descriptor for list/badge rendering.
//  CalendarClass      – style descriptor for calendar cells.
//  Color              – canonical hex color.
//  IsActive           – false for terminal statuses.
//  IncludeInRevenue   – whether reservations in this status count toward
//                       revenue totals (see IncludeInRevenue for the
//                       cancelled special case).
//  OccupiesVehicle    – whether the reservation blocks its vehicle.
//  HasAutoCancelTimer – whether the unpaid-expiration timer applies.
//  SortPriority       – ordering for mixed-status lists; lower sorts
//                       first, terminal statuses sort last.
type Config struct {
    Status             Status
    Label              string
    BadgeClass         string
    CalendarClass      string
    Color              string
    IsActive           bool
    IncludeInRevenue   bool
    OccupiesVehicle    bool
    HasAutoCancelTimer bool
    SortPriority       int
}

// registry is the one canonical status-to-behavior table.  Parallel copies
// of this mapping must not exist anywhere else in the codebase.
var registry = map[Status]Config{
    StatusPending: {
        Status: StatusPending, Label: "Pending", BadgeClass: "badge-amber",
        CalendarClass: "cal-amber", Color: "#f59e0b",
        IsActive: true, IncludeInRevenue: false, OccupiesVehicle: true,
        HasAutoCancelTimer: true, SortPriority: 1,
    },
    StatusAwaitingPayment: {
        Status: StatusAwaitingPayment, Label: "Awaiting payment", BadgeClass: "badge-orange",
        CalendarClass: "cal-orange", Color: "#f97316",
        IsActive: true, IncludeInRevenue: false, OccupiesVehicle: true,
        HasAutoCancelTimer: true, SortPriority: 2,
    },
    StatusPaidNoContract: {
        Status: StatusPaidNoContract, Label: "Paid, no contract", BadgeClass: "badge-sky",
        CalendarClass: "cal-sky", Color: "#0ea5e9",
        IsActive: true, IncludeInRevenue: true, OccupiesVehicle: true,
        HasAutoCancelTimer: false, SortPriority: 3,
    },
    StatusContractGenerated: {
        Status: StatusContractGenerated, Label: "Contract generated", BadgeClass: "badge-indigo",
        CalendarClass: "cal-indigo", Color: "#6366f1",
        IsActive: true, IncludeInRevenue: true, OccupiesVehicle: true,
        HasAutoCancelTimer: false, SortPriority: 4,
    },
    StatusConfirmed: {
        Status: StatusConfirmed, Label: "Confirmed", BadgeClass: "badge-green",
        CalendarClass: "cal-green", Color: "#22c55e",
        IsActive: true, IncludeInRevenue: true, OccupiesVehicle: true,
        HasAutoCancelTimer: false, SortPriority: 5,
    },
    StatusCompleted: {
        Status: StatusCompleted, Label: "Completed", BadgeClass: "badge-slate",
        CalendarClass: "cal-slate", Color: "#64748b",
        IsActive: false, IncludeInRevenue: true, OccupiesVehicle: false,
        HasAutoCancelTimer: false, SortPriority: 6,
    },
    StatusExpired: {
        Status: StatusExpired, Label: "Expired", BadgeClass: "badge-zinc",
        CalendarClass: "cal-zinc", Color: "#a1a1aa",
        IsActive: false, IncludeInRevenue: false, OccupiesVehicle: false,
        HasAutoCancelTimer: false, SortPriority: 7,
    },
    StatusCancelled: {
        Status: StatusCancelled, Label: "Cancelled", BadgeClass: "badge-red",
        CalendarClass: "cal-red", Color: "#ef4444",
        // IncludeInRevenue for cancelled reservations depends on the
        // cancellation type; use IncludeInRevenue() rather than this flag.
        IsActive: false, IncludeInRevenue: false, OccupiesVehicle: false,
        HasAutoCancelTimer: false, SortPriority: 8,
    },
}

// Lookup returns the configuration for a canonical status.  The boolean
// reports whether the status is a member of the canonical set.  It does
// not apply normalization or legacy translation; most callers want
// Resolve instead.
func Lookup(s Status) (Config, bool) {
    cfg, ok := registry[s]
    return cfg, ok
}

// Canonical normalizes a raw status string onto the canonical set.  The
// input is lower-cased and trimmed, then checked against the registry and
// the legacy table in that order.  Unrecognized strings default to
// StatusAwaitingPayment with a logged warning; Canonical never fails.
func Canonical(raw string) Status {
    s := Status(strings.ToLower(strings.TrimSpace(raw)))
    if _, ok := registry[s]; ok {
        return s
    }
    if mapped, ok := FromLegacy(string(s)); ok {
        return mapped
    }
    log.Printf("lifecycle: unknown reservation status %q, defaulting to %s", raw, StatusAwaitingPayment)
    return StatusAwaitingPayment
}

// Resolve returns the configuration for an arbitrary status string,
// applying normalization, legacy translation and the awaiting_payment
// default.  It never returns a zero Config.
func Resolve(raw string) Config {
    return registry[Canonical(raw)]
}

// IncludeInRevenue reports whether a reservation in the given status
// counts toward revenue totals.  For cancelled reservations the answer
// depends on the cancellation type: only a cancellation without refund
// keeps the money.
func IncludeInRevenue(raw string, ct CancellationType) bool {
    status := Canonical(raw)
    if status == StatusCancelled {
        return ct == CancellationWithoutRefund
    }
    return registry[status].IncludeInRevenue
}

// TimerEligible returns the statuses subject to the auto-cancel timer, in
// sort-priority order.  Used by the sweeper to build its candidate query.
func TimerEligible() []Status {
    out := make([]Status, 0, 2)
    for _, cfg := range All() {
        if cfg.HasAutoCancelTimer {
            out = append(out, cfg.Status)
        }
    }
    return out
}

// All returns every status configuration ordered by SortPriority.  The
// slice is freshly allocated on each call so callers may not mutate the
// registry through it.
func All() []Config {
    out := make([]Config, 0, len(registry))
    for _, cfg := range registry {
        out = append(out, cfg)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].SortPriority < out[j].SortPriority })
    return out
}
