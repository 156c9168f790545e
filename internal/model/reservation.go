package model

import (
    "time"

    "github.com/iliyamo/car-rental-backoffice/internal/lifecycle"
)

// PaymentStatus is the tri-state payment field tracked independently of
// the reservation lifecycle status.  It acts as a secondary guard in the
// expiration check: a paid reservation is never auto-expired even when
// its lifecycle status update lagged behind the payment.
type PaymentStatus string

const (
    PaymentPending  PaymentStatus = "pending"
    PaymentPaid     PaymentStatus = "paid"
    PaymentRefunded PaymentStatus = "refunded"
)

// Reservation records a customer's booking of a vehicle for a date range.
// Status is the sole source of truth for display color, calendar
// occupancy and revenue inclusion; its behavior is defined by the
// lifecycle registry.
//
// Fields:
//  ID               – primary key identifier.
//  CustomerID       – customer who made the reservation.
//  VehicleID        – vehicle occupied by the reservation window.
//  Status           – canonical lifecycle status string.
//  PaymentStatus    – pending, paid or refunded.
//  StartDate        – first day of the rental.
//  EndDate          – last day of the rental.
//  TotalAmountCents – agreed price in cents.
//  AutoCancelAt     – optional explicit expiration deadline; when nil the
//                     deadline derives from CreatedAt plus the grace period.
//  CancellationType – recorded only when the status becomes cancelled.
//  CancelledAt      – when the reservation was cancelled or expired.
//  CancelReason     – free-form reason recorded on cancellation/expiry.
//  CreatedAt        – creation timestamp, immutable.
//  UpdatedAt        – last modification timestamp.
type Reservation struct {
    ID               uint64                     // reservations.id
    CustomerID       uint64                     // reservations.customer_id
    VehicleID        uint64                     // reservations.vehicle_id
    Status           string                     // reservations.status
    PaymentStatus    PaymentStatus              // reservations.payment_status
    StartDate        time.Time                  // reservations.start_date
    EndDate          time.Time                  // reservations.end_date
    TotalAmountCents uint32                     // reservations.total_amount_cents
    AutoCancelAt     *time.Time                 // reservations.auto_cancel_at (nullable)
    CancellationType lifecycle.CancellationType // reservations.cancellation_type
    CancelledAt      *time.Time                 // reservations.cancelled_at (nullable)
    CancelReason     *string                    // reservations.cancel_reason (nullable)
    CreatedAt        time.Time                  // reservations.created_at
    UpdatedAt        time.Time                  // reservations.updated_at
}
