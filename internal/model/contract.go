package model

import "time"

// Contract is the rental agreement generated from a paid reservation.
// Number is an opaque unique reference printed on the document.  A
// reservation has at most one contract; generating it moves the
// reservation to the contract_generated status.
type Contract struct {
    ID            uint64    // contracts.id
    ReservationID uint64    // contracts.reservation_id
    Number        string    // contracts.number (uuid)
    GeneratedBy   uint64    // contracts.generated_by (staff user id)
    SignedAt      *time.Time // contracts.signed_at (nullable)
    CreatedAt     time.Time // contracts.created_at
}
