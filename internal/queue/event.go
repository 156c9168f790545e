// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.  Events go through the default exchange, routing key =
// queue name, one durable queue per event type.
const (
	ReservationConfirmedQueue = "reservation.confirmed"
	ReservationExpiredQueue   = "reservation.expired"
	EntityChangedQueue        = "entity.changed"
)

// ReservationConfirmedEvent is published when a paid reservation with a
// generated contract is confirmed.  It carries enough for downstream
// consumers to notify or log without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID    uint64 `json:"reservation_id"`
	CustomerName     string `json:"customer_name"`
	VehiclePlate     string `json:"vehicle_plate"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	TotalAmountCents uint32 `json:"total_amount_cents"`
	ConfirmedAt      string `json:"confirmed_at"`
}

// ReservationExpiredEvent is published for every reservation the
// expiration sweep auto-cancels.
type ReservationExpiredEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	CustomerName  string `json:"customer_name"`
	Deadline      string `json:"deadline"`
	ExpiredAt     string `json:"expired_at"`
}

// EntityChangedEvent signals that rows of one entity changed, so cached
// listings for it must be dropped.  ID is zero for bulk changes.  The
// cache invalidator is its only consumer.
type EntityChangedEvent struct {
	Entity    string `json:"entity"`
	Action    string `json:"action"`
	ID        uint64 `json:"id,omitempty"`
	Source    string `json:"source"`
	ChangedAt string `json:"changed_at"`
}
