package model

import "time"

// MaintenanceRecord tracks a vehicle being serviced.  While a record is
// open (ClosedAt nil) the vehicle's status is in_maintenance and it
// cannot be reserved; the expiration sweeper leaves such vehicles alone
// even when releasing an expired reservation that references them.
type MaintenanceRecord struct {
    ID          uint64     // maintenance_records.id
    VehicleID   uint64     // maintenance_records.vehicle_id
    Description string     // maintenance_records.description
    CostCents   uint32     // maintenance_records.cost_cents
    OpenedAt    time.Time  // maintenance_records.opened_at
    ClosedAt    *time.Time // maintenance_records.closed_at (nullable)
}
