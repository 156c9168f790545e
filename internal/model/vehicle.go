package model

import "time"

// Vehicle availability statuses.  VehicleReserved marks a vehicle held
// for a pre-payment or paid reservation; the expiration sweeper only
// releases vehicles that are still in this state so it never clobbers a
// vehicle that has since moved to maintenance or an active rental.
const (
    VehicleAvailable     = "available"
    VehicleReserved      = "reserved"
    VehicleRented        = "rented"
    VehicleInMaintenance = "in_maintenance"
    VehicleOutOfService  = "out_of_service"
)

// Vehicle is one fleet unit.
//
// Fields:
//  ID           – primary key identifier.
//  Plate        – license plate, unique.
//  Make, Model  – manufacturer and model name.
//  Year         – model year.
//  Category     – rental category (economy, suv, van, ...).
//  DailyRateCents – list price per day in cents.
//  Status       – availability status, one of the constants above.
//  Mileage      – odometer reading in kilometers.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last modification timestamp.
type Vehicle struct {
    ID             uint64    // vehicles.id
    Plate          string    // vehicles.plate
    Make           string    // vehicles.make
    Model          string    // vehicles.model
    Year           uint16    // vehicles.year
    Category       string    // vehicles.category
    DailyRateCents uint32    // vehicles.daily_rate_cents
    Status         string    // vehicles.status
    Mileage        uint32    // vehicles.mileage
    CreatedAt      time.Time // vehicles.created_at
    UpdatedAt      time.Time // vehicles.updated_at
}
