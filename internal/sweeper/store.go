package sweeper

import (
    "context"
    "time"

    "github.com/iliyamo/car-rental-backoffice/internal/repository"
)

// SQLStore adapts the repository layer to the Store interface consumed
// by the sweep algorithm.
type SQLStore struct {
    reservations *repository.ReservationRepo
    vehicles     *repository.VehicleRepo
}

// NewSQLStore returns a Store backed by the MySQL repositories.
func NewSQLStore(reservations *repository.ReservationRepo, vehicles *repository.VehicleRepo) *SQLStore {
    return &SQLStore{reservations: reservations, vehicles: vehicles}
}

func (s *SQLStore) ListCandidates(ctx context.Context) ([]Candidate, error) {
    rows, err := s.reservations.ListExpirationCandidates(ctx)
    if err != nil {
        return nil, err
    }
    out := make([]Candidate, 0, len(rows))
    for _, row := range rows {
        out = append(out, Candidate{
            ID:           row.ID,
            VehicleID:    row.VehicleID,
            Status:       row.Status,
            CustomerName: row.CustomerName,
            CreatedAt:    row.CreatedAt,
            AutoCancelAt: row.AutoCancelAt,
        })
    }
    return out, nil
}

func (s *SQLStore) MarkExpired(ctx context.Context, id uint64, now time.Time, reason string) (bool, error) {
    return s.reservations.MarkExpired(ctx, id, now, reason)
}

func (s *SQLStore) ReleaseVehicleIfReserved(ctx context.Context, vehicleID uint64) (bool, error) {
    return s.vehicles.ReleaseIfReserved(ctx, vehicleID)
}

func (s *SQLStore) ListExpiredHoldingVehicle(ctx context.Context) ([]uint64, error) {
    return s.reservations.ListExpiredHoldingVehicle(ctx)
}
