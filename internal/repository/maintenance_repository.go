package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/car-rental-backoffice/internal/model"
)

// MaintenanceRepo tracks vehicle maintenance records.  Opening a record
// and flipping the vehicle to in_maintenance happen in one transaction
// driven by the handler; the same applies to closing.
type MaintenanceRepo struct {
    db *sql.DB
}

// NewMaintenanceRepo returns a MaintenanceRepo bound to the given database.
func NewMaintenanceRepo(db *sql.DB) *MaintenanceRepo { return &MaintenanceRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *MaintenanceRepo) DB() *sql.DB { return r.db }

// OpenTx inserts an open maintenance record and populates its ID.
func (r *MaintenanceRepo) OpenTx(ctx context.Context, tx *sql.Tx, m *model.MaintenanceRecord) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO maintenance_records (vehicle_id, description, cost_cents, opened_at) VALUES (?,?,?,?)`,
        m.VehicleID, m.Description, m.CostCents, m.OpenedAt.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    m.ID = uint64(id)
    return nil
}

// CloseTx sets the closing timestamp and final cost on an open record.
func (r *MaintenanceRepo) CloseTx(ctx context.Context, tx *sql.Tx, id uint64, costCents uint32, at time.Time) (uint64, error) {
    var vehicleID uint64
    err := tx.QueryRowContext(ctx,
        `SELECT vehicle_id FROM maintenance_records WHERE id = ? AND closed_at IS NULL`, id).Scan(&vehicleID)
    if err != nil {
        return 0, err
    }
    if _, err := tx.ExecContext(ctx,
        `UPDATE maintenance_records SET closed_at = ?, cost_cents = ? WHERE id = ?`,
        at.UTC(), costCents, id); err != nil {
        return 0, err
    }
    return vehicleID, nil
}

// ListByVehicle returns a vehicle's maintenance history, newest first.
func (r *MaintenanceRepo) ListByVehicle(ctx context.Context, vehicleID uint64) ([]model.MaintenanceRecord, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, vehicle_id, description, cost_cents, opened_at, closed_at
         FROM maintenance_records WHERE vehicle_id = ? ORDER BY opened_at DESC`, vehicleID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.MaintenanceRecord, 0)
    for rows.Next() {
        var (
            m        model.MaintenanceRecord
            closedAt sql.NullTime
        )
        if err := rows.Scan(&m.ID, &m.VehicleID, &m.Description, &m.CostCents, &m.OpenedAt, &closedAt); err != nil {
            return nil, err
        }
        if closedAt.Valid {
            t := closedAt.Time
            m.ClosedAt = &t
        }
        out = append(out, m)
    }
    return out, rows.Err()
}
