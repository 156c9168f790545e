package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/car-rental-backoffice/internal/model"
)

// VehicleRepo provides data access to the vehicles table.  Status
// changes that race with the expiration sweeper use guarded UPDATEs
// (WHERE status = ...) so a vehicle that has since moved on — to
// maintenance or another rental — is never clobbered.
type VehicleRepo struct {
    db *sql.DB
}

// NewVehicleRepo returns a VehicleRepo bound to the given database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *VehicleRepo) DB() *sql.DB { return r.db }

const vehicleColumns = "id, plate, make, model, year, category, daily_rate_cents, status, mileage, created_at, updated_at"

func scanVehicle(row interface{ Scan(...any) error }) (model.Vehicle, error) {
    var v model.Vehicle
    err := row.Scan(&v.ID, &v.Plate, &v.Make, &v.Model, &v.Year, &v.Category,
        &v.DailyRateCents, &v.Status, &v.Mileage, &v.CreatedAt, &v.UpdatedAt)
    return v, err
}

// Create inserts a vehicle and returns its ID.  New vehicles start in
// the available status unless one is supplied.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
    if v.Status == "" {
        v.Status = model.VehicleAvailable
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO vehicles (plate, make, model, year, category, daily_rate_cents, status, mileage)
         VALUES (?,?,?,?,?,?,?,?)`,
        strings.ToUpper(strings.TrimSpace(v.Plate)), v.Make, v.Model, v.Year, v.Category,
        v.DailyRateCents, v.Status, v.Mileage)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    v.ID = uint64(id)
    return nil
}

// GetByID returns a single vehicle or sql.ErrNoRows.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (model.Vehicle, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
    return scanVehicle(row)
}

// List returns vehicles, optionally filtered by status and/or category.
// Results are ordered by plate for deterministic output.
func (r *VehicleRepo) List(ctx context.Context, status, category string) ([]model.Vehicle, error) {
    query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE 1=1`
    args := make([]interface{}, 0, 2)
    if status != "" {
        query += " AND status = ?"
        args = append(args, status)
    }
    if category != "" {
        query += " AND category = ?"
        args = append(args, category)
    }
    query += " ORDER BY plate"
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Vehicle, 0)
    for rows.Next() {
        v, err := scanVehicle(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, v)
    }
    return out, rows.Err()
}

// Update overwrites the descriptive fields of a vehicle.  Status is
// managed separately through the guarded transition helpers.
func (r *VehicleRepo) Update(ctx context.Context, v *model.Vehicle) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE vehicles SET plate=?, make=?, model=?, year=?, category=?, daily_rate_cents=?, mileage=? WHERE id=?`,
        strings.ToUpper(strings.TrimSpace(v.Plate)), v.Make, v.Model, v.Year, v.Category,
        v.DailyRateCents, v.Mileage, v.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}

// Delete removes a vehicle that has no reservations.  ErrConflict is
// returned when reservation rows still reference it.
func (r *VehicleRepo) Delete(ctx context.Context, id uint64) error {
    var cnt int
    if err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM reservations WHERE vehicle_id = ?`, id).Scan(&cnt); err != nil {
        return err
    }
    if cnt > 0 {
        return ErrConflict
    }
    res, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}

// TransitionStatusTx flips a vehicle's status within a transaction, but
// only when its current status is one of the expected source statuses.
// ErrInvalidTransition is returned when no row matched.
func (r *VehicleRepo) TransitionStatusTx(ctx context.Context, tx *sql.Tx, id uint64, to string, from ...string) error {
    if len(from) == 0 {
        return ErrInvalidTransition
    }
    query := `UPDATE vehicles SET status = ? WHERE id = ? AND status IN (?` + strings.Repeat(",?", len(from)-1) + `)`
    args := make([]interface{}, 0, len(from)+2)
    args = append(args, to, id)
    for _, f := range from {
        args = append(args, f)
    }
    res, err := tx.ExecContext(ctx, query, args...)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrInvalidTransition
    }
    return nil
}

// ReleaseIfReserved sets a vehicle back to available only when it is
// still marked reserved.  It reports whether a row was updated.  The
// sweeper relies on the guard: a vehicle that moved to maintenance or an
// active rental since the reservation was created is left untouched.
func (r *VehicleRepo) ReleaseIfReserved(ctx context.Context, id uint64) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE vehicles SET status = ? WHERE id = ? AND status = ?`,
        model.VehicleAvailable, id, model.VehicleReserved)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}
