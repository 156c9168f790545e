package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/car-rental-backoffice/internal/model"
)

// ContractRepo provides access to rental contracts.  A contract is
// generated from a paid reservation; the uuid-based number is the opaque
// reference printed on the document.
type ContractRepo struct {
    db *sql.DB
}

// NewContractRepo returns a ContractRepo bound to the given database.
func NewContractRepo(db *sql.DB) *ContractRepo { return &ContractRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *ContractRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a contract for a reservation within the provided
// transaction, generating a fresh number, and populates the record.  A
// second contract for the same reservation maps to ErrConflict via the
// unique reservation_id constraint.
func (r *ContractRepo) CreateTx(ctx context.Context, tx *sql.Tx, c *model.Contract) error {
    c.Number = uuid.NewString()
    res, err := tx.ExecContext(ctx,
        `INSERT INTO contracts (reservation_id, number, generated_by) VALUES (?,?,?)`,
        c.ReservationID, c.Number, c.GeneratedBy)
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
    c.ID = uint64(id)
    return nil
}

const contractColumns = "id, reservation_id, number, generated_by, signed_at, created_at"

func scanContract(row interface{ Scan(...any) error }) (model.Contract, error) {
    var (
        c        model.Contract
        signedAt sql.NullTime
    )
    err := row.Scan(&c.ID, &c.ReservationID, &c.Number, &c.GeneratedBy, &signedAt, &c.CreatedAt)
    if signedAt.Valid {
        t := signedAt.Time
        c.SignedAt = &t
    }
    return c, err
}

// GetByID returns a single contract or sql.ErrNoRows.
func (r *ContractRepo) GetByID(ctx context.Context, id uint64) (model.Contract, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id)
    return scanContract(row)
}

// GetByReservation returns the contract generated for a reservation, or
// sql.ErrNoRows when none exists.
func (r *ContractRepo) GetByReservation(ctx context.Context, reservationID uint64) (model.Contract, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE reservation_id = ?`, reservationID)
    return scanContract(row)
}

// List returns contracts newest first.
func (r *ContractRepo) List(ctx context.Context) ([]model.Contract, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT `+contractColumns+` FROM contracts ORDER BY created_at DESC`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Contract, 0)
    for rows.Next() {
        c, err := scanContract(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// MarkSignedTx records the signature timestamp on an unsigned contract.
func (r *ContractRepo) MarkSignedTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE contracts SET signed_at = ? WHERE id = ? AND signed_at IS NULL`,
        at.UTC(), id)
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
