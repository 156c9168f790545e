package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/car-rental-backoffice/internal/model"
)

// CustomerRepo provides CRUD access to the customers table.
type CustomerRepo struct {
    db *sql.DB
}

// NewCustomerRepo returns a CustomerRepo bound to the given database.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = "id, full_name, email, phone, document_id, license_number, created_at, updated_at"

func scanCustomer(row interface{ Scan(...any) error }) (model.Customer, error) {
    var c model.Customer
    err := row.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.DocumentID, &c.LicenseNumber, &c.CreatedAt, &c.UpdatedAt)
    return c, err
}

// Create inserts a customer and populates the generated ID.  Email and
// document number are unique; a duplicate maps to ErrConflict.
func (r *CustomerRepo) Create(ctx context.Context, c *model.Customer) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO customers (full_name, email, phone, document_id, license_number) VALUES (?,?,?,?,?)`,
        strings.TrimSpace(c.FullName), strings.ToLower(strings.TrimSpace(c.Email)), c.Phone, c.DocumentID, c.LicenseNumber)
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

// GetByID returns a single customer or sql.ErrNoRows.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (model.Customer, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
    return scanCustomer(row)
}

// Search returns customers whose name, email or document matches the
// query substring.  An empty query lists everyone, newest first.
func (r *CustomerRepo) Search(ctx context.Context, q string) ([]model.Customer, error) {
    query := `SELECT ` + customerColumns + ` FROM customers`
    args := []interface{}{}
    if q = strings.TrimSpace(q); q != "" {
        query += ` WHERE full_name LIKE ? OR email LIKE ? OR document_id LIKE ?`
        like := "%" + q + "%"
        args = append(args, like, like, like)
    }
    query += ` ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Customer, 0)
    for rows.Next() {
        c, err := scanCustomer(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// Update overwrites a customer's contact and document fields.
func (r *CustomerRepo) Update(ctx context.Context, c *model.Customer) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE customers SET full_name=?, email=?, phone=?, document_id=?, license_number=? WHERE id=?`,
        strings.TrimSpace(c.FullName), strings.ToLower(strings.TrimSpace(c.Email)), c.Phone, c.DocumentID, c.LicenseNumber, c.ID)
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

// Delete removes a customer with no reservation history; ErrConflict
// otherwise.  Terminal reservations count as history — records are kept.
func (r *CustomerRepo) Delete(ctx context.Context, id uint64) error {
    var cnt int
    if err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM reservations WHERE customer_id = ?`, id).Scan(&cnt); err != nil {
        return err
    }
    if cnt > 0 {
        return ErrConflict
    }
    res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
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
