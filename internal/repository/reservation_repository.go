package repository

import (
    "context"
    "database/sql"
    "sort"
    "strings"
    "time"

    "github.com/iliyamo/car-rental-backoffice/internal/lifecycle"
    "github.com/iliyamo/car-rental-backoffice/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  All
// timestamp fields are stored in UTC.  Status strings written by this
// repository are always canonical; historical spellings in old rows are
// translated through the lifecycle package when read.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, customer_id, vehicle_id, status, payment_status, start_date, end_date,
    total_amount_cents, auto_cancel_at, cancellation_type, cancelled_at, cancel_reason, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
    var (
        res          model.Reservation
        pay          string
        autoCancel   sql.NullTime
        cancelType   sql.NullString
        cancelledAt  sql.NullTime
        cancelReason sql.NullString
    )
    err := row.Scan(&res.ID, &res.CustomerID, &res.VehicleID, &res.Status, &pay,
        &res.StartDate, &res.EndDate, &res.TotalAmountCents,
        &autoCancel, &cancelType, &cancelledAt, &cancelReason,
        &res.CreatedAt, &res.UpdatedAt)
    if err != nil {
        return res, err
    }
    res.PaymentStatus = model.PaymentStatus(pay)
    if autoCancel.Valid {
        t := autoCancel.Time
        res.AutoCancelAt = &t
    }
    if cancelType.Valid {
        res.CancellationType = lifecycle.CancellationType(cancelType.String)
    }
    if cancelledAt.Valid {
        t := cancelledAt.Time
        res.CancelledAt = &t
    }
    if cancelReason.Valid {
        s := cancelReason.String
        res.CancelReason = &s
    }
    return res, nil
}

// CreateTx inserts a new reservation within an existing transaction and
// populates the generated ID plus DB-assigned timestamps.  The caller is
// responsible for committing or rolling back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    var autoCancel interface{}
    if res.AutoCancelAt != nil {
        autoCancel = res.AutoCancelAt.UTC()
    }
    result, err := tx.ExecContext(ctx,
        `INSERT INTO reservations (customer_id, vehicle_id, status, payment_status, start_date, end_date,
            total_amount_cents, auto_cancel_at)
         VALUES (?,?,?,?,?,?,?,?)`,
        res.CustomerID, res.VehicleID, res.Status, string(res.PaymentStatus),
        res.StartDate.UTC(), res.EndDate.UTC(), res.TotalAmountCents, autoCancel)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Query back the row to populate created_at/updated_at defaults.
    row := tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, res.ID)
    full, err := scanReservation(row)
    if err != nil {
        return err
    }
    *res = full
    return nil
}

// GetByID returns a single reservation or sql.ErrNoRows.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
    return scanReservation(row)
}

// ReservationDetail joins a reservation with its customer and vehicle
// for list views.  Display metadata (label, color, badge class) is
// resolved from the lifecycle registry when the row is assembled.
type ReservationDetail struct {
    model.Reservation
    CustomerName string
    VehiclePlate string
    StatusLabel  string
    StatusColor  string
    BadgeClass   string
}

const detailQuery = `SELECT r.id, r.customer_id, r.vehicle_id, r.status, r.payment_status, r.start_date, r.end_date,
        r.total_amount_cents, r.auto_cancel_at, r.cancellation_type, r.cancelled_at, r.cancel_reason,
        r.created_at, r.updated_at, c.full_name, v.plate
    FROM reservations r
    JOIN customers c ON c.id = r.customer_id
    JOIN vehicles v ON v.id = r.vehicle_id`

func scanDetail(rows *sql.Rows) (ReservationDetail, error) {
    var (
        d            ReservationDetail
        pay          string
        autoCancel   sql.NullTime
        cancelType   sql.NullString
        cancelledAt  sql.NullTime
        cancelReason sql.NullString
    )
    err := rows.Scan(&d.ID, &d.CustomerID, &d.VehicleID, &d.Status, &pay,
        &d.StartDate, &d.EndDate, &d.TotalAmountCents,
        &autoCancel, &cancelType, &cancelledAt, &cancelReason,
        &d.CreatedAt, &d.UpdatedAt, &d.CustomerName, &d.VehiclePlate)
    if err != nil {
        return d, err
    }
    d.PaymentStatus = model.PaymentStatus(pay)
    if autoCancel.Valid {
        t := autoCancel.Time
        d.AutoCancelAt = &t
    }
    if cancelType.Valid {
        d.CancellationType = lifecycle.CancellationType(cancelType.String)
    }
    if cancelledAt.Valid {
        t := cancelledAt.Time
        d.CancelledAt = &t
    }
    if cancelReason.Valid {
        s := cancelReason.String
        d.CancelReason = &s
    }
    cfg := lifecycle.Resolve(d.Status)
    d.StatusLabel = cfg.Label
    d.StatusColor = cfg.Color
    d.BadgeClass = cfg.BadgeClass
    return d, nil
}

// GetDetail returns a single joined reservation row or sql.ErrNoRows.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (ReservationDetail, error) {
    rows, err := r.db.QueryContext(ctx, detailQuery+" WHERE r.id = ?", id)
    if err != nil {
        return ReservationDetail{}, err
    }
    defer rows.Close()
    if !rows.Next() {
        if err := rows.Err(); err != nil {
            return ReservationDetail{}, err
        }
        return ReservationDetail{}, sql.ErrNoRows
    }
    return scanDetail(rows)
}

// List returns reservation details, optionally filtered by status and/or
// customer.  Mixed-status results are ordered by the registry's sort
// priority (urgent first, terminal last), then newest first within a
// status.  The priority lives in the registry rather than the table, so
// ordering happens here after the scan.
func (r *ReservationRepo) List(ctx context.Context, status string, customerID uint64) ([]ReservationDetail, error) {
    query := detailQuery
    conds := []string{}
    args := []interface{}{}
    if status != "" {
        conds = append(conds, "r.status = ?")
        args = append(args, string(lifecycle.Canonical(status)))
    }
    if customerID != 0 {
        conds = append(conds, "r.customer_id = ?")
        args = append(args, customerID)
    }
    if len(conds) > 0 {
        query += " WHERE " + strings.Join(conds, " AND ")
    }
    query += " ORDER BY r.created_at DESC"
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]ReservationDetail, 0)
    for rows.Next() {
        d, err := scanDetail(rows)
        if err != nil {
            return nil, err
        }
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    sort.SliceStable(details, func(i, j int) bool {
        return lifecycle.Resolve(details[i].Status).SortPriority < lifecycle.Resolve(details[j].Status).SortPriority
    })
    return details, nil
}

// TransitionStatusTx applies a guarded manual status change within a
// transaction.  The update matches only when the current status is one
// of the expected source statuses; otherwise ErrInvalidTransition.
func (r *ReservationRepo) TransitionStatusTx(ctx context.Context, tx *sql.Tx, id uint64, to lifecycle.Status, from ...lifecycle.Status) error {
    if len(from) == 0 {
        return ErrInvalidTransition
    }
    query := `UPDATE reservations SET status = ? WHERE id = ? AND status IN (?` + strings.Repeat(",?", len(from)-1) + `)`
    args := make([]interface{}, 0, len(from)+2)
    args = append(args, string(to), id)
    for _, f := range from {
        args = append(args, string(f))
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

// MarkPaidTx records a payment: payment_status flips to paid and the
// lifecycle status advances to paid_no_contract.  Valid only from the
// two pre-payment statuses.
func (r *ReservationRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE reservations SET payment_status = ?, status = ? WHERE id = ? AND status IN (?,?)`,
        string(model.PaymentPaid), string(lifecycle.StatusPaidNoContract), id,
        string(lifecycle.StatusPending), string(lifecycle.StatusAwaitingPayment))
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

// CancelTx cancels a reservation manually, recording the cancellation
// type, timestamp and reason.  Any non-terminal status may be cancelled.
// Refunded cancellations also flip payment_status to refunded.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, ct lifecycle.CancellationType, reason string, now time.Time) error {
    query := `UPDATE reservations
        SET status = ?, cancellation_type = ?, cancelled_at = ?, cancel_reason = ?`
    args := []interface{}{string(lifecycle.StatusCancelled), string(ct), now.UTC(), reason}
    if ct == lifecycle.CancellationWithRefund {
        query += `, payment_status = ?`
        args = append(args, string(model.PaymentRefunded))
    }
    query += ` WHERE id = ? AND status IN (?,?,?,?,?)`
    args = append(args, id,
        string(lifecycle.StatusPending), string(lifecycle.StatusAwaitingPayment),
        string(lifecycle.StatusPaidNoContract), string(lifecycle.StatusContractGenerated),
        string(lifecycle.StatusConfirmed))
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

// ExpirationCandidate is one unpaid reservation eligible for the
// auto-cancel sweep, joined with the customer name for reporting.
type ExpirationCandidate struct {
    ID           uint64
    VehicleID    uint64
    Status       string
    CustomerName string
    CreatedAt    time.Time
    AutoCancelAt *time.Time
}

// ListExpirationCandidates returns reservations whose status carries the
// auto-cancel timer and whose payment status is not paid.  The payment
// guard is defense in depth against a race where the payment was
// recorded but the status update lagged.
func (r *ReservationRepo) ListExpirationCandidates(ctx context.Context) ([]ExpirationCandidate, error) {
    eligible := lifecycle.TimerEligible()
    query := `SELECT r.id, r.vehicle_id, r.status, c.full_name, r.created_at, r.auto_cancel_at
        FROM reservations r
        JOIN customers c ON c.id = r.customer_id
        WHERE r.payment_status <> ? AND r.status IN (?` + strings.Repeat(",?", len(eligible)-1) + `)`
    args := make([]interface{}, 0, len(eligible)+1)
    args = append(args, string(model.PaymentPaid))
    for _, s := range eligible {
        args = append(args, string(s))
    }
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]ExpirationCandidate, 0)
    for rows.Next() {
        var (
            cand       ExpirationCandidate
            autoCancel sql.NullTime
        )
        if err := rows.Scan(&cand.ID, &cand.VehicleID, &cand.Status, &cand.CustomerName, &cand.CreatedAt, &autoCancel); err != nil {
            return nil, err
        }
        if autoCancel.Valid {
            t := autoCancel.Time
            cand.AutoCancelAt = &t
        }
        out = append(out, cand)
    }
    return out, rows.Err()
}

// MarkExpired transitions one reservation to expired, recording the
// cancellation timestamp and reason.  The guard repeats the candidate
// conditions so a concurrent sweeper (or a payment landing between the
// query and the write) makes this a no-op; the boolean reports whether
// this call performed the transition.
func (r *ReservationRepo) MarkExpired(ctx context.Context, id uint64, now time.Time, reason string) (bool, error) {
    eligible := lifecycle.TimerEligible()
    query := `UPDATE reservations SET status = ?, cancelled_at = ?, cancel_reason = ?
        WHERE id = ? AND payment_status <> ? AND status IN (?` + strings.Repeat(",?", len(eligible)-1) + `)`
    args := make([]interface{}, 0, len(eligible)+5)
    args = append(args, string(lifecycle.StatusExpired), now.UTC(), reason, id, string(model.PaymentPaid))
    for _, s := range eligible {
        args = append(args, string(s))
    }
    res, err := r.db.ExecContext(ctx, query, args...)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// ListExpiredHoldingVehicle finds expired reservations whose vehicle is
// still marked reserved — the leftover of a sweep cycle where the status
// write succeeded and the vehicle release failed.  The sweeper runs this
// as a compensating pass every cycle.
func (r *ReservationRepo) ListExpiredHoldingVehicle(ctx context.Context) ([]uint64, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT DISTINCT r.vehicle_id
         FROM reservations r
         JOIN vehicles v ON v.id = r.vehicle_id
         WHERE r.status = ? AND v.status = ?
           AND NOT EXISTS (
               SELECT 1 FROM reservations o
               WHERE o.vehicle_id = r.vehicle_id AND o.id <> r.id
                 AND o.status IN (?,?,?,?,?)
           )`,
        string(lifecycle.StatusExpired), model.VehicleReserved,
        string(lifecycle.StatusPending), string(lifecycle.StatusAwaitingPayment),
        string(lifecycle.StatusPaidNoContract), string(lifecycle.StatusContractGenerated),
        string(lifecycle.StatusConfirmed))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]uint64, 0)
    for rows.Next() {
        var vid uint64
        if err := rows.Scan(&vid); err != nil {
            return nil, err
        }
        out = append(out, vid)
    }
    return out, rows.Err()
}

// ListForVehicleBetween returns the reservations touching a vehicle in
// the given window, for calendar-occupancy derivation.  The caller
// decides which rows occupy the calendar via the lifecycle registry.
func (r *ReservationRepo) ListForVehicleBetween(ctx context.Context, vehicleID uint64, from, to time.Time) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations
         WHERE vehicle_id = ? AND start_date <= ? AND end_date >= ?
         ORDER BY start_date`,
        vehicleID, to.UTC(), from.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    return out, rows.Err()
}

// RevenueRow is the minimal projection needed to apply the registry's
// revenue-inclusion rules over a period.
type RevenueRow struct {
    Status           string
    CancellationType lifecycle.CancellationType
    TotalAmountCents uint32
}

// RevenueRows returns status, cancellation type and amount for every
// reservation created in the period.  Summation happens in the handler
// through lifecycle.IncludeInRevenue so the conditional cancelled rule
// lives in exactly one place.
func (r *ReservationRepo) RevenueRows(ctx context.Context, from, to time.Time) ([]RevenueRow, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT status, COALESCE(cancellation_type, ''), total_amount_cents
         FROM reservations WHERE created_at >= ? AND created_at < ?`,
        from.UTC(), to.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]RevenueRow, 0)
    for rows.Next() {
        var (
            row RevenueRow
            ct  string
        )
        if err := rows.Scan(&row.Status, &ct, &row.TotalAmountCents); err != nil {
            return nil, err
        }
        row.CancellationType = lifecycle.CancellationType(ct)
        out = append(out, row)
    }
    return out, rows.Err()
}
