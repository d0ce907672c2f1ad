package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository is the persistence collaborator for reservations.
type Repository interface {
	IntervalIndex

	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)

	// ActiveSlots returns the active reservations of roomID intersecting window, ordered by start.
	ActiveSlots(ctx context.Context, roomID string, window Interval) ([]Slot, error)

	// HasUpcoming reports whether roomID has an active reservation ending after now.
	HasUpcoming(ctx context.Context, roomID string, now time.Time) (bool, error)

	// EndedActive returns up to limit active reservations whose end is not after now.
	EndedActive(ctx context.Context, now time.Time, limit int) ([]*Reservation, error)

	// WithRoomLock runs fn with exclusive write access to roomID's reservations.
	// Writes made through tx become visible only if fn returns nil; otherwise none do.
	// Locks for different rooms are independent.
	WithRoomLock(ctx context.Context, roomID string, fn func(tx Tx) error) error
}

// Tx is the write view handed to WithRoomLock callbacks.
type Tx interface {
	IntervalIndex

	GetByID(ctx context.Context, id string) (*Reservation, error)
	// Insert assigns ID, CreatedAt and UpdatedAt on r.
	Insert(ctx context.Context, r *Reservation) error
	// Save persists interval, status, purpose, attendees and price of an existing reservation.
	Save(ctx context.Context, r *Reservation) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxRepository struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// NewPgxRepository returns a Postgres-backed Repository. maxAttempts bounds how
// many times a commit is retried after serialization failures or deadlocks.
func NewPgxRepository(pool *pgxpool.Pool, maxAttempts int) Repository {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &pgxRepository{pool: pool, maxAttempts: maxAttempts}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var reservationColumns = []string{
	"id", "room_id", "user_id", "start_time", "end_time", "status",
	"purpose", "attendees", "total_price::text", "created_at", "updated_at",
}

func activeStatusValues() []string {
	out := make([]string, len(activeStatuses))
	for i, s := range activeStatuses {
		out[i] = string(s)
	}
	return out
}

func scanReservation(row pgx.Row, extra ...any) (*Reservation, error) {
	var r Reservation
	var price string
	dest := append([]any{
		&r.ID, &r.RoomID, &r.UserID, &r.StartTime, &r.EndTime, &r.Status,
		&r.Purpose, &r.Attendees, &price, &r.CreatedAt, &r.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse total_price %q: %w", price, err)
	}
	r.TotalPrice = d
	r.StartTime = r.StartTime.UTC()
	r.EndTime = r.EndTime.UTC()
	return &r, nil
}

func conflicts(ctx context.Context, q querier, roomID string, iv Interval, excludeID string) (bool, error) {
	// Half-open overlap: existing.start < new.end AND existing.end > new.start
	subQuery := psql.Select("1").
		From("public.reservations").
		Where(squirrel.Eq{"room_id": roomID}).
		Where(squirrel.Eq{"status": activeStatusValues()}).
		Where(squirrel.Lt{"start_time": iv.End}).
		Where(squirrel.Gt{"end_time": iv.Start})

	if excludeID != "" {
		subQuery = subQuery.Where(squirrel.NotEq{"id": excludeID})
	}

	sql, args, err := subQuery.ToSql()
	if err != nil {
		return false, fmt.Errorf("build check overlap query failed: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS ("+sql+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check overlap failed: %w", err)
	}
	return exists, nil
}

func getByID(ctx context.Context, q querier, id string, forUpdate bool) (*Reservation, error) {
	query := psql.Select(reservationColumns...).
		From("public.reservations").
		Where(squirrel.Eq{"id": id})
	if forUpdate {
		query = query.Suffix("FOR UPDATE")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	r, err := scanReservation(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", err)
	}
	return r, nil
}

func (r *pgxRepository) Conflicts(ctx context.Context, roomID string, iv Interval, excludeID string) (bool, error) {
	return conflicts(ctx, r.pool, roomID, iv, excludeID)
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return getByID(ctx, r.pool, id, false)
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	query := psql.Select(append(reservationColumns, "count(*) OVER() AS total_count")...).
		From("public.reservations")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.RoomID != "" {
		query = query.Where(squirrel.Eq{"room_id": filter.RoomID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	// Date range filtering (intersection logic)
	if filter.StartTime != nil {
		query = query.Where(squirrel.Gt{"end_time": *filter.StartTime})
	}
	if filter.EndTime != nil {
		query = query.Where(squirrel.Lt{"start_time": *filter.EndTime})
	}

	orderBy := "start_time"
	switch filter.SortBy {
	case "start_time", "end_time", "created_at", "status":
		orderBy = filter.SortBy
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "id")

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", err)
	}
	defer rows.Close()

	var result []*Reservation
	var total int
	for rows.Next() {
		res, err := scanReservation(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan reservation failed: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", err)
	}

	return result, total, nil
}

func (r *pgxRepository) ActiveSlots(ctx context.Context, roomID string, window Interval) ([]Slot, error) {
	sql, args, err := psql.Select("id", "start_time", "end_time", "status").
		From("public.reservations").
		Where(squirrel.Eq{"room_id": roomID}).
		Where(squirrel.Eq{"status": activeStatusValues()}).
		Where(squirrel.Lt{"start_time": window.End}).
		Where(squirrel.Gt{"end_time": window.Start}).
		OrderBy("start_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active slots query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query active slots failed: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ReservationID, &s.StartTime, &s.EndTime, &s.Status); err != nil {
			return nil, fmt.Errorf("scan slot failed: %w", err)
		}
		s.StartTime = s.StartTime.UTC()
		s.EndTime = s.EndTime.UTC()
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query active slots failed: %w", err)
	}
	return slots, nil
}

func (r *pgxRepository) HasUpcoming(ctx context.Context, roomID string, now time.Time) (bool, error) {
	sql, args, err := psql.Select("1").
		From("public.reservations").
		Where(squirrel.Eq{"room_id": roomID}).
		Where(squirrel.Eq{"status": activeStatusValues()}).
		Where(squirrel.Gt{"end_time": now}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build upcoming query failed: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS ("+sql+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check upcoming failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) EndedActive(ctx context.Context, now time.Time, limit int) ([]*Reservation, error) {
	sql, args, err := psql.Select(reservationColumns...).
		From("public.reservations").
		Where(squirrel.Eq{"status": activeStatusValues()}).
		Where(squirrel.LtOrEq{"end_time": now}).
		OrderBy("end_time").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ended query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query ended reservations failed: %w", err)
	}
	defer rows.Close()

	var result []*Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation failed: %w", err)
		}
		result = append(result, res)
	}
	return result, rows.Err()
}

func (r *pgxRepository) WithRoomLock(ctx context.Context, roomID string, fn func(tx Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			// Serialises every writer of this room for the life of the transaction.
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, roomID); err != nil {
				return fmt.Errorf("acquire room lock failed: %w", err)
			}
			return fn(&pgxTx{tx: tx})
		})
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return translateCommitError(err)
		}
		lastErr = err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrCommitRetriesExhausted, r.maxAttempts, lastErr)
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isTransient(err error) bool {
	switch pgErrorCode(err) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return true
	}
	return false
}

// translateCommitError maps storage constraint violations onto the business taxonomy.
func translateCommitError(err error) error {
	switch pgErrorCode(err) {
	case pgerrcode.ExclusionViolation:
		return ErrIntervalConflict.WithCause(err)
	case pgerrcode.ForeignKeyViolation:
		return ErrResourceNotFound.WithCause(err)
	}
	return err
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Conflicts(ctx context.Context, roomID string, iv Interval, excludeID string) (bool, error) {
	return conflicts(ctx, t.tx, roomID, iv, excludeID)
}

func (t *pgxTx) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return getByID(ctx, t.tx, id, true)
}

func (t *pgxTx) Insert(ctx context.Context, res *Reservation) error {
	query, args, err := psql.Insert("public.reservations").
		Columns("room_id", "user_id", "start_time", "end_time", "status", "purpose", "attendees", "total_price").
		Values(res.RoomID, res.UserID, res.StartTime, res.EndTime, res.Status, res.Purpose, res.Attendees, res.TotalPrice.String()).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create reservation query failed: %w", err)
	}

	if err := t.tx.QueryRow(ctx, query, args...).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return fmt.Errorf("create reservation failed: %w", err)
	}
	return nil
}

func (t *pgxTx) Save(ctx context.Context, res *Reservation) error {
	query, args, err := psql.Update("public.reservations").
		Set("start_time", res.StartTime).
		Set("end_time", res.EndTime).
		Set("status", res.Status).
		Set("purpose", res.Purpose).
		Set("attendees", res.Attendees).
		Set("total_price", res.TotalPrice.String()).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": res.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update reservation query failed: %w", err)
	}

	if err := t.tx.QueryRow(ctx, query, args...).Scan(&res.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update reservation failed: %w", err)
	}
	return nil
}
