package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo persiste reservas de stock sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

// Create persiste una reserva nueva.
func (r *ReservationRepo) Create(res *entity.Reservation) error {
	query := `
		INSERT INTO stock_reservations (id, product_id, location_id, quantity, status, reference_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	userID := (*string)(nil)
	if res.UserID != "" {
		userID = &res.UserID
	}
	_, err := r.q.Exec(context.Background(), query,
		res.ID, res.ProductID, res.LocationID, res.Quantity, res.Status,
		res.ReferenceID, userID, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// GetByID obtiene una reserva por ID. nil si no existe.
func (r *ReservationRepo) GetByID(id string) (*entity.Reservation, error) {
	query := `
		SELECT id, product_id, location_id, quantity, status, reference_id, user_id, created_at, resolved_at
		FROM stock_reservations WHERE id = $1`
	var res entity.Reservation
	var referenceID, userID *string
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&res.ID, &res.ProductID, &res.LocationID, &res.Quantity, &res.Status,
		&referenceID, &userID, &res.CreatedAt, &res.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if referenceID != nil {
		res.ReferenceID = *referenceID
	}
	if userID != nil {
		res.UserID = *userID
	}
	return &res, nil
}

// UpdateStatus marca la reserva como RELEASED o COMMITTED y sella resolved_at.
func (r *ReservationRepo) UpdateStatus(id, status string) error {
	query := `
		UPDATE stock_reservations SET status = $2, resolved_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(context.Background(), query, id, status)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SumActive devuelve la cantidad total reservada (estado ACTIVE) de la clave.
func (r *ReservationRepo) SumActive(productID, locationID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0) FROM stock_reservations
		WHERE product_id = $1 AND location_id = $2 AND status = 'ACTIVE'`
	var total int64
	err := r.q.QueryRow(context.Background(), query, productID, locationID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum active reservations: %w", err)
	}
	return total, nil
}
