package repository

import "github.com/jhoicas/Kardex-api/internal/domain/entity"

// ReservationRepository define el puerto de persistencia de reservas.
type ReservationRepository interface {
	Create(reservation *entity.Reservation) error
	GetByID(id string) (*entity.Reservation, error)
	// UpdateStatus marca la reserva como RELEASED o COMMITTED y sella ResolvedAt.
	UpdateStatus(id, status string) error
	// SumActive devuelve la cantidad total reservada (estado ACTIVE) de la clave.
	SumActive(productID, locationID string) (int64, error)
}
