package entity

import "time"

// Estados de una reserva de stock.
const (
	ReservationStatusACTIVE    = "ACTIVE"
	ReservationStatusRELEASED  = "RELEASED"
	ReservationStatusCOMMITTED = "COMMITTED"
)

// Reservation es una retención de cantidad contra el disponible de una clave
// (producto, ubicación) sin consumir stock físico. Solo afecta al kardex al
// confirmarse, momento en que se convierte en un movimiento SALE.
type Reservation struct {
	ID          string
	ProductID   string
	LocationID  string
	Quantity    int64
	Status      string
	ReferenceID string // orden/carrito que motiva la reserva
	UserID      string
	CreatedAt   time.Time
	ResolvedAt  *time.Time // momento de release o commit
}

// Active indica si la reserva sigue descontando disponible.
func (r *Reservation) Active() bool {
	return r.Status == ReservationStatusACTIVE
}

// Key devuelve la clave (producto, ubicación) de la reserva.
func (r *Reservation) Key() StockKey {
	return StockKey{ProductID: r.ProductID, LocationID: r.LocationID}
}
