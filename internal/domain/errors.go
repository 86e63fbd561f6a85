package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrInvalidEntry          = errors.New("asiento de kardex inválido")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrInsufficientAvailable = errors.New("disponible insuficiente")
	ErrInvalidAdjustment     = errors.New("el ajuste dejaría el stock en negativo")
	ErrContention            = errors.New("no se pudo obtener el bloqueo de la clave de stock")
	ErrLedgerInconsistency   = errors.New("inconsistencia detectada en el kardex")
	ErrReservationNotActive  = errors.New("la reserva no está activa")
	ErrUnauthorized          = errors.New("no autorizado")
)
