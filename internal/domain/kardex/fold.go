// Package kardex contiene los servicios de dominio del kardex: la fórmula de
// costo promedio ponderado y la reconstrucción de saldos por plegado de
// asientos. Todo es puro: sin estado propio ni acceso a almacenamiento.
package kardex

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// BalanceState es el resultado de reconstruir una clave (producto, ubicación):
// stock físico y costo promedio vigente.
type BalanceState struct {
	OnHand      int64
	AverageCost decimal.Decimal
}

// Next aplica un asiento sobre un estado y devuelve el estado resultante.
// No muta el asiento. Un saldo corrido negativo solo es legítimo si el asiento
// que cruza el cero es una venta marcada como backorder; en cualquier otro caso
// es ErrLedgerInconsistency (asiento perdido o carrera en el orden de escritura).
func Next(state BalanceState, e *entity.LedgerEntry) (BalanceState, error) {
	next := BalanceState{
		OnHand:      state.OnHand + e.QuantityChange,
		AverageCost: state.AverageCost,
	}
	if next.OnHand < 0 && !(e.Type == entity.MovementTypeSALE && e.Backorder) {
		return BalanceState{}, fmt.Errorf("%w: saldo negativo %d en %s/%s tras asiento %s",
			domain.ErrLedgerInconsistency, next.OnHand, e.ProductID, e.LocationID, e.ID)
	}

	switch {
	case e.Type == entity.MovementTypeADJUSTMENT && e.CostReset:
		// Reconteo completo: el costo promedio se fija al costo suministrado.
		next.AverageCost = e.UnitCost
	case e.Type == entity.MovementTypeADJUSTMENT:
		// Los ajustes arrastran el costo promedio sin cambio, en ambos signos.
	case e.IsInbound():
		next.AverageCost = CostCalculator(state.OnHand, state.AverageCost, e.QuantityChange, e.UnitCost)
	default:
		// Salidas (SALE, TRANSFER_OUT): costo promedio intacto.
	}
	return next, nil
}

// Fold reconstruye el estado de una clave plegando sus asientos, que deben
// venir ya ordenados por (Timestamp, InsertionSeq), el orden que garantiza el
// store. Con cero asientos devuelve el estado vacío.
func Fold(entries []*entity.LedgerEntry) (BalanceState, error) {
	state := BalanceState{AverageCost: decimal.Zero}
	for _, e := range entries {
		var err error
		state, err = Next(state, e)
		if err != nil {
			return BalanceState{}, err
		}
	}
	return state, nil
}

// FoldAsOf pliega solo los asientos con Timestamp <= asOf. Un asiento insertado
// con fecha pasada queda incluido en su posición correcta para toda consulta
// que cubra ese rango; las consultas estrictamente anteriores no lo ven.
func FoldAsOf(entries []*entity.LedgerEntry, asOf time.Time) (BalanceState, error) {
	upTo := make([]*entity.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.After(asOf) {
			upTo = append(upTo, e)
		}
	}
	return Fold(upTo)
}

// Stamp calcula el estado siguiente y lo graba en el asiento (BalanceAfter,
// AverageCostBefore/After). Es el único sitio donde se rellenan esos campos
// antes de persistir.
func Stamp(state BalanceState, e *entity.LedgerEntry) (BalanceState, error) {
	next, err := Next(state, e)
	if err != nil {
		return BalanceState{}, err
	}
	e.BalanceAfter = next.OnHand
	e.AverageCostBefore = state.AverageCost
	e.AverageCostAfter = next.AverageCost
	return next, nil
}

// costEpsilon tolera el redondeo de NUMERIC al comparar costos almacenados
// contra los recalculados.
var costEpsilon = decimal.New(1, -6)

// Verify recorre los asientos de una clave comparando los campos grabados
// (BalanceAfter, AverageCostAfter) contra el replay desde estado vacío.
// Cualquier desviación es ErrLedgerInconsistency: debe alertarse, nunca
// autocorregirse.
func Verify(entries []*entity.LedgerEntry) error {
	state := BalanceState{AverageCost: decimal.Zero}
	for _, e := range entries {
		next, err := Next(state, e)
		if err != nil {
			return err
		}
		if e.BalanceAfter != next.OnHand {
			return fmt.Errorf("%w: asiento %s grabó saldo %d, el replay produce %d",
				domain.ErrLedgerInconsistency, e.ID, e.BalanceAfter, next.OnHand)
		}
		if e.AverageCostAfter.Sub(next.AverageCost).Abs().GreaterThan(costEpsilon) {
			return fmt.Errorf("%w: asiento %s grabó costo promedio %s, el replay produce %s",
				domain.ErrLedgerInconsistency, e.ID, e.AverageCostAfter, next.AverageCost)
		}
		state = next
	}
	return nil
}

// ChainMismatch describe un asiento cuyo snapshot grabado no coincide con el
// replay. Stale marca los explicables por un backfill: si antes del asiento,
// en orden lógico, aparece otro con InsertionSeq mayor, el snapshot se grabó
// antes de ese asiento backdated y quedó atrás sin que haya corrupción.
type ChainMismatch struct {
	Entry    *entity.LedgerEntry
	Replayed BalanceState
	Stale    bool
}

// VerifyDetail rejuega la cadena como Verify pero recolecta todos los
// desajustes en lugar de cortar en el primero, clasificando cada uno como
// corrupción o como snapshot desactualizado por backfill. Si el replay mismo
// falla devuelve lo acumulado y el error.
func VerifyDetail(entries []*entity.LedgerEntry) ([]ChainMismatch, error) {
	state := BalanceState{AverageCost: decimal.Zero}
	var maxSeq int64
	var mismatches []ChainMismatch
	for _, e := range entries {
		next, err := Next(state, e)
		if err != nil {
			return mismatches, err
		}
		if e.BalanceAfter != next.OnHand ||
			e.AverageCostAfter.Sub(next.AverageCost).Abs().GreaterThan(costEpsilon) {
			mismatches = append(mismatches, ChainMismatch{
				Entry:    e,
				Replayed: next,
				Stale:    e.InsertionSeq < maxSeq,
			})
		}
		if e.InsertionSeq > maxSeq {
			maxSeq = e.InsertionSeq
		}
		state = next
	}
	return mismatches, nil
}
