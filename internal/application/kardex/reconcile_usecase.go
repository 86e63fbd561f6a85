package kardex

import (
	"context"
	"fmt"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/pkg/logger"
)

// Códigos de hallazgo de reconciliación.
const (
	FindingOrphanTransfer  = "ORPHAN_TRANSFER"  // mitad de traslado sin su par
	FindingUnbalancedPair  = "UNBALANCED_PAIR"  // par de traslado con cantidades desiguales
	FindingChainMismatch   = "CHAIN_MISMATCH"   // BalanceAfter/costo grabado difiere del replay
	FindingStaleSnapshot   = "STALE_SNAPSHOT"   // snapshot grabado antes de un backfill; regenerable
	FindingCacheMismatch   = "CACHE_MISMATCH"   // vista materializada difiere del replay
	FindingNegativeBalance = "NEGATIVE_BALANCE" // fold negativo sin backorder que lo explique
)

// Finding es un hallazgo de reconciliación sobre el ledger de un producto.
type Finding struct {
	Code   string
	Detail string
}

// ReconcileUseCase detecta violaciones de invariantes del kardex: mitades de
// traslado huérfanas, cadenas de saldo que no cuadran con el replay y cachés
// desincronizadas. Los hallazgos se reportan y se registran en el log a nivel
// error; nunca se autocorrigen: un humano diagnostica y, si procede, asienta
// un ADJUSTMENT correctivo.
type ReconcileUseCase struct {
	entryRepo       repository.LedgerEntryRepository
	balanceRepo     repository.BalanceRepository
	reservationRepo repository.ReservationRepository
	log             *logger.Logger
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(
	entryRepo repository.LedgerEntryRepository,
	balanceRepo repository.BalanceRepository,
	reservationRepo repository.ReservationRepository,
	log *logger.Logger,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		entryRepo:       entryRepo,
		balanceRepo:     balanceRepo,
		reservationRepo: reservationRepo,
		log:             log,
	}
}

// Check corre todas las verificaciones sobre el producto y devuelve los
// hallazgos. Lista vacía = ledger consistente.
func (uc *ReconcileUseCase) Check(ctx context.Context, productID string) ([]Finding, error) {
	findings, err := uc.CheckTransferPairs(ctx, productID)
	if err != nil {
		return nil, err
	}
	replay, err := uc.CheckReplay(ctx, productID)
	if err != nil {
		return nil, err
	}
	findings = append(findings, replay...)
	for _, f := range findings {
		uc.log.Error().
			Str("product_id", productID).
			Str("code", f.Code).
			Str("detail", f.Detail).
			Msg("inconsistencia de kardex")
	}
	return findings, nil
}

// CheckTransferPairs verifica que cada ReferenceID de traslado resuelva a
// exactamente un TRANSFER_OUT y un TRANSFER_IN con cantidades opuestas.
func (uc *ReconcileUseCase) CheckTransferPairs(_ context.Context, productID string) ([]Finding, error) {
	entries, err := uc.entryRepo.ListByProduct(productID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	refs := make([]string, 0)
	for _, e := range entries {
		if e.ReferenceType != entity.ReferenceTypeTRANSFER {
			continue
		}
		if _, ok := seen[e.ReferenceID]; ok {
			continue
		}
		seen[e.ReferenceID] = struct{}{}
		refs = append(refs, e.ReferenceID)
	}

	var findings []Finding
	for _, ref := range refs {
		pair, err := uc.entryRepo.ListByReference(entity.ReferenceTypeTRANSFER, ref)
		if err != nil {
			return nil, err
		}
		var out, in *entity.LedgerEntry
		for _, e := range pair {
			if e.ProductID != productID {
				continue
			}
			switch e.Type {
			case entity.MovementTypeTRANSFER_OUT:
				out = e
			case entity.MovementTypeTRANSFER_IN:
				in = e
			}
		}
		switch {
		case out == nil:
			findings = append(findings, Finding{
				Code:   FindingOrphanTransfer,
				Detail: fmt.Sprintf("traslado %s: falta el asiento TRANSFER_OUT", ref),
			})
		case in == nil:
			findings = append(findings, Finding{
				Code:   FindingOrphanTransfer,
				Detail: fmt.Sprintf("traslado %s: falta el asiento TRANSFER_IN", ref),
			})
		case out.QuantityChange != -in.QuantityChange:
			findings = append(findings, Finding{
				Code: FindingUnbalancedPair,
				Detail: fmt.Sprintf("traslado %s: OUT %d no es la negación de IN %d",
					ref, out.QuantityChange, in.QuantityChange),
			})
		}
	}
	return findings, nil
}

// CheckReplay compara, por cada ubicación del producto, la cadena grabada y la
// vista materializada contra un replay completo desde estado vacío.
func (uc *ReconcileUseCase) CheckReplay(_ context.Context, productID string) ([]Finding, error) {
	locations, err := uc.entryRepo.ListLocations(productID)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, loc := range locations {
		entries, err := uc.entryRepo.ListByProductLocation(productID, loc, nil)
		if err != nil {
			return nil, err
		}
		if err := kardex.Verify(entries); err != nil {
			findings = append(findings, uc.classifyChain(productID, loc, entries)...)
		}
		state, err := kardex.Fold(entries)
		if err != nil {
			findings = append(findings, Finding{Code: FindingNegativeBalance, Detail: err.Error()})
			continue
		}
		cached, err := uc.balanceRepo.GetLocation(productID, loc)
		if err != nil {
			return nil, err
		}
		if cached == nil {
			continue // nunca materializada: no hay nada que contrastar
		}
		if cached.OnHand != state.OnHand {
			findings = append(findings, Finding{
				Code: FindingCacheMismatch,
				Detail: fmt.Sprintf("%s/%s: caché onHand %d, replay %d",
					productID, loc, cached.OnHand, state.OnHand),
			})
		}
		reserved, err := uc.reservationRepo.SumActive(productID, loc)
		if err != nil {
			return nil, err
		}
		if cached.Reserved != reserved {
			findings = append(findings, Finding{
				Code: FindingCacheMismatch,
				Detail: fmt.Sprintf("%s/%s: caché reservado %d, reservas activas %d",
					productID, loc, cached.Reserved, reserved),
			})
		}
	}
	return findings, nil
}

// classifyChain separa un fallo de Verify entre corrupción real y snapshots
// que quedaron atrás por un asiento backdated escrito después. Lo segundo es
// consecuencia esperada de un backfill (los asientos nunca se reescriben) y
// se reporta con código propio para no entrenar al operador a ignorar
// CHAIN_MISMATCH.
func (uc *ReconcileUseCase) classifyChain(productID, locationID string, entries []*entity.LedgerEntry) []Finding {
	mismatches, _ := kardex.VerifyDetail(entries)
	findings := make([]Finding, 0, len(mismatches))
	for _, m := range mismatches {
		code := FindingChainMismatch
		detail := fmt.Sprintf("%s/%s: asiento %s grabó saldo %d y costo %s; el replay produce %d y %s",
			productID, locationID, m.Entry.ID,
			m.Entry.BalanceAfter, m.Entry.AverageCostAfter,
			m.Replayed.OnHand, m.Replayed.AverageCost)
		if m.Stale {
			code = FindingStaleSnapshot
			detail += " (snapshot previo a un asiento backdated; no es corrupción)"
		}
		findings = append(findings, Finding{Code: code, Detail: detail})
	}
	return findings
}
