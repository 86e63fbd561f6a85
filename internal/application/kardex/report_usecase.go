package kardex

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// KardexRow es una fila del kardex valorizado: el asiento más el estado
// corrido recalculado por replay (no se confía en los campos grabados).
type KardexRow struct {
	Timestamp   time.Time
	Type        string
	ReferenceID string
	QuantityIn  int64
	QuantityOut int64
	Balance     int64
	UnitCost    decimal.Decimal
	AverageCost decimal.Decimal
	TotalValue  decimal.Decimal // Balance * AverageCost
}

// KardexReport es el kardex valorizado de un producto en una ubicación.
type KardexReport struct {
	ProductID   string
	LocationID  string
	GeneratedAt time.Time
	Rows        []KardexRow
	FinalState  kardex.BalanceState
}

// ReportUseCase arma el kardex valorizado y delega el PDF al generador.
type ReportUseCase struct {
	entryRepo repository.LedgerEntryRepository
	pdf       KardexPDFGenerator
}

// NewReportUseCase construye el caso de uso.
func NewReportUseCase(entryRepo repository.LedgerEntryRepository, pdf KardexPDFGenerator) *ReportUseCase {
	return &ReportUseCase{entryRepo: entryRepo, pdf: pdf}
}

// BuildReport reconstruye el kardex valorizado de la clave por replay.
func (uc *ReportUseCase) BuildReport(_ context.Context, productID, locationID string) (*KardexReport, error) {
	if productID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	entries, err := uc.entryRepo.ListByProductLocation(productID, locationID, nil)
	if err != nil {
		return nil, err
	}
	report := &KardexReport{
		ProductID:   productID,
		LocationID:  locationID,
		GeneratedAt: time.Now().UTC(),
		Rows:        make([]KardexRow, 0, len(entries)),
	}
	state := kardex.BalanceState{AverageCost: decimal.Zero}
	for _, e := range entries {
		state, err = kardex.Next(state, e)
		if err != nil {
			return nil, err
		}
		row := KardexRow{
			Timestamp:   e.Timestamp,
			Type:        e.Type,
			ReferenceID: e.ReferenceID,
			Balance:     state.OnHand,
			UnitCost:    e.UnitCost,
			AverageCost: state.AverageCost,
			TotalValue:  decimal.NewFromInt(state.OnHand).Mul(state.AverageCost),
		}
		if e.QuantityChange > 0 {
			row.QuantityIn = e.QuantityChange
		} else {
			row.QuantityOut = -e.QuantityChange
		}
		report.Rows = append(report.Rows, row)
	}
	report.FinalState = state
	return report, nil
}

// GeneratePDF arma el reporte y lo renderiza como PDF.
func (uc *ReportUseCase) GeneratePDF(ctx context.Context, productID, locationID string) ([]byte, error) {
	report, err := uc.BuildReport(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}
	return uc.pdf.GenerateKardexPDF(ctx, report)
}
