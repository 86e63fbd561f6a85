// Package pdf implementa la representación PDF del kardex valorizado: el
// histórico de movimientos de un producto en una ubicación con saldo y costo
// promedio corridos, fila por asiento.
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoKardexGenerator implementa kardex.KardexPDFGenerator usando Maroto v2.
type MarotoKardexGenerator struct{}

// NewMarotoKardexGenerator construye el generador.
func NewMarotoKardexGenerator() *MarotoKardexGenerator { return &MarotoKardexGenerator{} }

// GenerateKardexPDF genera el PDF y devuelve sus bytes.
func (g *MarotoKardexGenerator) GenerateKardexPDF(_ context.Context, report *appkardex.KardexReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("Kardex valorizado", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	for _, r := range tableRows(report) {
		m.AddRows(r)
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(report))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: producto + ubicación (izq) y fecha de generación (der).
func headerRow(report *appkardex.KardexReport) core.Row {
	return row.New(14).Add(
		col.New(8).Add(
			text.New("KARDEX VALORIZADO", props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Producto: %s   |   Ubicación: %s", report.ProductID, report.LocationID),
				props.Text{Size: 8, Top: 9, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("Generado: "+report.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de movimientos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 2, align.Left),
		h("Tipo", 2, align.Left),
		h("Entrada", 1, align.Right),
		h("Salida", 1, align.Right),
		h("Saldo", 1, align.Right),
		h("C. Unit.", 2, align.Right),
		h("C. Prom.", 1, align.Right),
		h("Valor Total", 2, align.Right),
	)
}

// tableRows: una fila por asiento del kardex.
func tableRows(report *appkardex.KardexReport) []core.Row {
	cell := func(value string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(value, props.Text{
			Size: 7, Align: a, Top: 1, Left: 1, Right: 1,
		}))
	}
	result := make([]core.Row, 0, len(report.Rows))
	for _, r := range report.Rows {
		in, out := "", ""
		if r.QuantityIn > 0 {
			in = fmt.Sprintf("%d", r.QuantityIn)
		}
		if r.QuantityOut > 0 {
			out = fmt.Sprintf("%d", r.QuantityOut)
		}
		result = append(result, row.New(6).Add(
			cell(r.Timestamp.Format("02/01/2006"), 2, align.Left),
			cell(r.Type, 2, align.Left),
			cell(in, 1, align.Right),
			cell(out, 1, align.Right),
			cell(fmt.Sprintf("%d", r.Balance), 1, align.Right),
			cell(r.UnitCost.StringFixed(2), 2, align.Right),
			cell(r.AverageCost.StringFixed(2), 1, align.Right),
			cell(r.TotalValue.StringFixed(2), 2, align.Right),
		))
	}
	return result
}

// totalsRow: saldo y valorización finales.
func totalsRow(report *appkardex.KardexReport) core.Row {
	totalValue := report.FinalState.AverageCost.Mul(decimal.NewFromInt(report.FinalState.OnHand))
	return row.New(10).Add(
		col.New(8),
		col.New(4).Add(
			text.New(fmt.Sprintf("Saldo final: %d unidades", report.FinalState.OnHand), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1,
			}),
			text.New(fmt.Sprintf("Costo promedio: %s   |   Valorización: %s",
				report.FinalState.AverageCost.StringFixed(2), totalValue.StringFixed(2)),
				props.Text{Size: 8, Align: align.Right, Top: 6, Color: colorGray}),
		),
	)
}
