// seed importa un kardex histórico desde un CSV exportado de Excel
// (codificación ISO-8859-1, separador ';') y lo reproduce movimiento a
// movimiento contra la base de datos, validando cada asiento como si
// hubiera ocurrido en vivo.
//
// Columnas esperadas: product_id;location_id;type;quantity;unit_cost;timestamp;reference_id;notes
// timestamp en formato RFC3339 o 2006-01-02.
//
// Uso: go run ./cmd/seed [ruta/kardex.csv]
// Por defecto busca kardex.csv en el directorio actual.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	appkardex "github.com/jhoicas/Kardex-api/internal/application/kardex"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Kardex-api/pkg/config"
)

func main() {
	csvPath := "kardex.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	// Los exports de Excel en español vienen en Latin-1 con ';' de separador.
	reader := csv.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "CSV vacío")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	txRunner := postgres.NewTxRunner(pool, cfg.Kardex.LockTimeout)
	movements := appkardex.NewMovementUseCase(txRunner)

	imported, skipped := 0, 0
	for i, row := range rows {
		// Cabecera opcional
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "product_id") {
			continue
		}
		input, err := parseRow(row)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fila %d: %v (omitida)\n", i+1, err)
			skipped++
			continue
		}
		if err := movements.RegisterMovement(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "fila %d: registrar movimiento: %v\n", i+1, err)
			os.Exit(1)
		}
		imported++
	}

	fmt.Printf("Importados %d movimientos (%d filas omitidas) desde %s\n", imported, skipped, csvPath)
}

func parseRow(row []string) (appkardex.MovementInput, error) {
	var in appkardex.MovementInput
	if len(row) < 6 {
		return in, fmt.Errorf("se esperaban al menos 6 columnas, hay %d", len(row))
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	qty, err := strconv.ParseInt(row[3], 10, 64)
	if err != nil {
		return in, fmt.Errorf("cantidad inválida %q", row[3])
	}

	in = appkardex.MovementInput{
		ProductID:  row[0],
		LocationID: row[1],
		Type:       strings.ToUpper(row[2]),
		Quantity:   qty,
		UserID:     "seed",
	}

	if row[4] != "" {
		// Soporta coma decimal del export regional
		cost, err := decimal.NewFromString(strings.ReplaceAll(row[4], ",", "."))
		if err != nil {
			return in, fmt.Errorf("costo inválido %q", row[4])
		}
		in.UnitCost = &cost
	}

	ts, err := parseTimestamp(row[5])
	if err != nil {
		return in, err
	}
	in.Timestamp = &ts

	if len(row) > 6 && row[6] != "" {
		in.ReferenceID = row[6]
		in.ReferenceType = entity.ReferenceTypeBACKFILL
	}
	if len(row) > 7 {
		in.Notes = row[7]
	}

	// Todo el histórico entra como backfill: los INITIAL_LOAD posteriores al
	// primero no exigen saldo cero.
	in.Backfill = true
	return in, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp inválido %q", s)
}
