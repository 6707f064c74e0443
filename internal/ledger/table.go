package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/UdinTarmiji/finance-data/internal/core"
)

// The persisted table is a flat CSV with a fixed column order. Legacy
// files written by earlier installations use the Indonesian header; both
// forms load, only the canonical one is written.
var (
	tableHeader  = []string{"date", "income", "expense", "category"}
	legacyHeader = []string{"tanggal", "pemasukan", "pengeluaran", "kategori"}
)

// ParseTable decodes a persisted ledger table. Rows with unparseable
// dates are skipped and counted rather than aborting the load; numeric
// cells that fail to parse are coerced to zero. A missing or unknown
// header is a structural error.
func ParseTable(data []byte) ([]core.Record, int, error) {
	// Legacy exports were written with a UTF-8 BOM.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read table header: %w", err)
	}
	if !headerMatches(header, tableHeader) && !headerMatches(header, legacyHeader) {
		return nil, 0, fmt.Errorf("unrecognized table header %q", strings.Join(header, ","))
	}

	var records []core.Record
	skipped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row, not a malformed file.
			skipped++
			continue
		}
		if len(row) < 4 {
			skipped++
			continue
		}
		date, err := core.ParseDate(row[0])
		if err != nil {
			skipped++
			continue
		}
		rec := core.Record{
			Date:     date,
			Income:   core.CoerceAmount(row[1]),
			Expense:  core.CoerceAmount(row[2]),
			Category: strings.TrimSpace(row[3]),
		}
		records = append(records, rec.Normalize())
	}
	return records, skipped, nil
}

// MarshalTable renders snapshot rows as the canonical CSV table, one row
// per record in the order given. Balances are derived data and are not
// persisted.
func MarshalTable(rows []Row) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(tableHeader)
	for _, row := range rows {
		w.Write([]string{
			row.Date.Format(),
			row.Income.String(),
			row.Expense.String(),
			row.Category,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func headerMatches(got, want []string) bool {
	if len(got) < len(want) {
		return false
	}
	for i, col := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), col) {
			return false
		}
	}
	return true
}
