package cadetail

import (
	"encoding/csv"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"RestoBackOffice/internal/config"
)

// RequiredColumns is the fixed header set a CA detail file must carry.
var RequiredColumns = []string{"entite", "date", "heure", "document", "pu_ht", "pu_ttc", "montant_ht", "montant_ttc"}

func fileExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// ParseImportFile reads an uploaded CA detail file into raw rows. CSV files
// are ';'-separated; .xlsx and legacy .xls workbooks read their first sheet.
func ParseImportFile(file multipart.File, ext string) ([][]string, error) {
	switch ext {
	case ".csv":
		r := csv.NewReader(file)
		r.Comma = config.ImportDelimiter
		r.FieldsPerRecord = -1
		return r.ReadAll()
	case ".xlsx":
		f, err := excelize.OpenReader(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sheet := f.GetSheetName(0)
		return f.GetRows(sheet)
	case ".xls":
		wb, err := xls.OpenReader(file, "utf-8")
		if err != nil {
			return nil, err
		}
		return wb.ReadAllCells(65536), nil
	}
	return nil, errors.New("unsupported file type")
}

// headerIndex maps lowercased, trimmed header names to their column index.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// BuildRows validates the header and transforms raw records into DetailRows.
// A missing required column rejects the whole file with one aggregate error;
// per-row problems are recorded on the row, first match wins: missing branch
// code, unknown branch code, unparseable date, missing time. Amounts are
// parsed regardless of the row's validity.
func BuildRows(records [][]string, refs *ReferenceMaps) ([]DetailRow, error) {
	if len(records) < 2 {
		return nil, errors.New("file is empty or has no data rows")
	}
	idx := headerIndex(records[0])
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	rows := make([]DetailRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		row := DetailRow{
			ImportSequence: i + 1,
			BranchCode:     strings.ToUpper(cell(rec, idx["entite"])),
			RawDate:        cell(rec, idx["date"]),
			Heure:          FormatTime(cell(rec, idx["heure"])),
			Document:       cell(rec, idx["document"]),
			PUHT:           ParseAmount(cell(rec, idx["pu_ht"])),
			PUTTC:          ParseAmount(cell(rec, idx["pu_ttc"])),
			MontantHT:      ParseAmount(cell(rec, idx["montant_ht"])),
			MontantTTC:     ParseAmount(cell(rec, idx["montant_ttc"])),
		}
		row.Date = ParseDate(row.RawDate)
		if id, ok := refs.EntitiesByCode[row.BranchCode]; ok {
			row.BranchID = id
		}

		switch {
		case row.BranchCode == "":
			row.Error = "missing entite code"
		case row.BranchID == 0:
			row.Error = fmt.Sprintf("unknown entite code %q", row.BranchCode)
		case row.Date == nil:
			row.Error = fmt.Sprintf("unparseable date %q", row.RawDate)
		case row.Heure == "":
			row.Error = "missing heure"
		}
		rows = append(rows, row)
	}
	return rows, nil
}
