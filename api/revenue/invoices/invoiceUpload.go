package invoices

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/lib/pq"

	"RestoBackOffice/api/auth"
	"RestoBackOffice/api/revenue/cadetail"
)

// RequiredColumns is the fixed header set an invoice file must carry.
var RequiredColumns = []string{"entite", "date", "numero", "tiers", "type_facture", "montant_ht", "montant_ttc"}

// pqUserFriendlyMessage turns driver error codes into something an operator
// can act on.
func pqUserFriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return err.Error()
	}
	switch pqErr.Code {
	case "23505":
		return "An invoice with the same numero already exists for this entite."
	case "23503":
		return "Some referenced data was not found (please refresh and try again)."
	case "23514":
		return "Some fields have invalid values. Please check and try again."
	default:
		return "Database error while processing the request. Please try again."
	}
}

type invoiceRow struct {
	Line       int    `json:"line"`
	EntiteCode string `json:"entite"`
	EntiteID   int64  `json:"-"`
	Date       string `json:"date"`
	Numero     string `json:"numero"`
	Tiers      string `json:"tiers"`
	TypeCode   string `json:"type_facture"`
	MontantHT  string `json:"montant_ht"`
	MontantTTC string `json:"montant_ttc"`
	Error      string `json:"error,omitempty"`
}

func loadEntiteCodes(db *sql.DB, contratClientID string) (map[string]int64, error) {
	rows, err := db.Query(`SELECT entite_id, code FROM masterentite WHERE contrat_client_id = $1 AND actif = true`, contratClientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, err
		}
		out[strings.ToUpper(strings.TrimSpace(code))] = id
	}
	return out, rows.Err()
}

// UploadInvoices is the simpler single-level importer: parse the whole file,
// validate every row, and only when the batch is clean insert it inside one
// transaction. Any row error returns the annotated rows and writes nothing.
func UploadInvoices(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
			return
		}
		userID := r.FormValue("user_id")
		if userID == "" {
			http.Error(w, "user_id required in form", http.StatusBadRequest)
			return
		}
		session := auth.SessionForUser(userID)
		if session == nil || session.ContratClientID == "" {
			http.Error(w, "User not found in active sessions", http.StatusUnauthorized)
			return
		}

		files := r.MultipartForm.File["file"]
		if len(files) == 0 {
			http.Error(w, "No file uploaded", http.StatusBadRequest)
			return
		}
		file, err := files[0].Open()
		if err != nil {
			http.Error(w, "Failed to open file: "+files[0].Filename, http.StatusBadRequest)
			return
		}
		records, err := cadetail.ParseImportFile(file, strings.ToLower(filepath.Ext(files[0].Filename)))
		file.Close()
		if err != nil || len(records) < 2 {
			http.Error(w, "Invalid or empty file: "+files[0].Filename, http.StatusBadRequest)
			return
		}

		header := records[0]
		idx := make(map[string]int, len(header))
		for i, h := range header {
			idx[strings.ToLower(strings.TrimSpace(h))] = i
		}
		var missing []string
		for _, col := range RequiredColumns {
			if _, ok := idx[col]; !ok {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   "missing required columns: " + strings.Join(missing, ", "),
			})
			return
		}

		entites, err := loadEntiteCodes(db, session.ContratClientID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Failed to load entites: " + err.Error()})
			return
		}

		cellAt := func(rec []string, col string) string {
			i := idx[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		rows := make([]invoiceRow, 0, len(records)-1)
		errCount := 0
		for i, rec := range records[1:] {
			row := invoiceRow{
				Line:       i + 1,
				EntiteCode: strings.ToUpper(cellAt(rec, "entite")),
				Date:       cellAt(rec, "date"),
				Numero:     cellAt(rec, "numero"),
				Tiers:      cellAt(rec, "tiers"),
				TypeCode:   cellAt(rec, "type_facture"),
				MontantHT:  cellAt(rec, "montant_ht"),
				MontantTTC: cellAt(rec, "montant_ttc"),
			}
			switch {
			case row.EntiteCode == "":
				row.Error = "missing entite code"
			case entites[row.EntiteCode] == 0:
				row.Error = fmt.Sprintf("unknown entite code %q", row.EntiteCode)
			case cadetail.ParseDate(row.Date) == nil:
				row.Error = fmt.Sprintf("unparseable date %q", row.Date)
			case row.Numero == "":
				row.Error = "missing numero"
			}
			if row.Error == "" {
				row.EntiteID = entites[row.EntiteCode]
			} else {
				errCount++
			}
			rows = append(rows, row)
		}
		if errCount > 0 {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"success":    false,
				"error":      fmt.Sprintf("%d row(s) in error, nothing was written", errCount),
				"rows":       rows,
				"row_errors": errCount,
			})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": pqUserFriendlyMessage(err)})
			return
		}
		inserted := 0
		for _, row := range rows {
			date := cadetail.ParseDate(row.Date)
			_, err := tx.Exec(`INSERT INTO facture (contrat_client_id, entite_id, date_facture, numero, tiers, type_facture, montant_ht, montant_ttc, created_by)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				session.ContratClientID, row.EntiteID, date.Format("2006-01-02"), row.Numero, row.Tiers, row.TypeCode,
				cadetail.ParseAmount(row.MontantHT), cadetail.ParseAmount(row.MontantTTC), session.Email)
			if err != nil {
				tx.Rollback()
				writeJSON(w, http.StatusConflict, map[string]interface{}{
					"success": false,
					"error":   fmt.Sprintf("line %d: %s", row.Line, pqUserFriendlyMessage(err)),
				})
				return
			}
			inserted++
		}
		if err := tx.Commit(); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": pqUserFriendlyMessage(err)})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"inserted": inserted,
		})
	}
}

// DownloadInvoiceTemplate serves the invoice CSV template.
func DownloadInvoiceTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="modele_factures.csv"`)
		lines := []string{
			strings.Join(RequiredColumns, ";"),
			"CDP;15/01/2024;F-2024-0012;METRO;ACHAT;120,00;132,00",
			"BST;16/01/2024;F-2024-0013;EDF;FRAIS;85,50;94,05",
		}
		w.Write([]byte(strings.Join(lines, "\n") + "\n"))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
