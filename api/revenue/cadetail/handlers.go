package cadetail

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"RestoBackOffice/api/auth"
)

func writeJSON(w http.ResponseWriter, status int, payload map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// tenantForUser resolves the contrat client of the caller's active session.
func tenantForUser(userID string) (string, error) {
	s := auth.SessionForUser(userID)
	if s == nil {
		return "", fmt.Errorf("user not found in active sessions")
	}
	if s.ContratClientID == "" {
		return "", fmt.Errorf("no contrat client bound to user session")
	}
	return s.ContratClientID, nil
}

func rowErrorCount(rows []DetailRow) int {
	n := 0
	for i := range rows {
		if rows[i].Error != "" {
			n++
		}
	}
	return n
}

// UploadCADetail ingests a CA detail file: parses it, validates the header,
// loads the tenant's reference snapshot and transforms the rows. The batch
// is held in memory until simulate/commit or the TTL sweep.
func UploadCADetail(db PgxIface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
			return
		}
		userID := r.FormValue("user_id")
		if userID == "" {
			http.Error(w, "user_id required in form", http.StatusBadRequest)
			return
		}
		contratClientID, err := tenantForUser(userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		files := r.MultipartForm.File["file"]
		if len(files) == 0 {
			http.Error(w, "No file uploaded", http.StatusBadRequest)
			return
		}
		fileHeader := files[0]
		file, err := fileHeader.Open()
		if err != nil {
			http.Error(w, "Failed to open file: "+fileHeader.Filename, http.StatusBadRequest)
			return
		}
		records, err := ParseImportFile(file, fileExt(fileHeader.Filename))
		file.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Invalid file: " + err.Error()})
			return
		}

		refs, err := LoadReferenceMaps(ctx, db, contratClientID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Failed to load reference data: " + err.Error()})
			return
		}

		rows, err := BuildRows(records, refs)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": err.Error()})
			return
		}

		batch := Batches().New(contratClientID, fileHeader.Filename, rows, refs)
		batch.setProgress("parsed", 0, len(rows), "File parsed")

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"batch_id":   batch.ID,
			"rows":       rows,
			"row_errors": rowErrorCount(rows),
		})
	}
}

type batchRequest struct {
	UserID  string `json:"user_id"`
	BatchID string `json:"batch_id"`
}

func resolveBatch(w http.ResponseWriter, r *http.Request) (*ImportBatch, bool) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.BatchID == "" {
		http.Error(w, "user_id and batch_id required in body", http.StatusBadRequest)
		return nil, false
	}
	contratClientID, err := tenantForUser(req.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil, false
	}
	batch := Batches().Get(req.BatchID)
	if batch == nil || batch.ContratClientID != contratClientID {
		http.Error(w, "batch not found", http.StatusNotFound)
		return nil, false
	}
	return batch, true
}

// SimulateCADetail runs the enrichment step: service-window resolution plus
// category attachment for every still-valid row. Rows in error stay as they
// are; they do not block simulation of the others.
func SimulateCADetail(db PgxIface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch, ok := resolveBatch(w, r)
		if !ok {
			return
		}
		batch.mu.Lock()
		ResolveServices(batch.Rows, batch.Refs, batch.Notices)
		batch.Simulated = true
		rows := make([]DetailRow, len(batch.Rows))
		copy(rows, batch.Rows)
		batch.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"batch_id":   batch.ID,
			"rows":       rows,
			"row_errors": rowErrorCount(rows),
			"notices":    batch.Notices.Snapshot(),
		})
	}
}

// CommitCADetail is the all-or-nothing gate plus the sequential upsert run.
// A single row in error refuses the whole commit before any upsert is
// issued; once the run starts, persistence failures are collected per group
// and the run continues.
func CommitCADetail(db PgxIface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		batch, ok := resolveBatch(w, r)
		if !ok {
			return
		}

		batch.mu.Lock()
		simulated := batch.Simulated
		rows := make([]DetailRow, len(batch.Rows))
		copy(rows, batch.Rows)
		batch.mu.Unlock()

		if !simulated {
			writeJSON(w, http.StatusConflict, map[string]interface{}{"success": false, "error": "Run the simulation before committing"})
			return
		}
		if n := rowErrorCount(rows); n > 0 {
			var examples []string
			for i := range rows {
				if rows[i].Error != "" && len(examples) < 5 {
					examples = append(examples, fmt.Sprintf("line %d: %s", rows[i].ImportSequence, rows[i].Error))
				}
			}
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"success": false,
				"error":   fmt.Sprintf("%d row(s) in error, nothing was written: %s", n, strings.Join(examples, "; ")),
			})
			return
		}

		groups := BuildAggregation(rows)
		report := RunCommit(ctx, db, batch, groups)

		if len(report.Errors) == 0 {
			// successful commit resets the batch
			Batches().Delete(batch.ID)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": len(report.Errors) == 0,
			"report":  report,
			"notices": batch.Notices.Snapshot(),
		})
	}
}

// GetCADetailProgress reports the commit progress of a batch.
func GetCADetailProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := r.URL.Query().Get("batch_id")
		batch := Batches().Get(batchID)
		if batch == nil {
			http.Error(w, "batch not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"progress": batch.ProgressSnapshot(),
		})
	}
}

// DownloadCADetailTemplate serves a ';'-separated CSV template matching the
// required header, with a few example rows.
func DownloadCADetailTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="modele_ca_detail.csv"`)
		lines := []string{
			strings.Join(RequiredColumns, ";"),
			"CDP;15/01/2024;12:15;TICKET-001;10,50;11,55;21,00;23,10",
			"CDP;15/01/2024;20H30;TICKET-002;15,00;16,50;45,00;49,50",
			"BST;16/01/2024;7h;;2,40;2,64;12,00;13,20",
		}
		w.Write([]byte(strings.Join(lines, "\n") + "\n"))
	}
}
