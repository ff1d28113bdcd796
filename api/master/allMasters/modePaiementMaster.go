package allMaster

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
)

type ModePaiementRequest struct {
	ModePaiementID int64  `json:"mode_paiement_id"`
	Code           string `json:"code"`
	Libelle        string `json:"libelle"`
	Actif          *bool  `json:"actif"`
}

// CreateModesPaiement inserts payment modes in bulk.
func CreateModesPaiement(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID        string                `json:"user_id"`
			ModesPaiement []ModePaiementRequest `json:"modes_paiement"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || len(req.ModesPaiement) == 0 {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}

		inserted := []map[string]interface{}{}
		for _, m := range req.ModesPaiement {
			code := strings.ToUpper(strings.TrimSpace(m.Code))
			if code == "" {
				inserted = append(inserted, map[string]interface{}{"success": false, "error": "missing code", "libelle": m.Libelle})
				continue
			}
			var id int64
			err := db.QueryRow(`INSERT INTO mastermodepaiement (contrat_client_id, code, libelle, actif, created_by, created_at)
				VALUES ($1, $2, $3, true, $4, now()) RETURNING mode_paiement_id`,
				session.ContratClientID, code, m.Libelle, session.Email).Scan(&id)
			if err != nil {
				inserted = append(inserted, map[string]interface{}{"success": false, "error": err.Error(), "code": code})
				continue
			}
			inserted = append(inserted, map[string]interface{}{"success": true, "mode_paiement_id": id, "code": code})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "modes_paiement": inserted})
	}
}

// GetModesPaiement lists payment modes for the caller's contrat client.
func GetModesPaiement(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}
		rows, err := db.Query(`SELECT mode_paiement_id, code, libelle, actif FROM mastermodepaiement
			WHERE contrat_client_id = $1 ORDER BY code`, session.ContratClientID)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
			return
		}
		defer rows.Close()

		results := []map[string]interface{}{}
		for rows.Next() {
			var id int64
			var code, libelle string
			var actif bool
			if err := rows.Scan(&id, &code, &libelle, &actif); err != nil {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
				return
			}
			results = append(results, map[string]interface{}{
				"mode_paiement_id": id, "code": code, "libelle": libelle, "actif": actif,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": results})
	}
}

// DeactivateModesPaiement flips payment modes inactive.
func DeactivateModesPaiement(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID          string  `json:"user_id"`
			ModePaiementIDs []int64 `json:"mode_paiement_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || len(req.ModePaiementIDs) == 0 {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}
		res, err := db.Exec(`UPDATE mastermodepaiement SET actif = false, updated_by = $1, updated_at = now()
			WHERE mode_paiement_id = ANY($2) AND contrat_client_id = $3`,
			session.Email, int64Array(req.ModePaiementIDs), session.ContratClientID)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
			return
		}
		n, _ := res.RowsAffected()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "deactivated": n})
	}
}
