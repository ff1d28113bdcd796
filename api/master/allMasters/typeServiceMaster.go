package allMaster

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TypeServiceRequest carries one service type: a named time window linked to
// the sous-categorie its revenue rolls up into. HeureFin may be earlier than
// HeureDebut for windows spanning midnight.
type TypeServiceRequest struct {
	TypeServiceID   int64  `json:"type_service_id"`
	EntiteID        int64  `json:"entite_id"`
	Code            string `json:"code"`
	HeureDebut      string `json:"heure_debut"`
	HeureFin        string `json:"heure_fin"`
	SousCategorieID int64  `json:"sous_categorie_id"`
	Actif           *bool  `json:"actif"`
}

func (t TypeServiceRequest) validate() string {
	switch {
	case t.EntiteID == 0:
		return "missing entite_id"
	case strings.TrimSpace(t.Code) == "":
		return "missing code"
	case !validHeure(t.HeureDebut):
		return fmt.Sprintf("invalid heure_debut %q (expected HH:MM)", t.HeureDebut)
	case !validHeure(t.HeureFin):
		return fmt.Sprintf("invalid heure_fin %q (expected HH:MM)", t.HeureFin)
	case t.SousCategorieID == 0:
		return "missing sous_categorie_id"
	}
	return ""
}

// CreateTypesService inserts service types in bulk. Overlapping windows
// across service types of one entite are not detected; the import resolves
// them first-match-wins.
func CreateTypesService(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID       string               `json:"user_id"`
			TypesService []TypeServiceRequest `json:"types_service"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || len(req.TypesService) == 0 {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}

		inserted := []map[string]interface{}{}
		for _, ts := range req.TypesService {
			if msg := ts.validate(); msg != "" {
				inserted = append(inserted, map[string]interface{}{"success": false, "error": msg, "code": ts.Code})
				continue
			}
			var id int64
			err := db.QueryRow(`INSERT INTO mastertypeservice
				(contrat_client_id, entite_id, code, heure_debut, heure_fin, sous_categorie_id, actif, created_by, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, true, $7, now()) RETURNING type_service_id`,
				session.ContratClientID, ts.EntiteID, strings.ToUpper(strings.TrimSpace(ts.Code)),
				ts.HeureDebut, ts.HeureFin, ts.SousCategorieID, session.Email).Scan(&id)
			if err != nil {
				inserted = append(inserted, map[string]interface{}{"success": false, "error": err.Error(), "code": ts.Code})
				continue
			}
			inserted = append(inserted, map[string]interface{}{"success": true, "type_service_id": id, "code": ts.Code})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "types_service": inserted})
	}
}

// GetTypesService lists service types, optionally filtered by entite.
func GetTypesService(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID   string `json:"user_id"`
			EntiteID int64  `json:"entite_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}
		query := `SELECT ts.type_service_id, ts.entite_id, e.code, ts.code, ts.heure_debut, ts.heure_fin, ts.sous_categorie_id, ts.actif
			FROM mastertypeservice ts
			JOIN masterentite e ON e.entite_id = ts.entite_id
			WHERE ts.contrat_client_id = $1`
		args := []interface{}{session.ContratClientID}
		if req.EntiteID != 0 {
			query += ` AND ts.entite_id = $2`
			args = append(args, req.EntiteID)
		}
		query += ` ORDER BY ts.entite_id, ts.heure_debut`

		rows, err := db.Query(query, args...)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
			return
		}
		defer rows.Close()

		results := []map[string]interface{}{}
		for rows.Next() {
			var id, entiteID, sousCategorieID int64
			var entiteCode, code, debut, fin string
			var actif bool
			if err := rows.Scan(&id, &entiteID, &entiteCode, &code, &debut, &fin, &sousCategorieID, &actif); err != nil {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
				return
			}
			results = append(results, map[string]interface{}{
				"type_service_id": id, "entite_id": entiteID, "entite_code": entiteCode,
				"code": code, "heure_debut": debut, "heure_fin": fin,
				"sous_categorie_id": sousCategorieID, "actif": actif,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": results})
	}
}

// UpdateTypeService edits one service type.
func UpdateTypeService(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID      string             `json:"user_id"`
			TypeService TypeServiceRequest `json:"type_service"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.TypeService.TypeServiceID == 0 {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}
		ts := req.TypeService
		if ts.HeureDebut != "" && !validHeure(ts.HeureDebut) {
			http.Error(w, fmt.Sprintf("invalid heure_debut %q", ts.HeureDebut), http.StatusBadRequest)
			return
		}
		if ts.HeureFin != "" && !validHeure(ts.HeureFin) {
			http.Error(w, fmt.Sprintf("invalid heure_fin %q", ts.HeureFin), http.StatusBadRequest)
			return
		}
		actif := true
		if ts.Actif != nil {
			actif = *ts.Actif
		}
		res, err := db.Exec(`UPDATE mastertypeservice
			SET code = COALESCE(NULLIF($1, ''), code),
			    heure_debut = COALESCE(NULLIF($2, ''), heure_debut),
			    heure_fin = COALESCE(NULLIF($3, ''), heure_fin),
			    sous_categorie_id = CASE WHEN $4 = 0 THEN sous_categorie_id ELSE $4 END,
			    actif = $5,
			    updated_by = $6,
			    updated_at = now()
			WHERE type_service_id = $7 AND contrat_client_id = $8`,
			strings.ToUpper(strings.TrimSpace(ts.Code)), ts.HeureDebut, ts.HeureFin, ts.SousCategorieID,
			actif, session.Email, ts.TypeServiceID, session.ContratClientID)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
			return
		}
		n, _ := res.RowsAffected()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": n == 1, "updated": n})
	}
}
