package allMaster

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"RestoBackOffice/api/auth"
)

type EntiteRequest struct {
	EntiteID int64  `json:"entite_id"`
	Code     string `json:"code"`
	Nom      string `json:"nom"`
	Ville    string `json:"ville"`
	Actif    *bool  `json:"actif"`
}

func sessionTenant(w http.ResponseWriter, userID string) (*auth.UserSession, bool) {
	session := auth.SessionForUser(userID)
	if session == nil || session.ContratClientID == "" {
		http.Error(w, "User not found in active sessions", http.StatusUnauthorized)
		return nil, false
	}
	return session, true
}

// CreateEntites inserts branches in bulk for the caller's contrat client.
func CreateEntites(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID  string          `json:"user_id"`
			Entites []EntiteRequest `json:"entites"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || len(req.Entites) == 0 {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}

		inserted := []map[string]interface{}{}
		for _, e := range req.Entites {
			code := strings.ToUpper(strings.TrimSpace(e.Code))
			if code == "" {
				inserted = append(inserted, map[string]interface{}{"success": false, "error": "missing code", "nom": e.Nom})
				continue
			}
			var id int64
			err := db.QueryRow(`INSERT INTO masterentite (contrat_client_id, code, nom, ville, actif, created_by, created_at)
				VALUES ($1, $2, $3, $4, true, $5, now()) RETURNING entite_id`,
				session.ContratClientID, code, e.Nom, e.Ville, session.Email).Scan(&id)
			if err != nil {
				inserted = append(inserted, map[string]interface{}{"success": false, "error": err.Error(), "code": code})
				continue
			}
			inserted = append(inserted, map[string]interface{}{"success": true, "entite_id": id, "code": code})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "entites": inserted})
	}
}

// GetEntites lists the branches of the caller's contrat client.
func GetEntites(db *sql.DB) http.HandlerFunc {
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
		rows, err := db.Query(`SELECT entite_id, code, nom, ville, actif FROM masterentite
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
			var code, nom string
			var ville sql.NullString
			var actif bool
			if err := rows.Scan(&id, &code, &nom, &ville, &actif); err != nil {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
				return
			}
			results = append(results, map[string]interface{}{
				"entite_id": id, "code": code, "nom": nom, "ville": ville.String, "actif": actif,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": results})
	}
}

// UpdateEntite edits one branch; only supplied fields change.
func UpdateEntite(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string        `json:"user_id"`
			Entite EntiteRequest `json:"entite"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Entite.EntiteID == 0 {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}
		actif := true
		if req.Entite.Actif != nil {
			actif = *req.Entite.Actif
		}
		res, err := db.Exec(`UPDATE masterentite
			SET code = COALESCE(NULLIF($1, ''), code),
			    nom = COALESCE(NULLIF($2, ''), nom),
			    ville = COALESCE(NULLIF($3, ''), ville),
			    actif = $4,
			    updated_by = $5,
			    updated_at = now()
			WHERE entite_id = $6 AND contrat_client_id = $7`,
			strings.ToUpper(strings.TrimSpace(req.Entite.Code)), req.Entite.Nom, req.Entite.Ville,
			actif, session.Email, req.Entite.EntiteID, session.ContratClientID)
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

// DeactivateEntites flips branches inactive; reference snapshots pick the
// change up on the next full reload.
func DeactivateEntites(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID    string  `json:"user_id"`
			EntiteIDs []int64 `json:"entite_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || len(req.EntiteIDs) == 0 {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}
		rows, err := db.Query(`UPDATE masterentite SET actif = false, updated_by = $1, updated_at = now()
			WHERE entite_id = ANY($2) AND contrat_client_id = $3 RETURNING entite_id`,
			session.Email, int64Array(req.EntiteIDs), session.ContratClientID)
		var deactivated []int64
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var id int64
				rows.Scan(&id)
				deactivated = append(deactivated, id)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "deactivated": deactivated})
	}
}
