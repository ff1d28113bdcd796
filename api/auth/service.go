package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"RestoBackOffice/internal/logger"
	"RestoBackOffice/internal/serviceiface"
)

// UserSession is the read-only profile handed to the importers. The
// ContratClientID is the tenant every reference load and upsert is scoped
// to; nothing in the pipeline runs without it.
type UserSession struct {
	SessionID       string
	UserID          string
	Name            string
	Email           string
	Role            string
	ContratClientID string
	LastLoginTime   string
	ClientIP        string
	IsLoggedIn      bool
}

type AuthService struct {
	db       *sql.DB
	maxUsers int
	users    map[string]*UserSession
	byUserID map[string]*UserSession
	mu       sync.Mutex
	stopCh   chan struct{}
}

func NewAuthService(db *sql.DB, maxUsers int) serviceiface.Service {
	return &AuthService{
		db:       db,
		maxUsers: maxUsers,
		users:    make(map[string]*UserSession),
		byUserID: make(map[string]*UserSession),
		stopCh:   make(chan struct{}),
	}
}

func (a *AuthService) Name() string { return "auth" }

func (a *AuthService) Start() error {
	go a.sessionCleaner()
	return nil
}

func (a *AuthService) Stop() error {
	close(a.stopCh)
	return nil
}

func (a *AuthService) Login(username, password, clientIP string) (*UserSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, session := range a.users {
		if session.Email == username && session.IsLoggedIn {
			session.LastLoginTime = time.Now().Format(time.RFC3339)
			session.ClientIP = clientIP
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("User %s re-logged in, returning existing session", username))
			}
			return session, nil
		}
	}

	if len(a.users) >= a.maxUsers {
		return nil, errors.New("maximum concurrent users reached")
	}

	var (
		userID, name, email string
		role                sql.NullString
		contratClientID     sql.NullString
	)
	query := `
	SELECT
		u.utilisateur_id,
		u.nom,
		u.email,
		u.role,
		u.contrat_client_id
	FROM utilisateur u
	WHERE u.email = $1 AND u.mot_de_passe = crypt($2, u.mot_de_passe) AND u.actif = true
	`
	err := a.db.QueryRow(query, username, password).Scan(&userID, &name, &email, &role, &contratClientID)
	if err != nil {
		return nil, errors.New("invalid credentials or user not found")
	}

	session := &UserSession{
		SessionID:       uuid.New().String(),
		UserID:          userID,
		Name:            name,
		Email:           email,
		Role:            role.String,
		ContratClientID: contratClientID.String,
		LastLoginTime:   time.Now().Format(time.RFC3339),
		ClientIP:        clientIP,
		IsLoggedIn:      true,
	}
	a.users[session.SessionID] = session
	a.byUserID[userID] = session

	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("User logged in: " + username)
	}
	return session, nil
}

// RegisterSession adds a session created outside the password flow, such as
// one minted by an upstream identity provider.
func (a *AuthService) RegisterSession(s *UserSession) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[s.SessionID] = s
	a.byUserID[s.UserID] = s
}

func (a *AuthService) Logout(sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	session, exists := a.users[sessionID]
	if !exists {
		return errors.New("session not found")
	}
	delete(a.users, sessionID)
	delete(a.byUserID, session.UserID)

	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("User logged out: " + session.UserID)
	}
	return nil
}

func (a *AuthService) GetActiveSessions() []*UserSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	sessions := make([]*UserSession, 0, len(a.users))
	for _, s := range a.users {
		sessions = append(sessions, s)
	}
	return sessions
}

func (a *AuthService) SessionForUser(userID string) *UserSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.byUserID[userID]
}

func (a *AuthService) sessionCleaner() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			// session expiry can be added here
		}
	}
}

var globalAuthService *AuthService

// SetGlobalAuthService sets the global AuthService instance wired by the
// appmanager.
func SetGlobalAuthService(svc *AuthService) {
	globalAuthService = svc
}

// GetActiveSessions returns active sessions from the global AuthService.
func GetActiveSessions() []*UserSession {
	if globalAuthService == nil {
		return nil
	}
	return globalAuthService.GetActiveSessions()
}

// SessionForUser returns the active session of one user, or nil.
func SessionForUser(userID string) *UserSession {
	if globalAuthService == nil {
		return nil
	}
	return globalAuthService.SessionForUser(userID)
}
