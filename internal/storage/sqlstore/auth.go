package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/julianstephens/tally/internal/auth"
	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
)

func (s *Store) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	if err := s.ready(); err != nil {
		return models.Session{}, err
	}
	if err := auth.ValidateSignUp(email, password); err != nil {
		return models.Session{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.Session{}, storage.NewError(storage.KindInternal, "failed to hash password", err)
	}

	user := models.User{ID: uuid.NewString(), Email: auth.NormalizeEmail(email)}
	_, err = s.exec(ctx, s.db,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Email, hash, timeArg(s.now()))
	if err != nil {
		return models.Session{}, s.classify(err, storage.MsgUserExists)
	}
	logger.Info("User signed up", "user_id", user.ID)
	return s.createSession(ctx, user)
}

func (s *Store) SignInWithPassword(ctx context.Context, email, password string) (models.Session, error) {
	if err := s.ready(); err != nil {
		return models.Session{}, err
	}
	var user models.User
	var hash string
	err := s.queryRow(ctx, s.db,
		"SELECT id, email, password_hash FROM users WHERE lower(email) = lower(?)",
		auth.NormalizeEmail(email)).Scan(&user.ID, &user.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, storage.NewError(storage.KindUnauthorized, storage.MsgInvalidCredentials, nil)
	}
	if err != nil {
		return models.Session{}, s.classify(err, "")
	}
	if !auth.CheckPassword(hash, password) {
		return models.Session{}, storage.NewError(storage.KindUnauthorized, storage.MsgInvalidCredentials, nil)
	}
	return s.createSession(ctx, user)
}

func (s *Store) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	return s.opts.OAuth.AuthURL(provider, redirectTo)
}

// RefreshSession rotates the refresh token. A token can be used once.
func (s *Store) RefreshSession(ctx context.Context, refreshToken string) (models.Session, error) {
	if err := s.ready(); err != nil {
		return models.Session{}, err
	}
	if refreshToken == "" {
		return models.Session{}, storage.NewError(storage.KindUnauthorized, storage.MsgInvalidRefreshToken, nil)
	}

	oldHash := auth.HashToken(refreshToken)
	var sessionID string
	var user models.User
	var expiresAt timestamp
	err := s.queryRow(ctx, s.db, `
		SELECT s.id, s.expires_at, u.id, u.email
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.refresh_token_hash = ?`, oldHash).Scan(&sessionID, &expiresAt, &user.ID, &user.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, storage.NewError(storage.KindUnauthorized, storage.MsgInvalidRefreshToken, nil)
	}
	if err != nil {
		return models.Session{}, s.classify(err, "")
	}

	now := s.now()
	if !now.Before(expiresAt.Time) {
		if _, err := s.exec(ctx, s.db, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
			logger.Warn("Failed to purge expired session", "session_id", sessionID, "error", err)
		}
		return models.Session{}, storage.NewError(storage.KindUnauthorized, storage.MsgInvalidRefreshToken, nil)
	}

	next, err := auth.NewRefreshToken()
	if err != nil {
		return models.Session{}, storage.NewError(storage.KindInternal, "failed to create session", err)
	}
	res, err := s.exec(ctx, s.db,
		"UPDATE sessions SET refresh_token_hash = ?, expires_at = ? WHERE id = ? AND refresh_token_hash = ?",
		auth.HashToken(next), timeArg(now.Add(s.opts.RefreshTTL)), sessionID, oldHash)
	if err != nil {
		return models.Session{}, s.classify(err, "")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost a race with another refresh of the same token.
		return models.Session{}, storage.NewError(storage.KindUnauthorized, storage.MsgInvalidRefreshToken, nil)
	}
	return s.sessionFor(user, sessionID, next)
}

// SignOut revokes the session behind the access token. An expired access
// token falls back to the refresh token.
func (s *Store) SignOut(ctx context.Context, session models.Session) error {
	if err := s.ready(); err != nil {
		return err
	}
	claims, verr := s.issuer.Verify(session.AccessToken)
	if verr == nil {
		_, err := s.exec(ctx, s.db, "DELETE FROM sessions WHERE id = ? AND user_id = ?", claims.SessionID, claims.Subject)
		return s.classify(err, "")
	}
	if session.RefreshToken != "" {
		_, err := s.exec(ctx, s.db, "DELETE FROM sessions WHERE refresh_token_hash = ?", auth.HashToken(session.RefreshToken))
		return s.classify(err, "")
	}
	return storage.NewError(storage.KindUnauthorized, storage.MsgSessionMissing, verr)
}

func (s *Store) VerifyAccessToken(ctx context.Context, token string) (models.User, error) {
	if err := s.ready(); err != nil {
		return models.User{}, err
	}
	if token == "" {
		return models.User{}, storage.NewError(storage.KindUnauthorized, storage.MsgSessionMissing, nil)
	}
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return models.User{}, storage.NewError(storage.KindUnauthorized, storage.MsgInvalidJWT, err)
	}
	return models.User{ID: claims.Subject, Email: claims.Email}, nil
}

// authorize resolves the session to its user for row scoping.
func (s *Store) authorize(ctx context.Context, session models.Session) (models.User, error) {
	if err := s.ready(); err != nil {
		return models.User{}, err
	}
	return s.VerifyAccessToken(ctx, session.AccessToken)
}

func (s *Store) createSession(ctx context.Context, user models.User) (models.Session, error) {
	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return models.Session{}, storage.NewError(storage.KindInternal, "failed to create session", err)
	}
	now := s.now()
	sessionID := uuid.NewString()
	_, err = s.exec(ctx, s.db,
		"INSERT INTO sessions (id, user_id, refresh_token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)",
		sessionID, user.ID, auth.HashToken(refresh), timeArg(now.Add(s.opts.RefreshTTL)), timeArg(now))
	if err != nil {
		return models.Session{}, s.classify(err, "")
	}
	return s.sessionFor(user, sessionID, refresh)
}

func (s *Store) sessionFor(user models.User, sessionID, refresh string) (models.Session, error) {
	access, expiresAt, err := s.issuer.Issue(user, sessionID)
	if err != nil {
		return models.Session{}, storage.NewError(storage.KindInternal, "failed to create session", err)
	}
	return models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}
