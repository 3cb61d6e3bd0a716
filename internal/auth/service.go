// Package auth はメールアドレスとパスワードによるログイン、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cynco/irportal/internal/model"
	"github.com/cynco/irportal/internal/repository"
)

// ErrInvalidCredentials はログイン失敗を表す。未登録とパスワード不一致を区別しない。
var ErrInvalidCredentials = errors.New("invalid credentials")

// ログイン結果のラベル。
const (
	LoginSucceeded = "success"
	LoginRejected  = "invalid_credentials"
	LoginErrored   = "error"
)

// LoginRecorder はログイン試行の結果を記録する。
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionTTL  time.Duration // セッション有効期間（作成時刻から固定）
	DummySecret Secret        // 未登録メールアドレスでの照合に使う
	Recorder    LoginRecorder
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	credentials CredentialStore
	principals  repository.PrincipalRepository
	sessions    repository.SessionRepository
	codec       *SessionCodec
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	credentials CredentialStore,
	principals repository.PrincipalRepository,
	sessions repository.SessionRepository,
	codec *SessionCodec,
	config ServiceConfig,
) *Service {
	if config.DummySecret == nil {
		config.DummySecret = NewDummySecret(HashingBcrypt)
	}
	return &Service{
		credentials: credentials,
		principals:  principals,
		sessions:    sessions,
		codec:       codec,
		config:      config,
		now:         time.Now,
	}
}

// SessionTTL はセッションの有効期間を返す。
func (s *Service) SessionTTL() time.Duration {
	return s.config.SessionTTL
}

// Login は認証情報を検証し、利用者をupsertしてセッションを発行する。
// 空の入力、未登録のメールアドレス、パスワード不一致はすべてErrInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Principal, *model.Session, error) {
	if email == "" || password == "" {
		s.record(LoginRejected)
		return nil, nil, ErrInvalidCredentials
	}

	normalized := NormalizeEmail(email)
	cred, err := s.credentials.Lookup(ctx, normalized)
	if err != nil {
		s.record(LoginErrored)
		return nil, nil, fmt.Errorf("failed to look up credential: %w", err)
	}
	if cred == nil {
		s.config.DummySecret.Verify(password)
		s.record(LoginRejected)
		slog.Warn("login failed", slog.String("reason", "unknown_account"))
		return nil, nil, ErrInvalidCredentials
	}
	if !cred.Secret.Verify(password) {
		s.record(LoginRejected)
		slog.Warn("login failed",
			slog.String("reason", "secret_mismatch"),
			slog.String("principal_id", cred.Principal.ID),
		)
		return nil, nil, ErrInvalidCredentials
	}

	p := cred.Principal
	principal, err := s.principals.Upsert(ctx, &p)
	if err != nil {
		s.record(LoginErrored)
		return nil, nil, fmt.Errorf("failed to upsert principal: %w", err)
	}

	session, err := s.createSession(ctx, principal.ID)
	if err != nil {
		s.record(LoginErrored)
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.record(LoginSucceeded)
	slog.Info("login succeeded",
		slog.String("principal_id", principal.ID),
		slog.String("role", string(principal.Role)),
	)
	return principal, session, nil
}

// SessionToken はセッションをCookie値に変換する。
func (s *Service) SessionToken(session *model.Session) (string, error) {
	return s.codec.Encode(session)
}

// Load はCookie値からセッションを復元し、対応する利用者を返す。
// 署名不正、期限切れ、セッションや利用者の欠落はいずれもnil, nilを返す。
func (s *Service) Load(ctx context.Context, cookieValue string) (*model.Principal, error) {
	if cookieValue == "" {
		return nil, nil
	}

	sessionID, err := s.codec.Decode(cookieValue)
	if err != nil {
		slog.Debug("rejected session cookie", slog.String("error", err.Error()))
		return nil, nil
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	principal, err := s.principals.FindByID(ctx, session.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal: %w", err)
	}
	return principal, nil
}

// Logout はセッションを破棄する。Cookieが無効な場合は何もしない。
func (s *Service) Logout(ctx context.Context, cookieValue string) error {
	if cookieValue == "" {
		return nil
	}

	sessionID, err := s.codec.Decode(cookieValue)
	if err != nil {
		return nil
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("logout")
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, principalID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:          sessionID,
		PrincipalID: principalID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.config.SessionTTL),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func (s *Service) record(outcome string) {
	if s.config.Recorder != nil {
		s.config.Recorder.RecordLogin(outcome)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
