package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/vnkhanh/studyflash-backend/models"
	"github.com/vnkhanh/studyflash-backend/utils"
)

// OAuthProvider là một nhà cung cấp đăng nhập mạng xã hội.
type OAuthProvider interface {
	ID() string
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*ProviderProfile, error)
}

type AuthOptions struct {
	Secret           []byte
	BaseURL          string
	TrustedOrigins   []string
	SessionTTL       time.Duration
	SessionUpdateAge time.Duration
	StateTTL         time.Duration
}

// AuthService quản lý luồng OAuth, account và session, lưu trong cùng database.
type AuthService struct {
	db        *gorm.DB
	opts      AuthOptions
	providers map[string]OAuthProvider
	clock     func() time.Time
}

func NewAuthService(db *gorm.DB, opts AuthOptions, providers ...OAuthProvider) *AuthService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.SessionUpdateAge <= 0 {
		opts.SessionUpdateAge = 24 * time.Hour
	}
	if opts.StateTTL <= 0 {
		opts.StateTTL = 10 * time.Minute
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	s := &AuthService{
		db:        db,
		opts:      opts,
		providers: make(map[string]OAuthProvider, len(providers)),
		clock:     func() time.Time { return time.Now().UTC() },
	}
	for _, p := range providers {
		s.providers[p.ID()] = p
	}
	return s
}

func (s *AuthService) SessionTTL() time.Duration { return s.opts.SessionTTL }

// SocialSignInInput là body của POST /sign-in/social.
type SocialSignInInput struct {
	Provider           string `json:"provider"`
	CallbackURL        string `json:"callbackURL"`
	ErrorCallbackURL   string `json:"errorCallbackURL"`
	NewUserCallbackURL string `json:"newUserCallbackURL"`
	DisableRedirect    bool   `json:"disableRedirect"`
}

type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type SignInResult struct {
	Session     *models.Session
	User        *models.User
	RedirectURL string
	NewUser     bool
}

// SessionWithUser là kết quả của get-session.
type SessionWithUser struct {
	Session models.Session `json:"session"`
	User    models.User    `json:"user"`
	// Refreshed báo expires_at vừa được gia hạn trong lần đọc này.
	Refreshed bool `json:"-"`
}

// statePayload được lưu trong verification.value.
type statePayload struct {
	CodeVerifier       string `json:"codeVerifier"`
	CallbackURL        string `json:"callbackURL"`
	ErrorCallbackURL   string `json:"errorCallbackURL,omitempty"`
	NewUserCallbackURL string `json:"newUserCallbackURL,omitempty"`
}

// BeginSocialSignIn tạo state + PKCE verifier và trả về URL authorize của nhà cung cấp.
func (s *AuthService) BeginSocialSignIn(ctx context.Context, in SocialSignInInput) (string, error) {
	provider, ok := s.providers[in.Provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, in.Provider)
	}

	payload := statePayload{
		CodeVerifier:       oauth2.GenerateVerifier(),
		CallbackURL:        defaultString(in.CallbackURL, "/"),
		ErrorCallbackURL:   in.ErrorCallbackURL,
		NewUserCallbackURL: in.NewUserCallbackURL,
	}
	for _, u := range []string{payload.CallbackURL, payload.ErrorCallbackURL, payload.NewUserCallbackURL} {
		if u != "" && !s.AllowedRedirect(u) {
			return "", fmt.Errorf("%w: %q", ErrInvalidCallbackURL, u)
		}
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	now := s.clock()
	verification := models.Verification{
		Identifier: "oauth-state:" + provider.ID(),
		Value:      string(value),
		ExpiresAt:  now.Add(s.opts.StateTTL),
	}
	if err := s.db.WithContext(ctx).Create(&verification).Error; err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}

	state, err := utils.GenerateStateToken(s.opts.Secret, verification.ID, provider.ID(), now, s.opts.StateTTL)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return provider.AuthCodeURL(state, payload.CodeVerifier), nil
}

// CompleteSocialSignIn xử lý callback: kiểm tra state (dùng một lần), đổi code lấy token,
// đọc profile, tạo/liên kết user + account và mở session mới.
// Lỗi luôn có kiểu *CallbackError.
func (s *AuthService) CompleteSocialSignIn(ctx context.Context, providerID, state, code string, client ClientInfo) (*SignInResult, error) {
	payload, err := s.consumeState(ctx, providerID, state)
	if err != nil {
		errorURL := ""
		if payload != nil {
			errorURL = payload.ErrorCallbackURL
		}
		return nil, &CallbackError{Err: err, ErrorURL: errorURL}
	}

	fail := func(err error) (*SignInResult, error) {
		return nil, &CallbackError{Err: err, ErrorURL: payload.ErrorCallbackURL}
	}

	if strings.TrimSpace(code) == "" {
		return fail(fmt.Errorf("%w: missing code", ErrProviderExchange))
	}

	provider := s.providers[providerID]
	token, err := provider.Exchange(ctx, code, payload.CodeVerifier)
	if err != nil {
		return fail(err)
	}
	profile, err := provider.FetchProfile(ctx, token)
	if err != nil {
		return fail(err)
	}

	var result *SignInResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, isNew, err := s.upsertUserAccount(tx, providerID, profile, token)
		if err != nil {
			return err
		}
		session, err := s.createSession(tx, user.ID, client)
		if err != nil {
			return err
		}
		result = &SignInResult{Session: session, User: user, NewUser: isNew}
		return nil
	})
	if err != nil {
		return fail(fmt.Errorf("persist sign-in: %w", err))
	}

	result.RedirectURL = payload.CallbackURL
	if result.NewUser && payload.NewUserCallbackURL != "" {
		result.RedirectURL = payload.NewUserCallbackURL
	}
	return result, nil
}

// consumeState xác thực JWT state rồi xóa bản ghi verification tương ứng.
// payload được trả về khi đọc được, kể cả lúc state đã hết hạn.
func (s *AuthService) consumeState(ctx context.Context, providerID, state string) (*statePayload, error) {
	if _, ok := s.providers[providerID]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, providerID)
	}

	now := s.clock()
	claims, err := utils.VerifyStateToken(s.opts.Secret, state, now)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrStateExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Provider != providerID {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	var verification models.Verification
	if err := s.db.WithContext(ctx).First(&verification, "id = ?", claims.VerificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown or used state", ErrInvalidState)
		}
		return nil, err
	}

	res := s.db.WithContext(ctx).Where("id = ?", verification.ID).Delete(&models.Verification{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, fmt.Errorf("%w: state already used", ErrInvalidState)
	}

	var payload statePayload
	if err := json.Unmarshal([]byte(verification.Value), &payload); err != nil {
		return nil, fmt.Errorf("%w: corrupt state payload", ErrInvalidState)
	}
	if verification.ExpiresAt.Before(now) {
		return &payload, ErrStateExpired
	}
	return &payload, nil
}

// AbandonSocialSignIn hủy state khi nhà cung cấp trả về lỗi (vd. access_denied) và
// trả về errorCallbackURL đã lưu cùng state, rỗng nếu state không đọc được.
func (s *AuthService) AbandonSocialSignIn(ctx context.Context, providerID, state string) string {
	if state == "" {
		return ""
	}
	payload, err := s.consumeState(ctx, providerID, state)
	if payload == nil {
		if err != nil {
			log.Printf("Không đọc được state khi hủy đăng nhập %s: %v", providerID, err)
		}
		return ""
	}
	return payload.ErrorCallbackURL
}

func (s *AuthService) upsertUserAccount(tx *gorm.DB, providerID string, profile *ProviderProfile, token *oauth2.Token) (*models.User, bool, error) {
	now := s.clock()
	var user models.User
	isNew := false

	var account models.Account
	err := tx.Where("provider_id = ? AND account_id = ?", providerID, profile.ID).First(&account).Error
	switch {
	case err == nil:
		if err := tx.First(&user, "id = ?", account.UserID).Error; err != nil {
			return nil, false, fmt.Errorf("load user: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		lookup := tx.Where("email = ?", strings.ToLower(profile.Email)).Limit(1).Find(&user)
		if lookup.Error != nil {
			return nil, false, lookup.Error
		}
		if lookup.RowsAffected == 0 {
			user = models.User{
				Name:          defaultString(profile.Name, profile.Login),
				Email:         strings.ToLower(profile.Email),
				EmailVerified: profile.EmailVerified,
				Image:         optionalString(profile.AvatarURL),
			}
			if err := tx.Create(&user).Error; err != nil {
				return nil, false, fmt.Errorf("create user: %w", err)
			}
			isNew = true
		} else if !profile.EmailVerified {
			// Chỉ liên kết vào user có sẵn khi GitHub xác nhận email.
			return nil, false, fmt.Errorf("%w: email not verified for account linking", ErrProviderProfile)
		}
		account = models.Account{UserID: user.ID, AccountID: profile.ID, ProviderID: providerID}
	default:
		return nil, false, err
	}

	account.AccessToken = optionalString(token.AccessToken)
	account.RefreshToken = optionalString(token.RefreshToken)
	if idToken, ok := token.Extra("id_token").(string); ok {
		account.IDToken = optionalString(idToken)
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		account.AccessTokenExpiresAt = &expiry
	}
	if scope, ok := token.Extra("scope").(string); ok {
		account.Scope = optionalString(scope)
	}
	account.UpdatedAt = now

	if err := tx.Save(&account).Error; err != nil {
		return nil, false, fmt.Errorf("save account: %w", err)
	}
	return &user, isNew, nil
}

func (s *AuthService) createSession(tx *gorm.DB, userID string, client ClientInfo) (*models.Session, error) {
	token, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	session := models.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(s.opts.SessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
		IPAddress: optionalString(client.IPAddress),
		UserAgent: optionalString(client.UserAgent),
	}
	if err := tx.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

// GetSession trả về session còn hạn cùng user. Session quá SessionUpdateAge kể từ lần
// gia hạn trước được kéo dài thêm SessionTTL.
func (s *AuthService) GetSession(ctx context.Context, token string) (*SessionWithUser, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	db := s.db.WithContext(ctx)

	var session models.Session
	if err := db.Preload("User").First(&session, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	now := s.clock()
	if session.Expired(now) {
		if err := db.Where("id = ?", session.ID).Delete(&models.Session{}).Error; err != nil {
			log.Printf("Lỗi khi xóa session hết hạn %s: %v", session.ID, err)
		}
		return nil, ErrSessionNotFound
	}
	if session.User == nil {
		return nil, ErrSessionNotFound
	}

	refreshed := false
	refreshAt := session.ExpiresAt.Add(-s.opts.SessionTTL).Add(s.opts.SessionUpdateAge)
	if !now.Before(refreshAt) {
		session.ExpiresAt = now.Add(s.opts.SessionTTL)
		err := db.Model(&models.Session{}).Where("id = ?", session.ID).
			Updates(map[string]interface{}{"expires_at": session.ExpiresAt, "updated_at": now}).Error
		if err != nil {
			return nil, fmt.Errorf("refresh session: %w", err)
		}
		session.UpdatedAt = now
		refreshed = true
	}

	user := *session.User
	session.User = nil
	return &SessionWithUser{Session: session, User: user, Refreshed: refreshed}, nil
}

// SignOut xóa session theo token; token không tồn tại không phải lỗi.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, s.clock()).
		Order("created_at desc").
		Find(&sessions).Error
	return sessions, err
}

// RevokeSession xóa một session của chính user đó.
func (s *AuthService) RevokeSession(ctx context.Context, userID, token string) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND token = ?", userID, token).Delete(&models.Session{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeOtherSessions xóa mọi session của user trừ session đang dùng.
func (s *AuthService) RevokeOtherSessions(ctx context.Context, userID, currentToken string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND token <> ?", userID, currentToken).
		Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

// AllowedRedirect chấp nhận đường dẫn tương đối ("/dashboard") hoặc URL tuyệt đối
// có origin là BaseURL hay một trusted origin.
func (s *AuthService) AllowedRedirect(raw string) bool {
	if strings.HasPrefix(raw, "/") {
		return !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	origin := u.Scheme + "://" + u.Host
	if origin == originOf(s.opts.BaseURL) {
		return true
	}
	for _, trusted := range s.opts.TrustedOrigins {
		if origin == originOf(trusted) {
			return true
		}
	}
	return false
}

// ResolveRedirect biến đường dẫn tương đối thành URL tuyệt đối theo BaseURL.
func (s *AuthService) ResolveRedirect(raw string) string {
	if strings.HasPrefix(raw, "/") {
		return s.opts.BaseURL + raw
	}
	return raw
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func optionalString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
