package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/salonbook/salonbook/libs/apperr"
	"github.com/salonbook/salonbook/libs/auth"
	"github.com/salonbook/salonbook/libs/db"
	"github.com/salonbook/salonbook/libs/events"
	"github.com/salonbook/salonbook/libs/httpx"
	"github.com/salonbook/salonbook/libs/outbox"
	"github.com/salonbook/salonbook/libs/phone"
	"github.com/salonbook/salonbook/libs/session"
	"github.com/salonbook/salonbook/libs/sms"
	"github.com/salonbook/salonbook/services/auth-service/internal/otp"
	"github.com/salonbook/salonbook/services/auth-service/internal/sessions"
	"github.com/salonbook/salonbook/services/auth-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	PhoneRegion string
	BcryptCost  int
}

type AuthHandler struct {
	signer  auth.Signer
	repo    *storage.Repository
	refresh *sessions.RefreshRepository
	outbox  *outbox.Repository
	otp     *otp.Store
	sms     sms.Sender
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time
}

func NewAuthHandler(
	signer auth.Signer,
	repo *storage.Repository,
	refresh *sessions.RefreshRepository,
	outboxRepo *outbox.Repository,
	otpStore *otp.Store,
	smsSender sms.Sender,
	logger *slog.Logger,
	cfg Config,
) *AuthHandler {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = phone.DefaultRegion
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthHandler{
		signer:  signer,
		repo:    repo,
		refresh: refresh,
		outbox:  outboxRepo,
		otp:     otpStore,
		sms:     smsSender,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (h *AuthHandler) Routes(r chi.Router) {
	r.Get("/.well-known/jwks.json", h.JWKS)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.Post("/otp/request", h.RequestOTP)
		r.Post("/otp/verify", h.VerifyOTP)
	})
}

// Register creates the salon and its owner in one transaction and signs the
// owner in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cfg.BcryptCost)
	if err != nil {
		httpx.WriteError(w, r, h.logger, apperr.Unexpected(fmt.Errorf("hash password: %w", err)))
		return
	}

	ctx := r.Context()
	user := storage.User{Email: req.Email, PasswordHash: string(hash), Role: string(session.RoleOwner)}
	var tokens tokenResponse
	err = db.InTx(ctx, h.repo.Conn(), func(tx pgx.Tx) error {
		tenantID, err := h.repo.CreateTenant(ctx, tx, req.BusinessName)
		if err != nil {
			return err
		}
		user.TenantID = tenantID
		if err := h.repo.CreateUser(ctx, tx, &user); err != nil {
			return err
		}
		evt, err := outbox.NewEvent(events.AggregateTenant, tenantID, tenantID, events.TenantRegistered, events.Tenant{
			TenantID:     tenantID,
			BusinessName: req.BusinessName,
			OwnerUserID:  user.ID,
			OwnerEmail:   user.Email,
			OccurredAt:   h.now().UTC(),
		})
		if err != nil {
			return apperr.Unexpected(err)
		}
		if err := h.outbox.Insert(ctx, tx, evt); err != nil {
			return apperr.Unexpected(fmt.Errorf("write %s: %w", events.TenantRegistered, err))
		}
		tokens, err = h.issue(ctx, tx, user.ID, tenantID, user.Role, "")
		return err
	})
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	h.logger.Info("tenant registered", "tenant_id", user.TenantID, "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, tokens)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	user, err := h.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			err = apperr.Unauthorized("invalid credentials")
		}
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httpx.WriteError(w, r, h.logger, apperr.Unauthorized("invalid credentials"))
		return
	}
	tokens, err := h.issue(r.Context(), h.repo.Conn(), user.ID, user.TenantID, user.Role, "")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokens)
}

// Refresh rotates the refresh token; the old one stops working.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	now := h.now()
	tok, next, err := h.refresh.Rotate(r.Context(), req.RefreshToken, now, now.Add(h.cfg.RefreshTTL))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	access, err := h.signer.Sign(auth.NewClaims(tok.Subject, tok.TenantID, tok.Role, tok.CustomerID, now, h.cfg.AccessTTL))
	if err != nil {
		httpx.WriteError(w, r, h.logger, apperr.Unexpected(err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: next,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.cfg.AccessTTL.Seconds()),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.refresh.Revoke(r.Context(), req.RefreshToken); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := bearer(r)
	if !ok {
		httpx.WriteError(w, r, h.logger, apperr.Unauthorized("missing bearer token"))
		return
	}
	claims, err := h.signer.Verify(token)
	if err != nil {
		httpx.WriteError(w, r, h.logger, apperr.Unauthorized("invalid token"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{
		UserID:     claims.Subject,
		TenantID:   claims.TenantID,
		Role:       claims.Role,
		CustomerID: claims.CustomerID,
	})
}

func (h *AuthHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	keys := h.signer.JWKS()
	if keys == nil {
		keys = []auth.JWK{}
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// RequestOTP texts a login code to a customer of the tenant.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	normalized, err := phone.Normalize(req.Phone, h.cfg.PhoneRegion)
	if err != nil {
		httpx.WriteError(w, r, h.logger, apperr.Validation("phone is not a valid number"))
		return
	}
	ok, err := h.repo.TenantExists(r.Context(), req.TenantID)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if !ok {
		httpx.WriteError(w, r, h.logger, apperr.NotFound("tenant"))
		return
	}

	code, err := h.otp.Issue(r.Context(), req.TenantID, normalized)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	if err := h.sms.Send(r.Context(), normalized, "Your SalonBook code is "+code); err != nil {
		if relErr := h.otp.Release(r.Context(), req.TenantID, normalized); relErr != nil {
			h.logger.Warn("otp release failed", "tenant_id", req.TenantID, "err", relErr)
		}
		httpx.WriteError(w, r, h.logger, apperr.Unexpected(fmt.Errorf("send otp via %s: %w", h.sms.ProviderID(), err)))
		return
	}
	h.logger.Info("otp sent", "tenant_id", req.TenantID, "phone", phone.Mask(normalized), "provider", h.sms.ProviderID())
	httpx.WriteJSON(w, http.StatusAccepted, map[string]int{"expires_in": int(otp.DefaultTTL.Seconds())})
}

// VerifyOTP exchanges a valid code for a customer session.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	normalized, err := phone.Normalize(req.Phone, h.cfg.PhoneRegion)
	if err != nil {
		httpx.WriteError(w, r, h.logger, apperr.Validation("phone is not a valid number"))
		return
	}
	if err := h.otp.Verify(r.Context(), req.TenantID, normalized, req.Code); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	customerID, err := h.repo.FindOrCreateCustomer(r.Context(), req.TenantID, normalized)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	tokens, err := h.issue(r.Context(), h.repo.Conn(), customerID, req.TenantID, string(session.RoleCustomer), customerID)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) issue(ctx context.Context, q db.Querier, subject, tenantID, role, customerID string) (tokenResponse, error) {
	now := h.now()
	access, err := h.signer.Sign(auth.NewClaims(subject, tenantID, role, customerID, now, h.cfg.AccessTTL))
	if err != nil {
		return tokenResponse{}, apperr.Unexpected(fmt.Errorf("sign access token: %w", err))
	}
	refresh, err := h.refresh.Create(ctx, q, sessions.RefreshToken{
		Subject:    subject,
		TenantID:   tenantID,
		Role:       role,
		CustomerID: customerID,
		ExpiresAt:  now.Add(h.cfg.RefreshTTL),
	})
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.cfg.AccessTTL.Seconds()),
	}, nil
}

func bearer(r *http.Request) (string, bool) {
	raw := r.Header.Get("Authorization")
	if !strings.HasPrefix(raw, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	return token, token != ""
}
