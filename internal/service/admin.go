package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/FitchII-cod/billiard-tracker/internal/config"
	"github.com/FitchII-cod/billiard-tracker/internal/constants"
	"github.com/FitchII-cod/billiard-tracker/internal/domain"
	"github.com/FitchII-cod/billiard-tracker/internal/rating"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired")
)

const pinHashKey = "admin_pin_hash"

// AdminService guards the administrative surface: PIN login with
// in-memory sessions, and settings updates. Setting changes take effect
// on the next engine construction; a running replay keeps its snapshot.
type AdminService struct {
	settings   *repository.SettingRepository
	audit      *repository.AuditRepository
	sessionTTL time.Duration
	logger     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]time.Time // token -> expiry
}

func NewAdminService(cfg *config.Config, settings *repository.SettingRepository, audit *repository.AuditRepository, logger zerolog.Logger) *AdminService {
	return &AdminService{
		settings:   settings,
		audit:      audit,
		sessionTTL: cfg.AdminSessionTTL,
		logger:     logger,
		sessions:   map[string]time.Time{},
	}
}

// Login checks the PIN against the hash stored in settings. The first
// ever login sets the PIN.
func (s *AdminService) Login(ctx context.Context, pin string) (token string, expiresIn time.Duration, err error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	hashed := hashPIN(pin)

	stored, err := s.settings.Get(ctx, pinHashKey)
	if errors.Is(err, repository.ErrSettingNotFound) {
		if err := s.settings.Upsert(ctx, pinHashKey, hashed); err != nil {
			return "", 0, err
		}
		stored = hashed
		s.logger.Info().Msg("admin PIN initialized on first login")
	} else if err != nil {
		return "", 0, err
	}

	if hashed != stored {
		s.logger.Warn().Msg("admin login rejected")
		return "", 0, ErrUnauthorized
	}

	token, err = gonanoid.New(constants.AdminTokenLength)
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate session token: %w", err)
	}

	s.mu.Lock()
	s.sessions[token] = time.Now().Add(s.sessionTTL)
	s.mu.Unlock()

	s.logger.Info().Msg("admin session created")
	return token, s.sessionTTL, nil
}

// Verify checks a session token, pruning it if expired.
func (s *AdminService) Verify(token string) error {
	if token == "" {
		return ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.sessions[token]
	if !ok {
		return ErrUnauthorized
	}
	if time.Now().After(expiry) {
		delete(s.sessions, token)
		return ErrSessionExpired
	}
	return nil
}

// UpdateSettings upserts the given keys. Rating knobs must parse as
// numbers; a bad value is rejected before anything is written.
func (s *AdminService) UpdateSettings(ctx context.Context, values map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	ratingKeys := rating.DefaultSettings()
	for key, value := range values {
		if _, isKnob := ratingKeys[key]; isKnob {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return fmt.Errorf("setting %s: invalid numeric value %q: %w", key, value, err)
			}
		}
	}

	for key, value := range values {
		if err := s.settings.Upsert(ctx, key, value); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode settings audit: %w", err)
	}
	v := string(raw)
	if err := s.audit.Insert(ctx, &domain.AuditLog{
		Action:     "update",
		EntityType: "settings",
		NewValue:   &v,
	}); err != nil {
		return err
	}

	s.logger.Info().Int("count", len(values)).Msg("settings updated")
	return nil
}

// ListAudit returns the most recent audit entries, newest first.
func (s *AdminService) ListAudit(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if limit <= 0 {
		limit = constants.AuditLogDefaultLimit
	}
	return s.audit.List(ctx, limit)
}

// SeedDefaults installs the default rating knobs for any missing keys.
// Called once at startup.
func (s *AdminService) SeedDefaults(ctx context.Context) error {
	return s.settings.SeedDefaults(ctx, rating.DefaultSettings())
}

func hashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}
