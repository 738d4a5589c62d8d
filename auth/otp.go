// Package auth implements the simulated one-time-code login. Codes are
// shown to the caller instead of being sent by SMS, and a fixed bypass
// code always works, so this is a demo flow and not real verification.
package auth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/rkayurveda/storefront/commerce"
	"github.com/rkayurveda/storefront/core"
)

const (
	keyPrefix   = "otp:"
	phoneDigits = 10

	DefaultAdminPhone = "9730593982"
	DefaultBypassCode = "1234"
	DefaultCodeTTL    = 5 * time.Minute
)

// Service issues and verifies login codes
type Service struct {
	memory     core.Memory
	adminPhone string
	bypassCode string
	ttl        time.Duration
	logger     core.Logger
	newCode    func() string
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger core.Logger) Option {
	return func(s *Service) { s.logger = core.ComponentLogger(logger, "auth") }
}

// WithCodeGenerator replaces the random 4-digit generator
func WithCodeGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newCode = gen
		}
	}
}

// NewService creates a login service storing codes in memory. Empty
// fields in cfg fall back to the package defaults.
func NewService(memory core.Memory, cfg core.StoreConfig, opts ...Option) *Service {
	s := &Service{
		memory:     memory,
		adminPhone: cfg.AdminPhone,
		bypassCode: cfg.BypassCode,
		ttl:        cfg.OTPTTL,
		logger:     &core.NoOpLogger{},
		newCode:    RandomCode,
	}
	if s.adminPhone == "" {
		s.adminPhone = DefaultAdminPhone
	}
	if s.bypassCode == "" {
		s.bypassCode = DefaultBypassCode
	}
	if s.ttl <= 0 {
		s.ttl = DefaultCodeTTL
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RandomCode returns a 4-digit code in [1000, 9999]
func RandomCode() string {
	return strconv.Itoa(1000 + rand.IntN(9000))
}

// NormalizePhone keeps the digits of phone and returns the last ten.
// Fewer than ten digits is ErrInvalidPhone.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < phoneDigits {
		return "", &core.StoreError{Op: "auth.NormalizePhone", Kind: "validation", Message: fmt.Sprintf("phone must have at least %d digits", phoneDigits), Err: core.ErrInvalidPhone}
	}
	return digits[len(digits)-phoneDigits:], nil
}

// RequestCode issues a new code for phone and returns it so the caller
// can display it. A previous code for the same phone is replaced.
func (s *Service) RequestCode(ctx context.Context, phone string) (string, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}

	code := s.newCode()
	if err := s.memory.Set(ctx, keyPrefix+normalized, code, s.ttl); err != nil {
		s.logger.Error("Failed to store login code", map[string]interface{}{
			"operation": "request_code",
			"error":     err.Error(),
		})
		return "", fmt.Errorf("failed to store login code: %w", err)
	}

	s.logger.Info("Login code issued", map[string]interface{}{
		"operation": "request_code",
		"phone":     mask(normalized),
		"ttl_s":     s.ttl.Seconds(),
	})
	return code, nil
}

// VerifyCode accepts the stored code or the bypass code and returns the
// identity for phone. Any other code is ErrInvalidCode.
func (s *Service) VerifyCode(ctx context.Context, phone, code string) (commerce.Identity, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return commerce.Identity{}, err
	}
	key := keyPrefix + normalized

	stored, err := s.memory.Get(ctx, key)
	if err != nil {
		return commerce.Identity{}, fmt.Errorf("failed to read login code: %w", err)
	}

	code = strings.TrimSpace(code)
	matched := code != "" && (code == stored || code == s.bypassCode)
	if !matched {
		s.logger.Warn("Login code rejected", map[string]interface{}{
			"operation": "verify_code",
			"phone":     mask(normalized),
		})
		return commerce.Identity{}, &core.StoreError{Op: "auth.VerifyCode", Kind: "auth", Err: core.ErrInvalidCode}
	}

	if err := s.memory.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete used login code", map[string]interface{}{
			"operation": "verify_code",
			"error":     err.Error(),
		})
	}

	identity := s.identityFor(normalized)
	s.logger.Info("Login code verified", map[string]interface{}{
		"operation": "verify_code",
		"phone":     mask(normalized),
		"role":      string(identity.Role),
		"bypass":    code != stored,
	})
	return identity, nil
}

func (s *Service) identityFor(phone string) commerce.Identity {
	if phone == s.adminPhone {
		return commerce.Identity{
			ID:    phone,
			Name:  "Radhe Krishna Admin",
			Phone: phone,
			Email: "admin@rk.com",
			Role:  commerce.RoleAdmin,
			Addresses: []commerce.Address{{
				ID:          "addr1",
				Name:        "Radhe Krishna Store",
				Phone:       s.adminPhone,
				AddressLine: "Kasare, Dhule",
				City:        "Dhule",
				State:       "Maharashtra",
				Pincode:     "424001",
				Default:     true,
			}},
		}
	}
	return commerce.Identity{
		ID:        phone,
		Name:      "New Customer",
		Phone:     phone,
		Role:      commerce.RoleCustomer,
		Addresses: []commerce.Address{},
	}
}

func mask(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
