package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/shophub-dev/storefront/internal/kv"
)

var (
	// ErrEmailNotVerified blocks login while a verification is pending
	// for the address in this session.
	ErrEmailNotVerified = errors.New("auth: email not verified")
	// ErrVerificationNotFound reports a confirm attempt for an address
	// with no pending code.
	ErrVerificationNotFound = errors.New("auth: no pending verification")
	// ErrCodeMismatch reports a wrong verification code.
	ErrCodeMismatch = errors.New("auth: invalid verification code")
)

// Pending codes live under one kv key as an email -> code map, the
// same shape the browser client kept in localStorage.

// BeginVerification issues a fresh six-digit code for the address and
// records it as pending. Issuing again replaces the previous code.
func (s *Session) BeginVerification(ctx context.Context, email string) (string, error) {
	codes, err := s.verificationCodes(ctx)
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", rand.IntN(1000000))
	codes[email] = code
	return code, s.saveVerificationCodes(ctx, codes)
}

// PendingCode returns the outstanding code for the address, if any.
func (s *Session) PendingCode(ctx context.Context, email string) (string, bool) {
	codes, err := s.verificationCodes(ctx)
	if err != nil {
		return "", false
	}
	code, ok := codes[email]
	return code, ok
}

// VerifyEmail confirms the code and clears the pending record, which
// unblocks login for the address.
func (s *Session) VerifyEmail(ctx context.Context, email, code string) error {
	codes, err := s.verificationCodes(ctx)
	if err != nil {
		return err
	}
	want, ok := codes[email]
	if !ok {
		return ErrVerificationNotFound
	}
	if want != code {
		return ErrCodeMismatch
	}
	delete(codes, email)
	return s.saveVerificationCodes(ctx, codes)
}

func (s *Session) verificationCodes(ctx context.Context) (map[string]string, error) {
	raw, err := s.kvs.Get(ctx, kv.KeyVerification)
	if errors.Is(err, kv.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	codes := map[string]string{}
	if err := json.Unmarshal(raw, &codes); err != nil {
		return map[string]string{}, nil
	}
	return codes, nil
}

func (s *Session) saveVerificationCodes(ctx context.Context, codes map[string]string) error {
	raw, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	return s.kvs.Set(ctx, kv.KeyVerification, raw)
}
