// Package auth derives the owner identity used to key remote state.
//
// The client receives an already-issued ID token from the sign-in flow
// (an external collaborator); verification happened server-side when the
// token was minted. Here the token is only parsed for its subject claim,
// which becomes the owner id for the document and blob stores.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSubject = errors.New("token has no subject claim")

// Session holds the signed-in owner, if any. Safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	ownerID string
}

// SignIn extracts the subject from token and makes it the current owner.
func (s *Session) SignIn(token string) error {
	ownerID, err := OwnerFromToken(token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ownerID = ownerID
	s.mu.Unlock()
	return nil
}

// SignInFromFile reads a token from path. A missing file leaves the
// session signed out without error, so cold starts work offline.
func (s *Session) SignInFromFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read token file: %w", err)
	}
	return s.SignIn(strings.TrimSpace(string(b)))
}

// OwnerID returns the current owner id, or "" when signed out.
func (s *Session) OwnerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerID
}

// SignOut forgets the owner.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.ownerID = ""
	s.mu.Unlock()
}

// OwnerFromToken parses a JWT without verifying its signature and returns
// the subject claim.
func OwnerFromToken(token string) (string, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("read subject: %w", err)
	}
	if sub == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}
