package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// ErrQRTokenInvalid covers every rejection path: unknown token, wrong table,
// expired, or already redeemed. Callers get no hint which one failed.
var ErrQRTokenInvalid = errors.New("invalid or expired QR token")

const qrTokenTTL = 24 * time.Hour

type qrToken struct {
	tableNumber int
	expiresAt   time.Time
}

// QRTokenService issues and redeems the single-use tokens embedded in table
// QR codes. Tokens are random, expire after 24 hours and are deleted on
// first redemption, so a photographed QR code cannot be replayed.
type QRTokenService struct {
	mu       sync.Mutex
	tokens   map[string]qrToken
	ttl      time.Duration
	stopChan chan struct{}
}

func NewQRTokenService() *QRTokenService {
	return &QRTokenService{
		tokens:   make(map[string]qrToken),
		ttl:      qrTokenTTL,
		stopChan: make(chan struct{}),
	}
}

// Issue creates a fresh token bound to one table.
func (s *QRTokenService) Issue(tableNumber int) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = qrToken{
		tableNumber: tableNumber,
		expiresAt:   time.Now().Add(s.ttl),
	}
	return token, nil
}

// Redeem consumes a token. It succeeds at most once per issued token.
func (s *QRTokenService) Redeem(tableNumber int, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return ErrQRTokenInvalid
	}
	if entry.tableNumber != tableNumber || time.Now().After(entry.expiresAt) {
		delete(s.tokens, token)
		return ErrQRTokenInvalid
	}
	delete(s.tokens, token)
	return nil
}

// StartCleanup sweeps expired tokens periodically until Stop is called.
func (s *QRTokenService) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				return
			}
		}
	}()
}

func (s *QRTokenService) Stop() {
	close(s.stopChan)
}

func (s *QRTokenService) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for token, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, token)
		}
	}
}
