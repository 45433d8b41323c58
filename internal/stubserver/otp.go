package stubserver

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

const (
	otpTTL      = 5 * time.Minute
	otpCooldown = 30 * time.Second
)

var (
	errOTPCooldown  = errors.New("code already dispatched, wait before requesting another")
	errOTPMismatch  = errors.New("code does not match")
	errOTPNotIssued = errors.New("no code dispatched for this target")
)

type otpRecord struct {
	code     string
	issuedAt time.Time
	verified bool
}

// otpIssuer dispatches and checks one-time codes per target. Codes expire
// after otpTTL and reissue is throttled by otpCooldown.
type otpIssuer struct {
	mu      sync.Mutex
	records map[string]*otpRecord
	now     func() time.Time
}

func newOTPIssuer() *otpIssuer {
	return &otpIssuer{records: map[string]*otpRecord{}, now: time.Now}
}

func (o *otpIssuer) issue(target string) (string, error) {
	target = strings.ToLower(strings.TrimSpace(target))

	o.mu.Lock()
	defer o.mu.Unlock()

	if rec, ok := o.records[target]; ok && o.now().Sub(rec.issuedAt) < otpCooldown {
		return "", errOTPCooldown
	}

	code, err := randomCode(6)
	if err != nil {
		return "", err
	}
	o.records[target] = &otpRecord{code: code, issuedAt: o.now()}
	return code, nil
}

// check verifies a code without consuming it; register consumes. A match
// marks the target verified so the registration step can require it.
func (o *otpIssuer) check(target, code string) error {
	target = strings.ToLower(strings.TrimSpace(target))

	o.mu.Lock()
	defer o.mu.Unlock()

	rec, ok := o.records[target]
	if !ok || o.now().Sub(rec.issuedAt) > otpTTL {
		return errOTPNotIssued
	}
	if rec.code != strings.TrimSpace(code) {
		return errOTPMismatch
	}
	rec.verified = true
	return nil
}

// consume validates the code one final time and removes the record. The
// target must have passed check first.
func (o *otpIssuer) consume(target, code string) error {
	target = strings.ToLower(strings.TrimSpace(target))

	o.mu.Lock()
	defer o.mu.Unlock()

	rec, ok := o.records[target]
	if !ok || o.now().Sub(rec.issuedAt) > otpTTL {
		return errOTPNotIssued
	}
	if !rec.verified || rec.code != strings.TrimSpace(code) {
		return errOTPMismatch
	}
	delete(o.records, target)
	return nil
}

// lastCode exposes the dispatched code for a target. There is no real SMS
// or mail delivery here; tests and the demo log read the code this way.
func (o *otpIssuer) lastCode(target string) (string, bool) {
	target = strings.ToLower(strings.TrimSpace(target))

	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.records[target]
	if !ok {
		return "", false
	}
	return rec.code, true
}

func randomCode(digits int) (string, error) {
	var sb strings.Builder
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		sb.WriteString(n.String())
	}
	return sb.String(), nil
}
