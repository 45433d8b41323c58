package stubserver

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
)

var (
	errAccountExists   = errors.New("account already registered")
	errAccountNotFound = errors.New("account not found")
	errBadCredentials  = errors.New("invalid credentials")
)

type account struct {
	ID           string
	FullName     string
	Email        string
	Phone        string
	Gender       string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *account) profile() *domain.UserProfile {
	return &domain.UserProfile{
		ID:        a.ID,
		FullName:  a.FullName,
		Email:     a.Email,
		Phone:     a.Phone,
		Gender:    a.Gender,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// registry is the in-memory account and subscription book. All lookups by
// identifier are case-insensitive on email.
type registry struct {
	mu            sync.Mutex
	accounts      map[string]*account             // by id
	byIdentifier  map[string]string               // email or phone -> id
	subscriptions map[string][]domain.Subscription // by user id
}

func newRegistry() *registry {
	return &registry{
		accounts:      map[string]*account{},
		byIdentifier:  map[string]string{},
		subscriptions: map[string][]domain.Subscription{},
	}
}

type newAccount struct {
	FullName string
	Email    string
	Phone    string
	Gender   string
	Password string
}

func (r *registry) create(in newAccount) (*account, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ident := range []string{in.Email, in.Phone} {
		if ident == "" {
			continue
		}
		if _, taken := r.byIdentifier[ident]; taken {
			return nil, errAccountExists
		}
	}

	now := time.Now().UTC()
	acc := &account{
		ID:           uuid.NewString(),
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		Gender:       in.Gender,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.accounts[acc.ID] = acc
	for _, ident := range []string{acc.Email, acc.Phone} {
		if ident != "" {
			r.byIdentifier[ident] = acc.ID
		}
	}

	// Every fresh account gets a trial subscription so the client has
	// something to render.
	r.subscriptions[acc.ID] = []domain.Subscription{{
		ID:         uuid.NewString(),
		UserID:     acc.ID,
		PlanName:   "Trial",
		Status:     domain.SubscriptionActive,
		VisitsLeft: 3,
		StartsAt:   now,
		ExpiresAt:  now.Add(7 * 24 * time.Hour),
	}}
	return acc, nil
}

func (r *registry) authenticate(identifier, password string) (*account, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	r.mu.Lock()
	id, ok := r.byIdentifier[identifier]
	acc := r.accounts[id]
	r.mu.Unlock()

	if !ok || acc == nil {
		return nil, errBadCredentials
	}
	if bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) != nil {
		return nil, errBadCredentials
	}
	return acc, nil
}

func (r *registry) byID(id string) (*account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, errAccountNotFound
	}
	return acc, nil
}

func (r *registry) identifierTaken(identifier string) bool {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	r.mu.Lock()
	defer r.mu.Unlock()
	_, taken := r.byIdentifier[identifier]
	return taken
}

func (r *registry) changePassword(id, current, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[id]
	if !ok {
		return errAccountNotFound
	}
	if bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(current)) != nil {
		return errBadCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	acc.PasswordHash = hash
	acc.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *registry) delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[id]
	if !ok {
		return errAccountNotFound
	}
	delete(r.accounts, id)
	delete(r.subscriptions, id)
	for _, ident := range []string{acc.Email, acc.Phone} {
		if ident != "" {
			delete(r.byIdentifier, ident)
		}
	}
	return nil
}

func (r *registry) subscriptionsFor(userID string) []domain.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.subscriptions[userID]
	out := make([]domain.Subscription, len(subs))
	copy(out, subs)
	return out
}
