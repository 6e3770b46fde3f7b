// Package memory is an in-process backend used for local development and tests.
package memory

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
)

const defaultTokenTTL = time.Hour

type account struct {
	identity models.Identity
	hash     []byte
}

// Backend keeps identities, profiles and attendance in maps guarded by one mutex.
type Backend struct {
	mu         sync.RWMutex
	secret     []byte
	tokenTTL   time.Duration
	now        func() time.Time
	accounts   map[string]*account
	revoked    map[string]struct{}
	profiles   map[string]models.Profile
	order      []string
	attendance map[string]models.AttendanceRecord
}

var (
	_ backend.AuthGateway     = (*Backend)(nil)
	_ backend.IdentityDeleter = (*Backend)(nil)
	_ backend.ProfileStore    = (*Backend)(nil)
	_ backend.AttendanceStore = (*Backend)(nil)
)

// New creates an empty backend signing tokens with secret.
func New(secret []byte) *Backend {
	if len(secret) == 0 {
		secret = []byte(uuid.NewString())
	}
	return &Backend{
		secret:     secret,
		tokenTTL:   defaultTokenTTL,
		now:        time.Now,
		accounts:   make(map[string]*account),
		revoked:    make(map[string]struct{}),
		profiles:   make(map[string]models.Profile),
		attendance: make(map[string]models.AttendanceRecord),
	}
}

// WithClock overrides the clock used for token issue and expiry.
func (b *Backend) WithClock(now func() time.Time) *Backend {
	b.now = now
	return b
}

// SignIn checks the password and issues a session.
func (b *Backend) SignIn(_ context.Context, email, password string) (*models.Session, error) {
	b.mu.RLock()
	acc, ok := b.accounts[normalizeEmail(email)]
	b.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return nil, &backend.Error{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}
	return b.issue(acc.identity)
}

// SignUp registers the identity and signs it in immediately.
func (b *Backend) SignUp(_ context.Context, email, password string) (*models.Identity, *models.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, &backend.Error{Status: http.StatusBadRequest, Code: "validation_failed", Message: "Email and password are required"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	b.mu.Lock()
	if _, exists := b.accounts[email]; exists {
		b.mu.Unlock()
		return nil, nil, &backend.Error{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	}
	identity := models.Identity{ID: uuid.NewString(), Email: email}
	b.accounts[email] = &account{identity: identity, hash: hash}
	b.mu.Unlock()

	session, err := b.issue(identity)
	if err != nil {
		return nil, nil, err
	}
	return &identity, session, nil
}

// SignOut revokes the token.
func (b *Backend) SignOut(_ context.Context, accessToken string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[accessToken] = struct{}{}
	return nil
}

// User validates the token and returns its identity.
func (b *Backend) User(_ context.Context, accessToken string) (*models.Identity, error) {
	b.mu.RLock()
	_, revoked := b.revoked[accessToken]
	b.mu.RUnlock()
	if revoked {
		return nil, unauthorized()
	}

	claims, err := backend.ParseAccessToken(accessToken, b.secret)
	if err != nil {
		return nil, unauthorized()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, acc := range b.accounts {
		if acc.identity.ID == claims.Subject {
			identity := acc.identity
			return &identity, nil
		}
	}
	return nil, unauthorized()
}

// DeleteIdentity removes an account by id.
func (b *Backend) DeleteIdentity(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for email, acc := range b.accounts {
		if acc.identity.ID == id {
			delete(b.accounts, email)
			return nil
		}
	}
	return &backend.Error{Status: http.StatusNotFound, Code: "user_not_found", Message: "User not found"}
}

// ListByRole returns profiles of role in insertion order.
func (b *Backend) ListByRole(_ context.Context, role models.Role) ([]models.Profile, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Profile, 0, len(b.order))
	for _, id := range b.order {
		if p := b.profiles[id]; p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindByID returns one profile.
func (b *Backend) FindByID(_ context.Context, id string) (*models.Profile, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.profiles[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &p, nil
}

// Insert adds a profile; the id must be unused.
func (b *Backend) Insert(_ context.Context, profile *models.Profile) error {
	if profile == nil || profile.ID == "" {
		return &backend.Error{Status: http.StatusBadRequest, Code: "23502", Message: "null value in column \"id\""}
	}
	if !profile.Role.Valid() {
		return &backend.Error{Status: http.StatusBadRequest, Code: "23514", Message: "invalid role"}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.profiles[profile.ID]; exists {
		return &backend.Error{Status: http.StatusConflict, Code: "23505", Message: "duplicate key value violates unique constraint \"profiles_pkey\""}
	}
	b.profiles[profile.ID] = *profile
	b.order = append(b.order, profile.ID)
	return nil
}

// ListByDate returns the records of one date ordered by student.
func (b *Backend) ListByDate(_ context.Context, date string) ([]models.AttendanceRecord, error) {
	return b.filter(func(r models.AttendanceRecord) bool { return r.Date == date }), nil
}

// ListByStudent returns the history of one student ordered by date.
func (b *Backend) ListByStudent(_ context.Context, studentID string) ([]models.AttendanceRecord, error) {
	return b.filter(func(r models.AttendanceRecord) bool { return r.StudentID == studentID }), nil
}

// ListByDateRange returns records with from <= date <= to.
func (b *Backend) ListByDateRange(_ context.Context, from, to string) ([]models.AttendanceRecord, error) {
	return b.filter(func(r models.AttendanceRecord) bool { return r.Date >= from && r.Date <= to }), nil
}

// Upsert writes one record keyed by (student_id, date).
func (b *Backend) Upsert(ctx context.Context, record models.AttendanceRecord) error {
	return b.UpsertBatch(ctx, []models.AttendanceRecord{record})
}

// UpsertBatch validates every record before writing any.
func (b *Backend) UpsertBatch(_ context.Context, records []models.AttendanceRecord) error {
	for _, r := range records {
		if r.StudentID == "" || !r.Status.Valid() {
			return &backend.Error{Status: http.StatusBadRequest, Code: "23514", Message: "invalid attendance record"}
		}
		if _, err := models.ParseDate(r.Date); err != nil {
			return &backend.Error{Status: http.StatusBadRequest, Code: "22007", Message: "invalid input syntax for type date: \"" + r.Date + "\""}
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range records {
		b.attendance[r.Key()] = r
	}
	return nil
}

func (b *Backend) filter(keep func(models.AttendanceRecord) bool) []models.AttendanceRecord {
	b.mu.RLock()
	out := make([]models.AttendanceRecord, 0)
	for _, r := range b.attendance {
		if keep(r) {
			out = append(out, r)
		}
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}

func (b *Backend) issue(identity models.Identity) (*models.Session, error) {
	token, expiresAt, err := backend.SignAccessToken(identity.ID, identity.Email, b.secret, b.now(), b.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &models.Session{
		UserID:       identity.ID,
		Email:        identity.Email,
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    expiresAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func unauthorized() error {
	return &backend.Error{Status: http.StatusUnauthorized, Code: "bad_jwt", Message: "invalid JWT"}
}
