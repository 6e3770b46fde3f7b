package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
)

var errStoreDown = errors.New("store unavailable")

type fakeProfiles struct {
	mu        sync.Mutex
	profiles  []models.Profile
	listErr   error
	findErr   error
	insertErr error
	inserted  []models.Profile
}

func (f *fakeProfiles) ListByRole(_ context.Context, role models.Role) ([]models.Profile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Profile, 0)
	for _, p := range f.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProfiles) FindByID(_ context.Context, id string) (*models.Profile, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, p := range f.profiles {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, backend.ErrNotFound
}

func (f *fakeProfiles) Insert(_ context.Context, profile *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *profile)
	f.profiles = append(f.profiles, *profile)
	return nil
}

type fakeAttendance struct {
	mu       sync.Mutex
	records  []models.AttendanceRecord
	listErr  error
	writeErr error
	upserts  []models.AttendanceRecord
	batches  [][]models.AttendanceRecord
}

func (f *fakeAttendance) ListByDate(_ context.Context, date string) ([]models.AttendanceRecord, error) {
	return f.filter(func(r models.AttendanceRecord) bool { return r.Date == date })
}

func (f *fakeAttendance) ListByStudent(_ context.Context, studentID string) ([]models.AttendanceRecord, error) {
	return f.filter(func(r models.AttendanceRecord) bool { return r.StudentID == studentID })
}

func (f *fakeAttendance) ListByDateRange(_ context.Context, from, to string) ([]models.AttendanceRecord, error) {
	return f.filter(func(r models.AttendanceRecord) bool { return r.Date >= from && r.Date <= to })
}

func (f *fakeAttendance) Upsert(_ context.Context, record models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.upserts = append(f.upserts, record)
	f.put(record)
	return nil
}

func (f *fakeAttendance) UpsertBatch(_ context.Context, records []models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.batches = append(f.batches, append([]models.AttendanceRecord(nil), records...))
	for _, r := range records {
		f.put(r)
	}
	return nil
}

func (f *fakeAttendance) put(record models.AttendanceRecord) {
	for i, r := range f.records {
		if r.Key() == record.Key() {
			f.records[i] = record
			return
		}
	}
	f.records = append(f.records, record)
}

func (f *fakeAttendance) filter(keep func(models.AttendanceRecord) bool) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.AttendanceRecord, 0)
	for _, r := range f.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeGateway struct {
	signInSession *models.Session
	signInErr     error
	signUpID      *models.Identity
	signUpSession *models.Session
	signUpErr     error
	signUps       []string
	signOuts      []string
	userErr       error
	userCalls     int
}

func (f *fakeGateway) SignIn(context.Context, string, string) (*models.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	s := *f.signInSession
	return &s, nil
}

func (f *fakeGateway) SignUp(_ context.Context, email, password string) (*models.Identity, *models.Session, error) {
	f.signUps = append(f.signUps, email+":"+password)
	if f.signUpErr != nil {
		return nil, nil, f.signUpErr
	}
	return f.signUpID, f.signUpSession, nil
}

func (f *fakeGateway) SignOut(_ context.Context, accessToken string) error {
	f.signOuts = append(f.signOuts, accessToken)
	return nil
}

func (f *fakeGateway) User(context.Context, string) (*models.Identity, error) {
	f.userCalls++
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.signUpID, nil
}

type deletingGateway struct {
	fakeGateway
	deleted []string
}

func (d *deletingGateway) DeleteIdentity(_ context.Context, id string) error {
	d.deleted = append(d.deleted, id)
	return nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]models.Session)}
}

func (f *fakeSessions) Save(_ context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = *session
	return nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, appErrors.ErrSessionNotFound
	}
	return &s, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

type fakeLocks struct {
	mu       sync.Mutex
	held     map[string]string
	released []string
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]string)}
}

func (f *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.held[key]; ok {
		return "", false, nil
	}
	f.held[key] = "token-" + key
	return f.held[key], true, nil
}

func (f *fakeLocks) Release(_ context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] == token {
		delete(f.held, key)
		f.released = append(f.released, key)
	}
	return nil
}

type fakeMail struct {
	queued []EnrollmentMail
}

func (f *fakeMail) QueueEnrollment(mail EnrollmentMail) error {
	f.queued = append(f.queued, mail)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func student(id, name string) models.Profile {
	return models.Profile{ID: id, Role: models.RoleStudent, Name: name, RollNo: models.StringPtr("0" + id), Class: models.StringPtr("X-1")}
}
