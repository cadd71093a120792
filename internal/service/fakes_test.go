package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/mail"
	"github.com/spec-kit/case-service/internal/repository"
)

// memUsers mirrors the conditional updates of the postgres user repository.
type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*domain.User{}}
}

func clone(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	m.users[user.ID] = clone(user)
	return nil
}

func (m *memUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, u := range m.users {
		if u.ID != user.ID && u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	cur.FirstName, cur.LastName, cur.Email = user.FirstName, user.LastName, user.Email
	cur.Role, cur.Avatar = user.Role, user.Avatar
	return nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) List(_ context.Context, page repository.Page) ([]domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return window(all, page), len(all), nil
}

func (m *memUsers) UpdateToken(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Token = &token
	return nil
}

func (m *memUsers) SetResetCode(_ context.Context, id, codeDigest string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordResetCode = &codeDigest
	u.PasswordResetExpiresAt = &expiresAt
	u.PasswordResetVerified = false
	return nil
}

func (m *memUsers) ClearResetState(_ context.Context, id, codeDigest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.PasswordResetCode == nil || *u.PasswordResetCode != codeDigest {
		return repository.ErrNotFound
	}
	u.PasswordResetCode, u.PasswordResetExpiresAt, u.PasswordResetVerified = nil, nil, false
	return nil
}

func (m *memUsers) live(codeDigest string, now time.Time) *domain.User {
	var found *domain.User
	for _, u := range m.users {
		if u.PasswordResetCode == nil || *u.PasswordResetCode != codeDigest {
			continue
		}
		if !u.PasswordResetExpiresAt.After(now) {
			continue
		}
		if found == nil || u.PasswordResetExpiresAt.After(*found.PasswordResetExpiresAt) {
			found = u
		}
	}
	return found
}

func (m *memUsers) ResetCodeInUse(_ context.Context, codeDigest string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(codeDigest, now) != nil, nil
}

func (m *memUsers) MarkResetVerified(_ context.Context, codeDigest string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.live(codeDigest, now)
	if u == nil {
		return "", repository.ErrNotFound
	}
	u.PasswordResetVerified = true
	return u.ID, nil
}

func (m *memUsers) CompleteReset(_ context.Context, id, passwordHash, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.PasswordResetVerified {
		return repository.ErrStateMismatch
	}
	u.PasswordHash, u.Token = passwordHash, &token
	u.PasswordResetCode, u.PasswordResetExpiresAt, u.PasswordResetVerified = nil, nil, false
	return nil
}

func window[T any](all []T, page repository.Page) []T {
	if page.Offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return all[page.Offset:end]
}

type memCases struct {
	mu    sync.Mutex
	cases map[string]*domain.Case
	// reports and visits cascade with their case
	reports *memReports
}

func newMemCases() *memCases {
	return &memCases{cases: map[string]*domain.Case{}}
}

func (m *memCases) Create(_ context.Context, c *domain.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.NewString()
	stored := *c
	m.cases[c.ID] = &stored
	return nil
}

func (m *memCases) Update(_ context.Context, c *domain.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := *c
	m.cases[c.ID] = &stored
	return nil
}

func (m *memCases) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.cases, id)
	if m.reports != nil {
		m.reports.dropCase(id)
	}
	return nil
}

func (m *memCases) GetByID(_ context.Context, id string) (*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *memCases) List(_ context.Context, page repository.Page) ([]domain.Case, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]domain.Case, 0, len(m.cases))
	for _, c := range m.cases {
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FullName < all[j].FullName })
	return window(all, page), len(all), nil
}

type memReports struct {
	mu      sync.Mutex
	cases   *memCases
	reports map[string]*domain.Report
}

func newMemReports(cases *memCases) *memReports {
	r := &memReports{cases: cases, reports: map[string]*domain.Report{}}
	cases.reports = r
	return r
}

func (m *memReports) dropCase(caseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.reports {
		if r.CaseID == caseID {
			delete(m.reports, id)
		}
	}
}

func (m *memReports) Create(ctx context.Context, report *domain.Report) error {
	if _, err := m.cases.GetByID(ctx, report.CaseID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	report.ID = uuid.NewString()
	stored := *report
	m.reports[report.ID] = &stored
	return nil
}

func (m *memReports) UpdateCase(ctx context.Context, id, caseID string) error {
	if _, err := m.cases.GetByID(ctx, caseID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.CaseID = caseID
	return nil
}

func (m *memReports) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *memReports) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	m.mu.Lock()
	r, ok := m.reports[id]
	var out domain.Report
	if ok {
		out = *r
	}
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c, err := m.cases.GetByID(ctx, out.CaseID); err == nil {
		out.CaseFullName = c.FullName
	}
	return &out, nil
}

func (m *memReports) List(_ context.Context, filter repository.ReportFilter) ([]domain.Report, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Report
	for _, r := range m.reports {
		if filter.CaseID != nil && r.CaseID != *filter.CaseID {
			continue
		}
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })
	return window(all, filter.Page), len(all), nil
}

func (m *memReports) ListFilesByCase(_ context.Context, caseID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var files []string
	for _, r := range m.reports {
		if r.CaseID == caseID {
			files = append(files, r.File)
		}
	}
	sort.Strings(files)
	return files, nil
}

type memVisits struct {
	mu     sync.Mutex
	visits map[string]*domain.Visiting
}

func newMemVisits() *memVisits {
	return &memVisits{visits: map[string]*domain.Visiting{}}
}

func (m *memVisits) Create(_ context.Context, v *domain.Visiting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = uuid.NewString()
	stored := *v
	m.visits[v.ID] = &stored
	return nil
}

func (m *memVisits) Update(_ context.Context, v *domain.Visiting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.visits[v.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := *v
	m.visits[v.ID] = &stored
	return nil
}

func (m *memVisits) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.visits[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.visits, id)
	return nil
}

func (m *memVisits) GetByID(_ context.Context, id string) (*domain.Visiting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *v
	return &out, nil
}

func (m *memVisits) List(_ context.Context, filter repository.VisitingFilter) ([]domain.Visiting, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Visiting
	for _, v := range m.visits {
		if filter.CaseID != nil && v.CaseID != *filter.CaseID {
			continue
		}
		all = append(all, *v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].VisitedAt.Before(all[j].VisitedAt) })
	return window(all, filter.Page), len(all), nil
}

// recordingMailer captures sent messages; err, when set, fails every send.
type recordingMailer struct {
	mu    sync.Mutex
	sent  []mail.Message
	err   error
	block bool
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mail.Message{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
