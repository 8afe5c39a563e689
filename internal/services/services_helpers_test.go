package services

import (
	"context"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/database"
	"github.com/upskeel/lms/internal/database/testutil"
	"github.com/upskeel/lms/internal/events"
	"github.com/upskeel/lms/internal/notifications"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Notification
	err  error
}

func (n *recordingNotifier) Dispatch(_ context.Context, msg notifications.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) last(t *testing.T) notifications.Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "expected a notification to be dispatched")
	return n.sent[len(n.sent)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testStack struct {
	db           *gorm.DB
	clock        *testClock
	notifier     *recordingNotifier
	events       *events.Recorder
	audit        *AuditService
	credentials  *CredentialService
	roles        *RoleService
	approvals    *ApprovalService
	registration *RegistrationService
	jwt          *auth.JWTService
	auth         *AuthService
	courses      *CourseService
	enrollments  *EnrollmentService
}

type stackOption func(*stackConfig)

type stackConfig struct {
	authOpts []AuthOption
	db       *gorm.DB
}

func withDatabase(db *gorm.DB) stackOption {
	return func(cfg *stackConfig) {
		cfg.db = db
	}
}

// openFileDB opens a file-backed SQLite database with the production pool settings.
func openFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "lms.sqlite"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close(db)
	})
	require.NoError(t, database.AutoMigrateAndSeed(db))
	return db
}

func withAuthOptions(opts ...AuthOption) stackOption {
	return func(cfg *stackConfig) {
		cfg.authOpts = append(cfg.authOpts, opts...)
	}
}

func newTestStack(t *testing.T, opts ...stackOption) *testStack {
	t.Helper()

	cfg := stackConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := cfg.db
	if db == nil {
		db = testutil.MustOpenTestDB(t, testutil.WithSeedData())
	}
	s := &testStack{
		db:       db,
		clock:    newTestClock(),
		notifier: &recordingNotifier{},
		events:   &events.Recorder{},
	}

	var err error
	s.audit, err = NewAuditService(db)
	require.NoError(t, err)

	s.credentials, err = NewCredentialService(db, WithCredentialClock(s.clock.Now))
	require.NoError(t, err)

	s.roles, err = NewRoleService(db)
	require.NoError(t, err)

	s.approvals, err = NewApprovalService(db,
		WithApprovalNotifier(s.notifier),
		WithApprovalEvents(s.events),
		WithApprovalAudit(s.audit),
		WithApprovalClock(s.clock.Now),
	)
	require.NoError(t, err)

	links := Links{APIBaseURL: "https://api.lms.test", FrontendURL: "https://lms.test"}
	s.registration, err = NewRegistrationService(db, RegistrationDeps{
		Credentials: s.credentials,
		Roles:       s.roles,
		Approvals:   s.approvals,
		Notifier:    s.notifier,
		Events:      s.events,
		Audit:       s.audit,
		Links:       links,
	})
	require.NoError(t, err)

	s.jwt, err = auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "lms", Audience: "lms-clients"})
	require.NoError(t, err)

	authOpts := append([]AuthOption{
		WithAuthNotifier(s.notifier),
		WithAuthAudit(s.audit),
		WithAuthLinks(links),
	}, cfg.authOpts...)
	s.auth, err = NewAuthService(db, s.credentials, s.jwt, authOpts...)
	require.NoError(t, err)

	s.courses, err = NewCourseService(db, s.roles, s.events, s.audit)
	require.NoError(t, err)

	s.enrollments, err = NewEnrollmentService(db, s.audit)
	require.NoError(t, err)

	return s
}

func (s *testStack) register(t *testing.T, email, role string) *RegistrationResult {
	t.Helper()
	result, err := s.registration.Register(context.Background(), RegistrationInput{
		Email:    email,
		FullName: "Test " + role,
		Password: "Secret123!",
		Role:     role,
	})
	require.NoError(t, err)
	return result
}

func (s *testStack) actor(t *testing.T, userID string) Actor {
	t.Helper()
	user, err := s.credentials.FindByID(context.Background(), userID)
	require.NoError(t, err)
	return Actor{UserID: user.ID, Email: user.Email, Roles: user.RoleNames()}
}

func (s *testStack) pendingRequestID(t *testing.T, userID string) string {
	t.Helper()
	var ids []string
	require.NoError(t, s.db.Table("instructor_approval_requests").Where("user_id = ?", userID).Pluck("id", &ids).Error)
	require.Len(t, ids, 1)
	return ids[0]
}

func tokenFromLink(t *testing.T, link string) (string, string) {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	return parsed.Query().Get("userId"), parsed.Query().Get("token")
}
