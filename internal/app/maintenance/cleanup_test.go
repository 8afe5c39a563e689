package maintenance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/upskeel/lms/internal/cache"
	testutil "github.com/upskeel/lms/internal/database/testutil"
	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/services"
)

type recordedRun struct {
	job, result, message string
}

type runRecorder struct {
	mu   sync.Mutex
	runs []recordedRun
}

func (r *runRecorder) Record(job, result, message string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, recordedRun{job: job, result: result, message: message})
}

type stubPurger struct {
	removed int64
	err     error
	calls   int
}

func (s *stubPurger) PurgeTokens(context.Context) (int64, error) {
	s.calls++
	return s.removed, s.err
}

type stubPruner struct {
	days  int
	calls int
}

func (s *stubPruner) CleanupOlderThan(_ context.Context, days int) (int64, error) {
	s.calls++
	s.days = days
	return 0, nil
}

func TestCleanerRunOnceAggregatesFailures(t *testing.T) {
	tokens := &stubPurger{err: errors.New("database is locked")}
	audit := &stubPruner{}
	recorder := &runRecorder{}

	c := NewCleaner(tokens, audit,
		WithAuditRetentionDays(7),
		WithRecorder(recorder),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	err := c.RunOnce(context.Background())
	require.ErrorContains(t, err, "token_cleanup: database is locked")
	require.Equal(t, 1, tokens.calls)
	require.Equal(t, 1, audit.calls)
	require.Equal(t, 7, audit.days)

	require.Equal(t, []recordedRun{
		{job: JobTokenCleanup, result: "failure", message: "database is locked"},
		{job: JobAuditCleanup, result: "success"},
	}, recorder.runs)
}

func TestCleanerSkipsMissingDependencies(t *testing.T) {
	c := NewCleaner(nil, nil)
	require.NoError(t, c.RunOnce(context.Background()))
	require.NoError(t, c.Start())
	<-c.Stop().Done()
}

func TestCleanerRejectsInvalidSchedule(t *testing.T) {
	c := NewCleaner(&stubPurger{}, nil, WithSchedules("every now and then", "", ""))
	require.ErrorContains(t, c.Start(), "token_cleanup")
}

func TestCleanerRunOncePurgesStores(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	now := time.Now().UTC()

	credentials, err := services.NewCredentialService(db)
	require.NoError(t, err)
	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)
	store := cache.NewDatabaseStore(db)

	user, err := credentials.CreateIdentity(context.Background(), services.NewIdentity{
		Email:      "cleanup@lms.test",
		Password:   "Secret123!",
		FullName:   "Cleanup User",
		IsApproved: true,
	})
	require.NoError(t, err)

	_, err = credentials.IssueEmailConfirmationToken(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.EmailVerification{}).
		Where("user_id = ?", user.ID).
		Update("expires_at", now.Add(-time.Hour)).Error)

	_, err = credentials.IssuePasswordResetToken(context.Background(), user.ID)
	require.NoError(t, err)

	require.NoError(t, auditSvc.Log(context.Background(), services.AuditEntry{
		Action: "auth.login",
		Result: services.AuditSuccess,
		Actor:  "cleanup@lms.test",
	}))
	require.NoError(t, db.Model(&models.AuditLog{}).Where("1 = 1").
		Update("created_at", now.AddDate(0, 0, -10)).Error)

	require.NoError(t, store.Set(context.Background(), "stale", []byte("1"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	recorder := &runRecorder{}
	c := NewCleaner(credentials, auditSvc,
		WithAuditRetentionDays(7),
		WithCachePurger(store),
		WithRecorder(recorder),
	)
	require.NoError(t, c.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.EmailVerification{}).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.PasswordResetToken{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	require.Zero(t, count)

	_, found, err := store.Get(context.Background(), "stale")
	require.NoError(t, err)
	require.False(t, found)

	require.Len(t, recorder.runs, 3)
	for _, run := range recorder.runs {
		require.Equal(t, "success", run.result, run.job)
	}
}
