package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upskeel/lms/internal/app"
	iauth "github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/database"
	"github.com/upskeel/lms/internal/database/testutil"
	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/services"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cliApp := newApp()
	cliApp.Writer = &out
	cliApp.ErrWriter = &out

	base := []string{"lmsctl", "--driver", "sqlite", "--dsn", database.MemoryDSN(t.Name())}
	err := cliApp.Run(append(base, args...))
	return out.String(), err
}

func TestMigrateAndCreateAdmin(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "migrations applied (sqlite)")

	out, err = runCLI(t, "create-admin", "--email", "Ops@Example.com", "--password", "Admin123!")
	require.NoError(t, err)
	require.Contains(t, out, "admin ops@example.com created")

	out, err = runCLI(t, "create-admin", "--email", "ops@example.com", "--password", "Admin123!")
	require.NoError(t, err)
	require.Contains(t, out, "already exists")

	var admin models.User
	require.NoError(t, db.Preload("Roles").First(&admin, "email = ?", "ops@example.com").Error)
	require.Len(t, admin.Roles, 1)
	require.Equal(t, "Admin", admin.Roles[0].Name)
}

func TestInstructorRequestCommands(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "cli-secret", AccessTokenTTL: time.Hour})
	require.NoError(t, err)
	svc, err := app.NewServices(db, jwtSvc, &app.Config{}, app.ServiceDeps{})
	require.NoError(t, err)

	result, err := svc.Registration.Register(context.Background(), services.RegistrationInput{
		Email:    "ada@example.com",
		FullName: "Ada Lovelace",
		Password: "Secret123!",
		Role:     "Instructor",
	})
	require.NoError(t, err)
	require.True(t, result.RequiresApproval)

	var request models.InstructorApprovalRequest
	require.NoError(t, db.First(&request, "user_id = ?", result.UserID).Error)

	out, err := runCLI(t, "instructor-requests", "list", "--status", "pending")
	require.NoError(t, err)
	require.Contains(t, out, request.ID)
	require.Contains(t, out, "ada@example.com")

	_, err = runCLI(t, "instructor-requests", "list", "--status", "maybe")
	require.Error(t, err)

	_, err = runCLI(t, "instructor-requests", "approve")
	require.Error(t, err)

	out, err = runCLI(t, "instructor-requests", "approve", request.ID)
	require.NoError(t, err)
	require.Contains(t, out, "approved")

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", result.UserID).Error)
	require.True(t, user.IsApproved)

	_, err = runCLI(t, "instructor-requests", "reject", request.ID)
	require.ErrorIs(t, err, services.ErrApprovalAlreadyDecided)
}

func TestCleanupCommand(t *testing.T) {
	testutil.MustOpenTestDB(t, testutil.WithSeedData())

	out, err := runCLI(t, "cleanup")
	require.NoError(t, err)
	require.Contains(t, out, "maintenance jobs completed")
}
