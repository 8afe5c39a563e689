package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/app/maintenance"
	iauth "github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/cache"
	"github.com/upskeel/lms/internal/database"
	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/notifications"
	"github.com/upskeel/lms/internal/services"
	"github.com/upskeel/lms/pkg/logger"
	"github.com/upskeel/lms/pkg/mail"
)

const cliReviewer = "lmsctl"

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to configuration directory or file",
	}
	driverFlag = &cli.StringFlag{
		Name:  "driver",
		Usage: "Override database.driver",
	}
	dsnFlag = &cli.StringFlag{
		Name:  "dsn",
		Usage: "Override database.dsn",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:                 "lmsctl",
		Usage:                "Administrative tasks for the LMS backend",
		EnableBashCompletion: true,
		Flags:                []cli.Flag{configFlag, driverFlag, dsnFlag, debugFlag},
		Before: func(c *cli.Context) error {
			level := "warn"
			if c.Bool(debugFlag.Name) {
				level = "debug"
			}
			return logger.InitWithOptions(logger.Options{Level: level, Format: "console"})
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply schema migrations and seed the role set",
				Action: migrateAction,
			},
			{
				Name:  "create-admin",
				Usage: "Create an administrator or grant the Admin role to an existing identity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "name", Value: "System Admin"},
				},
				Action: createAdminAction,
			},
			{
				Name:   "cleanup",
				Usage:  "Run every maintenance job once",
				Action: cleanupAction,
			},
			{
				Name:  "instructor-requests",
				Usage: "Review instructor approval requests",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List requests, optionally filtered by status",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "status", Usage: "Pending, Approved or Rejected"},
						},
						Action: listRequestsAction,
					},
					{
						Name:      "approve",
						Usage:     "Approve a pending request",
						ArgsUsage: "<request-id>",
						Action:    decideAction(models.ApprovalApproved),
					},
					{
						Name:      "reject",
						Usage:     "Reject a pending request",
						ArgsUsage: "<request-id>",
						Action:    decideAction(models.ApprovalRejected),
					},
				},
			},
		},
	}
}

// loadConfig resolves configuration from the global flags.
func loadConfig(c *cli.Context) (*app.Config, error) {
	var (
		cfg *app.Config
		err error
	)
	path := strings.TrimSpace(c.String(configFlag.Name))
	switch {
	case path == "":
		cfg, err = app.LoadConfig()
	default:
		info, statErr := os.Stat(path)
		switch {
		case statErr == nil && info.IsDir():
			cfg, err = app.LoadConfig(path)
		case statErr == nil:
			cfg, err = app.LoadConfig(filepath.Dir(path))
		case errors.Is(statErr, os.ErrNotExist):
			return nil, fmt.Errorf("config path %q does not exist", path)
		default:
			return nil, fmt.Errorf("stat config path: %w", statErr)
		}
	}
	if err != nil {
		return nil, err
	}

	if driver := strings.TrimSpace(c.String(driverFlag.Name)); driver != "" {
		cfg.Database.Driver = driver
	}
	if dsn := strings.TrimSpace(c.String(dsnFlag.Name)); dsn != "" {
		cfg.Database.DSN = dsn
	}

	if _, err := app.ApplyRuntimeDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database.DatabaseSettings())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}
	return db, nil
}

// withServices opens the database, wires the domain services and hands them to fn.
func withServices(c *cli.Context, fn func(cfg *app.Config, db *gorm.DB, svc *app.Services) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return fmt.Errorf("initialise mailer: %w", err)
	}
	// Zero workers delivers inline so nothing is lost when the command exits.
	opts := cfg.Notifications.DispatcherOptions()
	opts.Workers = 0
	dispatcher, err := notifications.NewDispatcher(mailer, opts)
	if err != nil {
		return fmt.Errorf("initialise notification dispatcher: %w", err)
	}

	svc, err := app.NewServices(db, jwtSvc, cfg, app.ServiceDeps{Notifier: dispatcher})
	if err != nil {
		return fmt.Errorf("initialise services: %w", err)
	}
	return fn(cfg, db, svc)
}

func migrateAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	fmt.Fprintf(c.App.Writer, "migrations applied (%s)\n", cfg.Database.DatabaseSettings().Driver)
	return nil
}

func createAdminAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	email := c.String("email")
	created, err := database.SeedAdmin(db, database.AdminSeed{
		Email:    email,
		Password: c.String("password"),
		FullName: c.String("name"),
	})
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(c.App.Writer, "admin %s created\n", strings.ToLower(strings.TrimSpace(email)))
	} else {
		fmt.Fprintf(c.App.Writer, "admin %s already exists\n", strings.ToLower(strings.TrimSpace(email)))
	}
	return nil
}

func cleanupAction(c *cli.Context) error {
	return withServices(c, func(cfg *app.Config, db *gorm.DB, svc *app.Services) error {
		cleaner := maintenance.NewCleaner(
			svc.Credentials,
			svc.Audit,
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
			maintenance.WithCachePurger(cache.NewDatabaseStore(db)),
		)
		if err := cleaner.RunOnce(c.Context); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "maintenance jobs completed")
		return nil
	})
}

func listRequestsAction(c *cli.Context) error {
	var status models.ApprovalStatus
	if raw := strings.TrimSpace(c.String("status")); raw != "" {
		for _, candidate := range []models.ApprovalStatus{models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected} {
			if strings.EqualFold(raw, string(candidate)) {
				status = candidate
			}
		}
		if status == "" {
			return fmt.Errorf("unknown status %q", raw)
		}
	}

	return withServices(c, func(_ *app.Config, _ *gorm.DB, svc *app.Services) error {
		requests, err := svc.Approvals.ListRequests(c.Context, services.ApprovalFilter{Status: status})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tNAME\tSTATUS\tREQUESTED")
		for _, r := range requests {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Email, r.FullName, r.Status, r.RequestedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	})
}

func decideAction(outcome models.ApprovalStatus) cli.ActionFunc {
	return func(c *cli.Context) error {
		requestID := strings.TrimSpace(c.Args().First())
		if requestID == "" {
			return errors.New("request id is required")
		}

		return withServices(c, func(_ *app.Config, _ *gorm.DB, svc *app.Services) error {
			request, err := svc.Approvals.Decide(c.Context, services.DecisionInput{
				RequestID: requestID,
				Outcome:   outcome,
				Reviewer:  cliReviewer,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "request %s %s\n", request.ID, strings.ToLower(string(request.Status)))
			return nil
		})
	}
}
