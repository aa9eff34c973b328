package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/teamtrack/core/internal/adapters/localstate"
	"github.com/teamtrack/core/internal/adapters/remote"
	"github.com/teamtrack/core/internal/application/services"
	"github.com/teamtrack/core/internal/domain/dates"
	"github.com/teamtrack/core/internal/domain/entities"
	"github.com/teamtrack/core/internal/infrastructure/config"
	"github.com/teamtrack/core/internal/infrastructure/logger"
	"github.com/teamtrack/core/internal/infrastructure/scheduler"
	"github.com/teamtrack/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the TeamTrack dashboard server",
		Long:  "Start the dashboard API server together with the refresh, heartbeat and pruning background jobs",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Local state migration commands",
		Long:  "Manage the local session store schema (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		Run: func(cmd *cobra.Command, args []string) {
			runMigration("down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			showMigrationVersion()
		},
	})

	return migrateCmd
}

// NewPruneCommand creates the one-shot pruning command
func NewPruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Run the aged-task pruning sweep once",
		Long:  "Delete completed tasks older than the configured retention window and exit",
		Run: func(cmd *cobra.Command, args []string) {
			runPrune()
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print TeamTrack version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("TeamTrack v1.0.0")
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	store, err := localstate.Open(cfg.LocalState.Path)
	if err != nil {
		appLogger.Fatal("Failed to open local state store", "error", err)
	}
	defer store.Close()

	client, err := remote.NewClient(cfg.Remote, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize remote store client", "error", err)
	}

	srv, err := server.New(cfg, client, store, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize server", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Best-effort restore of the previous session; a fresh login through the
	// API covers every failure mode here.
	if user, err := srv.Sessions().Restore(ctx); err != nil {
		if !errors.Is(err, entities.ErrNoActiveSession) {
			appLogger.Warn("Could not restore saved session", "error", err)
		}
	} else {
		appLogger.Info("Restored saved session", "username", user.Username)
	}

	sched := scheduler.New(appLogger, srv.Registry())
	sched.Register("refresh", cfg.Sync.RefreshInterval, func(ctx context.Context) error {
		return refreshCycle(ctx, srv)
	})
	sched.Register("heartbeat", cfg.Sync.HeartbeatInterval, func(ctx context.Context) error {
		return srv.Sessions().Heartbeat(ctx)
	})
	sched.Register("prune", cfg.Sync.PruneInterval, func(ctx context.Context) error {
		_, err := srv.Tasks().PruneAgedCompletedTasks(ctx, dates.DayKey(time.Now()))
		return err
	})
	sched.Start(ctx)

	// Prime the collections so the first page load does not wait for a tick.
	if err := sched.RunNow(ctx, "refresh"); err != nil {
		appLogger.Warn("Initial refresh failed", "error", err)
	}

	go func() {
		<-ctx.Done()

		// Final presence update before shutting down; blocks at most a few
		// seconds so the write lands before the process exits.
		srv.Sessions().ExitBeacon()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Server shutdown failed", "error", err)
		}
	}()

	appLogger.Info("Starting TeamTrack dashboard server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
	)

	if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLogger.Fatal("Server failed to start", "error", err)
	}

	sched.Wait()
}

// refreshCycle is one full poll: replace every collection, then roll the
// session user's stale tasks forward to today.
func refreshCycle(ctx context.Context, srv *server.Server) error {
	if err := srv.Tasks().Reload(ctx); err != nil {
		return err
	}
	if err := srv.Sessions().ReloadUsers(ctx); err != nil {
		return err
	}
	if err := srv.Requests().Reload(ctx); err != nil {
		return err
	}

	if user := srv.State().CurrentUser(); user != nil {
		if _, err := srv.Tasks().MigrateStaleTasks(ctx, user.ID, dates.DayKey(time.Now())); err != nil {
			return err
		}
	}
	return nil
}

func runPrune() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	client, err := remote.NewClient(cfg.Remote, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize remote store client", "error", err)
	}

	state := services.NewSessionState()
	taskService := services.NewTaskService(remote.NewTaskRepository(client), state, appLogger, cfg.Sync.RetentionMonths, cfg.Sync.PruneDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := taskService.Reload(ctx); err != nil {
		appLogger.Fatal("Failed to load tasks", "error", err)
	}

	pruned, err := taskService.PruneAgedCompletedTasks(ctx, dates.DayKey(time.Now()))
	if err != nil {
		appLogger.Fatal("Pruning sweep failed", "error", err)
	}

	fmt.Printf("Pruned %d aged completed task(s)\n", pruned)
}

func runMigration(direction string) {
	m := newMigrator()

	var err error
	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Migration failed: %v", err)
	}

	if err == migrate.ErrNoChange {
		fmt.Println("No migrations to run")
	} else {
		fmt.Printf("Migration %s completed successfully\n", direction)
	}
}

func showMigrationVersion() {
	m := newMigrator()

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}

	fmt.Printf("Current migration version: %d\n", version)
	fmt.Printf("Dirty: %t\n", dirty)
}

func newMigrator() *migrate.Migrate {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := localstate.Open(cfg.LocalState.Path)
	if err != nil {
		log.Fatalf("Failed to open local state store: %v", err)
	}

	driver, err := migratesqlite.WithInstance(store.DB().DB, &migratesqlite.Config{})
	if err != nil {
		log.Fatalf("Failed to create migration driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"sqlite3",
		driver,
	)
	if err != nil {
		log.Fatalf("Failed to create migration instance: %v", err)
	}

	return m
}
