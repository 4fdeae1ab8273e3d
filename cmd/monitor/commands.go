package main

import (
	"fmt"
	"os"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/infrastructure/config"
	"schedule-monitor/internal/infrastructure/persistence"
	"schedule-monitor/pkg/logger"
	"schedule-monitor/pkg/utils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// SetupCommands builds the command tree
func SetupCommands() *cobra.Command {
	var configFile string

	// root command
	rootCmd := &cobra.Command{
		Use:           "schedule-monitor",
		Short:         "Track airport reservation cancellations and email a digest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")

	// full check: fetch, diff, notify, cleanup
	var dryRun bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Check the schedule for cancellations and notify subscribers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := bootstrap(configFile)
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := cfg.ValidateMail(); err != nil {
				log.Error("Invalid mail settings", "error", err)
				return err
			}

			app, err := NewApp(ctx, cfg, log)
			if err != nil {
				log.Error("Failed to start", "error", err)
				return err
			}
			defer app.Close()

			job, err := app.CancellationJob(ctx, dryRun)
			if err != nil {
				log.Error("Failed to start", "error", err)
				return err
			}

			report, err := job.Run(ctx, time.Now())
			app.PushMetrics(ctx, "schedule_monitor_run")
			if err != nil {
				log.Error("Run finished with errors", "error", err)
				return err
			}

			log.Info("Run finished",
				"processed", report.Result.Processed,
				"failed", len(report.Result.Failures),
				"cancellations", len(report.Cancellations),
				"purgedSchedules", report.Purged.Schedules,
				"purgedReservations", report.Purged.Reservations)
			return nil
		},
	}
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "detect and store changes without sending email")

	// retention only
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove schedules and reservations that are in the past",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := bootstrap(configFile)
			if err != nil {
				return err
			}
			defer log.Sync()

			app, err := NewApp(ctx, cfg, log)
			if err != nil {
				log.Error("Failed to start", "error", err)
				return err
			}
			defer app.Close()

			_, err = app.RetentionCleaner().Run(ctx, time.Now().In(cfg.Location))
			app.PushMetrics(ctx, "schedule_monitor_cleanup")
			return err
		},
	}

	// schema migrations for the SQL stores
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := bootstrap(configFile)
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.DBDriver == persistence.DriverMongo {
				log.Info("MongoDB needs no migrations")
				return nil
			}

			db, err := persistence.NewGormDB(cfg.DBDriver, cfg.DBDSN)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			migrator, err := persistence.NewMigrator(db, cfg.DBDriver, log)
			if err != nil {
				return err
			}
			return migrator.Run(ctx)
		},
	}

	// offline parsing of a saved page
	var (
		pageFile string
		pageDate string
		include  []string
		exclude  []string
	)
	parseCmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a saved schedule page and print its reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.ParseInLocation(entity.DateLayout, pageDate, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", pageDate, err)
			}

			markup, err := os.ReadFile(pageFile)
			if err != nil {
				return fmt.Errorf("failed to read page: %w", err)
			}

			parser := utils.NewScheduleTableParser(logger.NewNopLogger())
			filter := entity.PlaneFilter{Include: include}
			if len(include) == 0 {
				filter.Exclude = exclude
			}
			reservations, err := parser.Parse(string(markup), date, filter)
			if err != nil {
				return err
			}

			for _, r := range reservations {
				fmt.Fprintln(cmd.OutOrStdout(), r.String())
			}
			return nil
		},
	}
	parseCmd.Flags().StringVar(&pageFile, "file", "", "saved schedule page")
	parseCmd.Flags().StringVar(&pageDate, "date", time.Now().Format(entity.DateLayout), "date shown on the page (YYYY-MM-DD)")
	parseCmd.Flags().StringSliceVar(&include, "include", nil, "only these tail codes")
	parseCmd.Flags().StringSliceVar(&exclude, "exclude", nil, "skip these tail codes")
	parseCmd.MarkFlagRequired("file")

	// add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(parseCmd)

	return rootCmd
}

// bootstrap loads the config and builds the run logger
func bootstrap(configFile string) (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}

	zapLogger, err := logger.NewLogger(logger.Options{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return cfg, zapLogger.With("runID", uuid.NewString()), nil
}
