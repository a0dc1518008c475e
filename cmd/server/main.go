/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the payroll calculation engine. Handles
	configuration, dependency injection, and graceful shutdown.

COMMANDS:

	serve   Start the HTTP server and the monthly scheduler
	run     Execute one batch calculation from the command line
	seed    Load a JSON rate plan into the database

STARTUP SEQUENCE (serve):
 1. Load YAML configuration (-config, optional)
 2. Initialize SQLite store
 3. Wire calculator, runner, validator, handler
 4. Start cron scheduler
 5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop accepting new connections
	2. Stop the scheduler, wait for an in-flight run
	3. Wait for active requests to complete (30s timeout)
	4. Close database connection
	5. Exit

EXAMPLES:

	# Run with file database
	./server serve -config=./payroll.yaml

	# Calculate one period from the shell
	./server run -period=2025-08

	# Seed rate tables
	./server seed -plan=./rates.json

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: YAML configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/evaluation"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "server",
		Short: "Payroll compensation calculation engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (optional)")

	root.AddCommand(serveCmd(), runCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// buildEngine wires the calculation stack on top of a store.
func buildEngine(cfg *config.Config, store *sqlite.Store) (*payroll.BatchRunner, *payroll.VarianceValidator) {
	rules := cfg.EngineRules()

	calc := &payroll.Calculator{
		Rates:      payroll.NewRateResolver(store),
		Profiles:   payroll.NewProfileResolver(store, cfg.ProfileDefaults()),
		Directory:  store,
		Evaluation: evaluation.NewFixed(),
		Snapshots:  store,
		Advisories: store,
		Calendar:   cfg.Calendar(),
		Rules:      rules,
	}

	validator := &payroll.VarianceValidator{
		Snapshots:  store,
		Thresholds: cfg.Thresholds(),
	}

	runner := &payroll.BatchRunner{
		Calculator: calc,
		Directory:  store,
		RunLogs:    store,
		Validator:  validator,
		Workers:    cfg.Batch.Workers,
	}
	return runner, validator
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and monthly scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := sqlite.New(cfg.Server.DB)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			runner, validator := buildEngine(cfg, store)
			handler := api.NewHandler(store, runner, validator)
			router := api.NewRouter(handler)

			scheduler := api.NewRunScheduler(runner, store, cfg.Rules.CutoffDay)
			scheduler.Start()
			defer scheduler.Stop()

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			go func() {
				log.Printf("[Server] Listening on http://localhost:%d", cfg.Server.Port)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Server failed: %v", err)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("[Server] Shutting down...")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("forced shutdown: %w", err)
			}

			log.Println("[Server] Stopped")
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	var periodFlag string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one batch calculation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			period, err := payroll.ParsePayPeriod(periodFlag)
			if err != nil {
				return err
			}

			store, err := sqlite.New(cfg.Server.DB)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			runner, _ := buildEngine(cfg, store)
			run, err := runner.RunPeriod(cmd.Context(), period, nil)
			if err != nil {
				return err
			}

			fmt.Printf("run %s: %s, %d employees, %d errors\n",
				run.ID, run.Status, run.AffectedCount, len(run.Errors))
			return nil
		},
	}
	cmd.Flags().StringVar(&periodFlag, "period", "", "pay period to calculate (YYYY-MM)")
	cmd.MarkFlagRequired("period")
	return cmd
}

func seedCmd() *cobra.Command {
	var planPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a JSON rate plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(planPath)
			if err != nil {
				return err
			}
			plan, err := factory.ParseRatePlan(data)
			if err != nil {
				return err
			}
			if err := factory.ValidatePlan(plan); err != nil {
				return err
			}

			store, err := sqlite.New(cfg.Server.DB)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			if err := store.SaveRatePlan(cmd.Context(), *plan); err != nil {
				return err
			}

			fmt.Printf("seeded %d base salary rows, %d position allowance rows, %d competency rows\n",
				len(plan.BaseSalaries), len(plan.PositionAllowances), len(plan.CompetencyAllowances))
			return nil
		},
	}
	cmd.Flags().StringVar(&planPath, "plan", "", "rate plan JSON file")
	cmd.MarkFlagRequired("plan")
	return cmd
}
