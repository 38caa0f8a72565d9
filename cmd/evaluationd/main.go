package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/handlers"
	"github.com/SAP-F-2025/evaluation-service/internal/i18n"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/SAP-F-2025/evaluation-service/internal/worker"
	"github.com/SAP-F-2025/evaluation-service/pkg"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "evaluationd",
		Short:        "Timed evaluation attempts, grading and plagiarism checks",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), reconcileCmd(), exportCmd())

	// "serve" is the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the plagiarism consumer and the reconciler",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", "", "HTTP listen address (defaults to :$PORT)")
	f.Bool("migrate", false, "Run database migrations before serving")
	f.StringSlice("dev-token", nil, "Static token for local use without Casdoor, as token=user:role (repeatable)")
	f.Duration("shutdown-timeout", 15*time.Second, "Grace period for in-flight requests on shutdown")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := setupLogging(cmd)
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := pkg.InitDatabase(cfg)
			if err != nil {
				return err
			}
			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("Migrations applied")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one sweep: close expired attempts and retry pending plagiarism checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := setupLogging(cmd)
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			r := worker.NewReconciler(a.services.Attempt(), a.services.Plagiarism(), cfg.ReconcileInterval, logger)
			res, err := r.RunOnce(cmd.Context())
			logger.Info("Reconcile finished", "missed", res.Missed, "retried", res.Retried)
			return err
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the results workbook of an evaluation",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.Uint("evaluation-id", 0, "Evaluation to export (required)")
	f.StringP("output", "o", "-", "Output .xlsx path (- for stdout)")
	_ = cmd.MarkFlagRequired("evaluation-id")
	return cmd
}

func setupLogging(cmd *cobra.Command) *slog.Logger {
	v := viperForCmd(cmd)
	logger := utils.NewLogger(os.Stderr, v.GetString("log-level"), v.GetString("log-format"))
	slog.SetDefault(logger)
	return logger
}

// viperForCmd binds a command's flags and EVAL_* environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.InheritedFlags())

	v.SetEnvPrefix("EVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if v.GetBool("migrate") {
		if err := postgres.Migrate(ctx, a.db); err != nil {
			return err
		}
		logger.Info("Migrations applied")
	}

	parser, err := newTokenParser(cfg, v.GetStringSlice("dev-token"))
	if err != nil {
		return err
	}
	translator, err := i18n.New(cfg.DefaultLang, logger)
	if err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	if a.bus.Subscriber != nil {
		router, err := events.NewPlagiarismRouter(a.bus.Subscriber, a.bus.Topic, a.services.Plagiarism().Handler(), events.DefaultRetryPolicy, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := router.Run(ctx); err != nil {
				logger.Error("Plagiarism consumer stopped", "error", err)
			}
		}()
		defer router.Close()
	}

	go worker.NewReconciler(a.services.Attempt(), a.services.Plagiarism(), cfg.ReconcileInterval, logger).Run(ctx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), utils.LoggerMiddleware(utils.NewSlogLogger(logger)))
	engine.MaxMultipartMemory = 8 << 20
	handlers.NewHandlerManager(a.services, parser, translator, cfg.UploadMaxBytes, utils.NewSlogLogger(logger)).SetupRoutes(engine)

	addr := v.GetString("addr")
	if addr == "" {
		addr = ":" + cfg.Port
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			"addr", addr,
			"environment", cfg.Environment,
			"events", cfg.Events.Publisher,
			"plagiarism_gateway", cfg.Plagiarism.Enabled(),
			"reconcile_interval", cfg.ReconcileInterval.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), v.GetDuration("shutdown-timeout"))
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runExport(cmd *cobra.Command, _ []string) error {
	logger := setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	evaluationID := v.GetUint("evaluation-id")
	f, err := a.services.Export().ExportResults(cmd.Context(), evaluationID, models.Actor{ID: models.SystemGrader, Role: models.RoleAdmin})
	if err != nil {
		return fmt.Errorf("export evaluation %d: %w", evaluationID, err)
	}
	defer f.Close()

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		out, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer out.Close()
		w = out
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	logger.Info("Results exported", "evaluation_id", evaluationID, "output", outPath)
	return nil
}
