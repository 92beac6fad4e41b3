package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/tordrt/modelspec"
	"github.com/tordrt/modelspec/internal/config"
	"github.com/tordrt/modelspec/internal/metrics"
	"github.com/tordrt/modelspec/internal/server"
)

// serveMode generates every projection the server exposes
const serveMode = "openapi schema datastore"

var (
	configPath    string
	modelSource   string
	mode          string
	outputDir     string
	baseURI       string
	title         string
	version       string
	description   string
	schemaName    string
	tables        string
	excludeTables string
	validate      bool
	pushGateway   string
	verbose       bool
	summary       bool
	listen        string
)

var rootCmd = &cobra.Command{
	Use:   "modelspec [model]",
	Short: "Generate OpenAPI and JSON Schema contracts from a data model",
	Long: `modelspec reads a SQL Power Architect project or a live PostgreSQL, MySQL, SQLite or SQL Server
database, builds the entity-relationship graph, and writes an OpenAPI 3.0 document, JSON Schema
bundles, a JSON dump of the graph and markdown documentation.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var serveCmd = &cobra.Command{
	Use:   "serve [model]",
	Short: "Generate in memory and serve the artifacts over HTTP",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default: "+config.DefaultFile+" when present)")
	pf.StringVarP(&modelSource, "model", "m", "", "Model file, bare model name, or database URL")
	pf.StringVar(&mode, "mode", config.DefaultMode, "Projections to run: schema, openapi|yaml, datastore, render")
	pf.StringVarP(&outputDir, "output-dir", "d", ".", "Output directory")
	pf.StringVar(&baseURI, "base-uri", "", "Prefix of every JSON Schema $id")
	pf.StringVar(&title, "title", "", "OpenAPI info title (default: Business Data Model)")
	pf.StringVar(&version, "version", "", "OpenAPI info version (default: 1.0.0)")
	pf.StringVar(&description, "description", "", "OpenAPI info description")
	pf.StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL, dbo for SQL Server)")
	pf.StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	pf.StringVar(&excludeTables, "exclude-tables", "", "Tables to exclude (comma-separated, optional)")
	pf.BoolVar(&validate, "validate", false, "Validate the OpenAPI document; failures are logged as warnings")
	pf.StringVar(&pushGateway, "push-gateway", "", "Prometheus Pushgateway URL to push run metrics to")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log debug records")

	rootCmd.Flags().BoolVar(&summary, "summary", false, "Print a text summary of the model to stdout")
	serveCmd.Flags().StringVar(&listen, "listen", ":8080", "Address to serve on")

	rootCmd.AddCommand(serveCmd)
}

// loadConfig resolves the settings; a positional model argument wins over every other source
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return cfg, err
	}
	if len(args) > 0 {
		cfg.Model = args[0]
	}
	if cfg.Model == "" {
		return cfg, fmt.Errorf("a model is required (argument, --model, or MODELSPEC_MODEL)")
	}
	return cfg, nil
}

// newLogger builds the run logger: text on w, tagged with a run id, counted by m
func newLogger(cfg config.Config, w io.Writer, m *metrics.Metrics) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(m.Handler(h)).With("run", ulid.Make().String())
}

func options(cfg config.Config, logger *slog.Logger) *modelspec.Options {
	return &modelspec.Options{
		Mode:          cfg.Mode,
		Tables:        cfg.Tables,
		ExcludeTables: cfg.ExcludeTables,
		SchemaName:    cfg.Schema,
		Logger:        logger,
		BaseURI:       cfg.BaseURI,
		Title:         cfg.Title,
		Version:       cfg.Version,
		Description:   cfg.Description,
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	m := metrics.New()
	logger := newLogger(cfg, cmd.ErrOrStderr(), m)

	if !config.ParseModes(cfg.Mode).Any() {
		logger.Warn("mode selects no projection, nothing to write", "kind", "default", "mode", cfg.Mode)
	}

	a, err := modelspec.Generate(ctx, cfg.Model, options(cfg, logger))
	if err != nil {
		return err
	}
	m.ObserveGraph(a.Graph)

	if cfg.Validate && a.OpenAPI != nil {
		if err := modelspec.ValidateOpenAPI(ctx, a); err != nil {
			logger.Warn("OpenAPI document failed validation", "kind", "schema", "error", err)
		} else {
			logger.Info("OpenAPI document is valid")
		}
	}

	out := &modelspec.OutputOptions{OutputDir: cfg.OutputDir}
	if summary {
		out.Writer = cmd.OutOrStdout()
	}
	res, err := modelspec.WriteArtifacts(ctx, a, out)
	if err != nil {
		return err
	}
	m.ArtifactsWritten(len(res.Written))
	logger.Info("generation complete", "model", a.Name, "written", len(res.Written), "unchanged", len(res.Unchanged))

	if cfg.PushGateway != "" {
		if err := m.Push(ctx, cfg.PushGateway, metrics.DefaultJob); err != nil {
			logger.Warn("failed to push metrics", "error", err)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	logger := newLogger(cfg, cmd.ErrOrStderr(), m)

	opts := options(cfg, logger)
	opts.Mode = serveMode
	a, err := modelspec.Generate(ctx, cfg.Model, opts)
	if err != nil {
		return err
	}
	m.ObserveGraph(a.Graph)

	router, err := server.NewRouter(server.Content{
		Graph:   a.Graph,
		OpenAPI: a.OpenAPI,
		Schemas: a.JSONSchema,
	}, m.Registry(), logger)
	if err != nil {
		return err
	}
	return server.Run(ctx, cfg.Listen, router, logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
