package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kornfeb/Easy-Auto-Video/internal/analyzer"
	"github.com/kornfeb/Easy-Auto-Video/internal/config"
	"github.com/kornfeb/Easy-Auto-Video/internal/engine"
	"github.com/kornfeb/Easy-Auto-Video/internal/logging"
	"github.com/kornfeb/Easy-Auto-Video/internal/pipeline"
	"github.com/kornfeb/Easy-Auto-Video/internal/project"
	"github.com/kornfeb/Easy-Auto-Video/internal/system"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	cfgFile     string
	projectsDir string
	verbose     bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "autovideo",
	Short:        "autovideo - narrated product videos from images and a voice track",
	Long:         "Builds a timeline of product images over a narration track, validates it and renders the final video with ffmpeg.",
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		_ = godotenv.Load()

		logging.Init(verbose)
		system.InitResourceLimits(log.Logger)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if projectsDir != "" {
			cfg.ProjectsDir = projectsDir
		}
		cfg.BuildVersion = Version

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default: ./settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&projectsDir, "projects", "", "projects directory (overrides settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(dryrunCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importPDFCmd)
	rootCmd.AddCommand(settingsCmd)
}

// app is the wiring shared by every command.
type app struct {
	cfg    *config.Config
	store  *project.Store
	engine *engine.Engine
	runner *pipeline.Runner
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.FromContext(ctx)
	store := project.NewStore(cfg.ProjectsDir)

	det, err := analyzer.NewSubjectDetector(ctx, cfg.Detector, logging.WithComponent("analyzer"))
	if err != nil {
		return nil, err
	}

	eng := engine.New(cfg, store, det, logging.WithComponent("engine"))
	runner := pipeline.NewRunner(store, pipeline.DefaultSteps(eng), logging.WithComponent("pipeline"))
	return &app{cfg: cfg, store: store, engine: eng, runner: runner}, nil
}
