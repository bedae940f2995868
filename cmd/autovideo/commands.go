package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kornfeb/Easy-Auto-Video/internal/api"
	"github.com/kornfeb/Easy-Auto-Video/internal/config"
	"github.com/kornfeb/Easy-Auto-Video/internal/logging"
	"github.com/kornfeb/Easy-Auto-Video/internal/pipeline"
	"github.com/kornfeb/Easy-Auto-Video/internal/source"
	"github.com/kornfeb/Easy-Auto-Video/internal/validator"
	"github.com/kornfeb/Easy-Auto-Video/internal/video"
)

var (
	forceRun     bool
	productName  string
	importDPI    int
	serveAddr    string
	forceSetting bool
)

func init() {
	createCmd.Flags().StringVar(&productName, "name", "", "product name")
	runCmd.Flags().BoolVarP(&forceRun, "force", "f", false, "rerun steps that are already done")
	importPDFCmd.Flags().IntVar(&importDPI, "dpi", 150, "rasterization DPI")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides settings)")
	settingsInitCmd.Flags().BoolVarP(&forceSetting, "force", "f", false, "overwrite an existing file")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsInitCmd)
}

var createCmd = &cobra.Command{
	Use:   "create [project]",
	Short: "Create a project directory layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := a.store.Create(args[0], productName); err != nil {
			return err
		}
		paths, _ := a.store.Paths(args[0])
		fmt.Printf("[+++] Project ready: %s (put images in %s, narration in %s)\n", paths.Dir, paths.Input(), paths.Audio())
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run [project]",
	Short: "Run the full pipeline for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		job, err := a.runner.Run(cmd.Context(), args[0], pipeline.Options{Force: forceRun})
		if err != nil {
			return err
		}
		switch job.State {
		case pipeline.JobCompleted:
			paths, _ := a.store.Paths(args[0])
			fmt.Printf("[+++] Done! Video: %s\n", paths.OutputVideo())
			return nil
		case pipeline.JobCancelled:
			return errors.New("pipeline cancelled")
		}
		if job.Error != nil {
			return job.Error
		}
		return fmt.Errorf("pipeline %s", job.State)
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline [project]",
	Short: "Build timeline.json from the project assets and audio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		tl, err := a.engine.BuildTimeline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("[+++] Timeline: %d segments, %.3fs\n", len(tl.Segments), tl.TotalDuration)
		return nil
	},
}

var dryrunCmd = &cobra.Command{
	Use:   "dryrun [project]",
	Short: "Validate the saved timeline without encoding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		report, err := a.engine.DryRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, e := range report.Errors {
			log.Error().Msg(e)
		}
		for _, w := range report.Warnings {
			log.Warn().Msg(w)
		}
		if report.Status == validator.StatusFail {
			return report.Err()
		}
		fmt.Printf("[+++] Dry run %s: %d frames @ %d fps\n", report.Status, report.Details.EstimatedFrameCount, report.Details.FPS)
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render [project]",
	Short: "Compile the saved timeline and encode the final video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		logger := logging.WithComponent("render").With().Str("project", args[0]).Logger()
		ctx := logger.WithContext(cmd.Context())

		next := 10.0
		rr, err := a.engine.Render(ctx, args[0], func(p video.Progress) {
			if p.Percentage >= next || p.Done {
				logger.Info().Float64("percent", p.Percentage).Str("speed", p.Speed).Msg("encoding")
				for next <= p.Percentage {
					next += 10
				}
			}
		})
		if err != nil {
			return err
		}
		fmt.Printf("[+++] Success! Video saved: %s (%.1fs in %s)\n", rr.Output, rr.Duration, rr.Elapsed.Round(time.Millisecond))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP status and control API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		addr := a.cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := api.NewServer(a.engine, a.runner, logging.WithComponent("api"))
		srv.BaseContext = cmd.Context()
		httpSrv := &http.Server{
			Addr:              addr,
			Handler:           srv.NewRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", addr).Str("projects", a.cfg.ProjectsDir).Msg("api listening")
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}

		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(ctx)
	},
}

var importPDFCmd = &cobra.Command{
	Use:   "import-pdf [pdf] [project]",
	Short: "Rasterize a PDF catalog into a project's input images",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := a.store.Create(args[1], ""); err != nil {
			return err
		}
		paths, _ := a.store.Paths(args[1])

		src, err := source.NewFitzPDFSource(args[0])
		if err != nil {
			return fmt.Errorf("open pdf: %w", err)
		}
		defer src.Close()

		files, err := source.ImportPDF(cmd.Context(), src, paths.Input(), source.ImportOptions{
			DPI:     importDPI,
			Workers: a.cfg.Workers,
			Logger:  logging.WithComponent("import"),
		})
		if err != nil {
			return err
		}
		fmt.Printf("[+++] Imported %d pages into %s\n", len(files), paths.Input())
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Settings management commands",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var settingsInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default settings file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "settings.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !forceSetting {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Printf("[+++] Settings written: %s\n", path)
		return nil
	},
}
