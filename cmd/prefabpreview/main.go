package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"prefabpreview/internal/assets"
	"prefabpreview/internal/batch"
	"prefabpreview/internal/config"
	"prefabpreview/internal/logging"
	"prefabpreview/internal/prefab"
	"prefabpreview/internal/preview"
	"prefabpreview/internal/render/headless"
	"prefabpreview/internal/render/rlbackend"
	"prefabpreview/internal/thumbstore"
	"prefabpreview/internal/viewer"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/urfave/cli/v3"
)

// Version is set during build using ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "prefabpreview",
		Version: Version,
		Usage:   "Render preview thumbnails for prefab files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars(config.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "write logs as JSON",
			},
		},
		Commands: []*cli.Command{
			renderCommand(),
			measureCommand(),
			viewCommand(),
			clearCommand(),
			{
				Name:  "version",
				Usage: "Print the version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("prefabpreview version %s\n", cmd.Root().Version)
					return nil
				},
			},
		},
	}
}

// setup loads the config and applies global flag overrides.
func setup(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Root().String("config"))
	if err != nil {
		return nil, nil, err
	}
	if lvl := cmd.Root().String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if cmd.Root().IsSet("log-json") {
		cfg.LogJSON = cmd.Root().Bool("log-json")
	}
	if dir := cmd.String("prefabs"); dir != "" {
		cfg.PrefabDir = dir
	}
	return cfg, logging.Setup(cfg.LogLevel, cfg.LogJSON), nil
}

func prefabsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "prefabs",
		Aliases: []string{"p"},
		Usage:   "directory of prefab JSON files (overrides prefab_dir)",
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Capture every prefab to PNG files",
		Flags: []cli.Flag{
			prefabsFlag(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory (overrides output_dir)"},
			&cli.BoolFlag{Name: "gpu", Usage: "render through a hidden raylib window, needed for model files"},
			&cli.BoolFlag{Name: "no-store", Usage: "skip the thumbnail database"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if out := cmd.String("out"); out != "" {
				cfg.OutputDir = out
			}
			capture, err := cfg.PreviewConfig()
			if err != nil {
				return err
			}

			opts := batch.Options{
				Capture:   capture,
				Staging:   cfg.StagingArea(),
				OutputDir: cfg.OutputDir,
				Logger:    logger,
			}
			if !cmd.Bool("no-store") && cfg.StorePath != "" {
				store, err := thumbstore.Open(cfg.StorePath, logger)
				if err != nil {
					return err
				}
				defer store.Close()
				opts.Store = store
			}

			var models prefab.ModelSource
			if cmd.Bool("gpu") {
				rl.SetConfigFlags(rl.FlagWindowHidden)
				rl.InitWindow(64, 64, "prefabpreview")
				defer rl.CloseWindow()
				manager := assets.NewManager(rlbackend.Upload)
				defer manager.Unload()
				models = manager
				opts.Backend = rlbackend.New()
			} else {
				opts.Backend = headless.New()
			}

			prefabs, err := prefab.NewLoader(models, logger).LoadDir(cfg.PrefabDir)
			if err != nil {
				if len(prefabs) == 0 {
					return err
				}
				logger.Warn("Some prefabs were skipped", "error", err)
			}

			runner, err := batch.NewRunner(opts)
			if err != nil {
				return err
			}
			defer runner.Close()

			reports, err := runner.Render(ctx, prefabs)
			var failed []error
			captured := 0
			for _, rep := range reports {
				switch {
				case rep.Err != nil:
					failed = append(failed, fmt.Errorf("%s: %w", rep.Name, rep.Err))
				case !rep.Skipped():
					captured++
				}
			}
			logger.Info("Render finished", "prefabs", len(prefabs), "captured", captured, "failed", len(failed))
			return errors.Join(append(failed, err)...)
		},
	}
}

func measureCommand() *cli.Command {
	return &cli.Command{
		Name:  "measure",
		Usage: "Print bounds and output size for every prefab",
		Flags: []cli.Flag{prefabsFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			capture, err := cfg.PreviewConfig()
			if err != nil {
				return err
			}
			prefabs, err := prefab.NewLoader(nil, logger).LoadDir(cfg.PrefabDir)
			if err != nil && len(prefabs) == 0 {
				return err
			}
			printMeasurements(batch.Measure(prefabs, capture), capture)
			return err
		},
	}
}

func printMeasurements(rows []batch.Measurement, capture *preview.Config) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "PREFAB\tSIZE\tIMAGE (%s)\n", capture.Sizing)
	for _, m := range rows {
		if !m.Capturable() {
			fmt.Fprintf(w, "%s\t-\t-\n", m.Name)
			continue
		}
		s := m.Bounds.Size()
		fmt.Fprintf(w, "%s\t%.3gx%.3gx%.3g\t%dx%d\n", m.Name, s.X, s.Y, s.Z, m.Width, m.Height)
	}
	w.Flush()
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "Browse prefab thumbnails in a window",
		Flags: []cli.Flag{prefabsFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			capture, err := cfg.PreviewConfig()
			if err != nil {
				return err
			}
			opts := viewer.Options{
				PrefabDir: cfg.PrefabDir,
				Capture:   capture,
				Staging:   cfg.StagingArea(),
				Logger:    logger,
			}
			if cfg.StorePath != "" {
				store, err := thumbstore.Open(cfg.StorePath, logger)
				if err != nil {
					return err
				}
				defer store.Close()
				opts.Store = store
			}
			err = viewer.New(opts).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every stored thumbnail",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			store, err := thumbstore.Open(cfg.StorePath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			count, size, err := store.Stats(ctx)
			if err != nil {
				return err
			}
			if err := store.Clear(ctx); err != nil {
				return err
			}
			fmt.Printf("removed %d thumbnails (%d bytes)\n", count, size)
			return nil
		},
	}
}
