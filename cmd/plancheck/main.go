// plancheck inspects exported radiotherapy plan snapshots and produces a
// categorized verification report for human sign-off.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"plancheck/cmd/plancheck/ui"
	"plancheck/internal/config"
	"plancheck/internal/engine"
	"plancheck/internal/plan"
	"plancheck/internal/render"
	"plancheck/internal/watch"
)

var (
	// Global flags
	verbose    bool
	configPath string
	formatFlag string
	noColor    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "plancheck",
	Short: "plancheck - radiotherapy plan verification",
	Long: `plancheck inspects a treatment plan snapshot (prescription, beams,
structures, dose distribution, isocenters) and produces a categorized
verification report with severity-tagged findings and checklist items.

It catches plan-configuration issues - multiple targets, non-standard
positioning, large coordinate shifts, beam/MU anomalies, missing imaging -
before human sign-off. It never modifies plan data.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// checkCmd runs one verification pass and prints the report.
var checkCmd = &cobra.Command{
	Use:   "check [snapshot.yaml]",
	Short: "Verify one plan snapshot and print the report",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

// viewCmd opens the tabbed report viewer.
var viewCmd = &cobra.Command{
	Use:   "view [snapshot.yaml]",
	Short: "Verify one plan snapshot and browse the report per category",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

// watchCmd re-checks snapshots as they change.
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and re-check snapshots on change",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

// initConfigCmd writes the default thresholds for editing.
var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default threshold configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		if err := cfg.Save(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote default config to %s\n", args[0])
		return nil
	},
}

func loadEngine() (*engine.Engine, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(cfg, engine.WithLogger(logger)), cfg, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	eng, cfg, err := loadEngine()
	if err != nil {
		return err
	}

	snapshot, err := plan.LoadSnapshot(args[0])
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	started := time.Now()
	rep := eng.Analyze(cmd.Context(), snapshot)
	logger.Info("plan check complete",
		zap.String("run_id", runID),
		zap.String("plan", snapshot.PlanID),
		zap.String("worst", string(rep.WorstSeverity())),
		zap.Duration("elapsed", time.Since(started)))

	switch format {
	case render.FormatJSON:
		out, err := render.JSON(rep)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
	case render.FormatMarkdown:
		fmt.Fprint(cmd.OutOrStdout(), render.Markdown(rep))
	default:
		styles := render.DefaultStyles()
		if noColor || !cfg.Rendering.Color {
			styles = render.PlainStyles()
		}
		fmt.Fprint(cmd.OutOrStdout(), render.Text(rep, styles))
	}
	return nil
}

func runView(cmd *cobra.Command, args []string) error {
	eng, _, err := loadEngine()
	if err != nil {
		return err
	}
	snapshot, err := plan.LoadSnapshot(args[0])
	if err != nil {
		return err
	}
	rep := eng.Analyze(cmd.Context(), snapshot)

	model := ui.NewReportModel(rep)
	prog := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	eng, cfg, err := loadEngine()
	if err != nil {
		return err
	}

	styles := render.DefaultStyles()
	if noColor || !cfg.Rendering.Color {
		styles = render.PlainStyles()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(args[0], 0, func(path string) {
		snapshot, err := plan.LoadSnapshot(path)
		if err != nil {
			logger.Warn("skipping unreadable snapshot", zap.String("path", path), zap.Error(err))
			return
		}
		rep := eng.Analyze(ctx, snapshot)
		switch format {
		case render.FormatJSON:
			if out, err := render.JSON(rep); err == nil {
				fmt.Fprint(cmd.OutOrStdout(), out)
			}
		case render.FormatMarkdown:
			fmt.Fprint(cmd.OutOrStdout(), render.Markdown(rep))
		default:
			fmt.Fprint(cmd.OutOrStdout(), render.Text(rep, styles))
		}
	}, logger)

	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "threshold config file")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "text", "output format: text, markdown, json")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initConfigCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
