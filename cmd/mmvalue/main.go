package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/mmvalue/internal/config"
	"github.com/sawpanic/mmvalue/internal/config/tuning"
	"github.com/sawpanic/mmvalue/internal/config/weights"
	"github.com/sawpanic/mmvalue/internal/microstructure"
	"github.com/sawpanic/mmvalue/internal/valuation/composite"
	"github.com/sawpanic/mmvalue/internal/valuation/models"
)

const (
	appName = "mmvalue"
	version = "v1.0.0"
)

// app carries the loaded configuration into every subcommand
type app struct {
	configPath string
	logLevel   string
	jsonOut    bool

	cfg     *config.Config
	tuning  *tuning.Tuning
	weights *weights.Loader
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Market-maker depth valuation engine",
		Version: version,
		Long: `mmvalue values the liquidity a market maker provides: crypto-tuned effective
depth per liquidity tier and a composite dollar value blending eight
market-microstructure models, calibrated against daily volume.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "config/mmvalue.yaml", "Service config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug|info|warn|error), overrides config")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(
		newValueCmd(a),
		newDepthCmd(a),
		newCalibrateCmd(a),
		newWeightsCmd(a),
		newServeCmd(a),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup configures logging and loads config, tuning and weights presets
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	setupLogging("info")

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	setupLogging(level)

	a.tuning = tuning.Default()
	if t, err := tuning.LoadFile(cfg.Paths.Tuning); err == nil {
		a.tuning = t
		log.Debug().Str("path", cfg.Paths.Tuning).Msg("Loaded tuning overrides")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	a.weights = weights.NewLoader()
	if err := a.weights.LoadFromFile(cfg.Paths.Weights); err == nil {
		log.Debug().Str("path", cfg.Paths.Weights).Strs("presets", a.weights.Names()).Msg("Loaded weights presets")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if !a.jsonOut && !term.IsTerminal(int(os.Stdout.Fd())) {
		a.jsonOut = true
	}
	return nil
}

// setupLogging writes human-readable logs to a terminal and JSON otherwise
func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func (a *app) valuator() *composite.Valuator {
	return composite.NewValuator(models.NewEngine(&a.tuning.Models), &a.tuning.Calibration)
}

func (a *app) depthCalculator() *microstructure.EffectiveDepthCalculator {
	return microstructure.NewEffectiveDepthCalculator(&a.tuning.Depth)
}
