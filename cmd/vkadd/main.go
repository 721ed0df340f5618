// Package main provides the vkadd CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/orneryd/vkadd/pkg/config"
	"github.com/orneryd/vkadd/pkg/gpu/vulkan"
	"github.com/orneryd/vkadd/pkg/journal"
	"github.com/orneryd/vkadd/pkg/logging"
	"github.com/orneryd/vkadd/pkg/simd"
	"github.com/orneryd/vkadd/pkg/vecadd"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

// loadDriver opens the Vulkan loader; replaced in tests.
var loadDriver = vulkan.Load

// app holds what PersistentPreRunE resolved for the running command.
type app struct {
	cfg *config.Config
	log *logrus.Entry
}

func main() {
	a := &app{}
	rootCmd := newRootCmd(a, os.Stdout, os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		log := a.log
		if log == nil {
			log = logrus.NewEntry(logrus.StandardLogger())
		}
		log.WithError(err).Error("vkadd failed")
		os.Exit(1)
	}
}

func newRootCmd(a *app, stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vkadd",
		Short: "vkadd - Vulkan compute vector addition",
		Long: `vkadd opens a Vulkan compute context, adds two float32 vectors on the GPU
with a SPIR-V kernel, reads the result back and tears everything down.

Configuration is read from --config (or ./vkadd.yaml), then VKADD_*
environment variables, then command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Logging, stderr)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = log
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./vkadd.yaml, ~/.vkadd/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("library", "", "Path to the Vulkan loader library")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := simd.Info()
			fmt.Fprintf(cmd.OutOrStdout(), "vkadd v%s (%s) built %s\n", version, commit, buildTime)
			fmt.Fprintf(cmd.OutOrStdout(), "go %s %s/%s, simd %s %v\n",
				runtime.Version(), runtime.GOOS, runtime.GOARCH, info.Implementation, info.Features)
		},
	})

	// Run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the vector-add kernel once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, a)
		},
	}
	runCmd.Flags().String("kernel", "", "SPIR-V kernel path (only this path is tried)")
	runCmd.Flags().Int("width", 0, "Vector width (dispatch X)")
	runCmd.Flags().Int("height", 0, "Vector height (dispatch Y)")
	runCmd.Flags().Int("device", 0, "Physical device index")
	runCmd.Flags().Bool("no-validation", false, "Do not request validation layers")
	runCmd.Flags().Bool("no-verify", false, "Skip checking the result on the CPU")
	runCmd.Flags().Bool("quiet", false, "Do not print result values")
	runCmd.Flags().Bool("journal", false, "Record this run in the journal")
	rootCmd.AddCommand(runCmd)

	// Devices command
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List Vulkan physical devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(cmd, a)
		},
	}
	devicesCmd.Flags().Bool("extensions", false, "Also list instance extensions, layers and device extensions")
	rootCmd.AddCommand(devicesCmd)

	// History command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, a)
		},
	}
	historyCmd.Flags().Int("limit", 20, "Maximum runs to show (0 = all)")
	rootCmd.AddCommand(historyCmd)

	return rootCmd
}

// loadConfig applies file, environment and persistent flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("library") {
		cfg.Vulkan.LibraryPath, _ = flags.GetString("library")
	}
	return cfg, nil
}

// applyRunFlags overrides cfg with the run command's flags that were set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("kernel") {
		kernel, _ := flags.GetString("kernel")
		cfg.Kernel.Paths = []string{kernel}
	}
	if flags.Changed("width") {
		cfg.Compute.Width, _ = flags.GetInt("width")
	}
	if flags.Changed("height") {
		cfg.Compute.Height, _ = flags.GetInt("height")
	}
	if flags.Changed("device") {
		cfg.Vulkan.DeviceIndex, _ = flags.GetInt("device")
	}
	if noValidation, _ := flags.GetBool("no-validation"); noValidation {
		cfg.Vulkan.Validation = false
	}
	if noVerify, _ := flags.GetBool("no-verify"); noVerify {
		cfg.Compute.Verify = false
	}
	if quiet, _ := flags.GetBool("quiet"); quiet {
		cfg.Compute.PrintResults = false
	}
	if enable, _ := flags.GetBool("journal"); enable {
		cfg.Journal.Enabled = true
	}
}

func runRun(cmd *cobra.Command, a *app) error {
	cfg := a.cfg
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.log.WithField("config", cfg.String()).Debug("Configuration loaded")

	drv, err := loadDriver(cfg.Vulkan.LibraryPath)
	if err != nil {
		return err
	}
	a.log.WithField("library", vulkan.LoadedLibrary()).Debug("Vulkan loader opened")

	runner := vecadd.NewRunner(drv, cfg, a.log, cmd.OutOrStdout())
	if cfg.Journal.Enabled {
		j, err := openJournal(cfg, a.log)
		if err != nil {
			return err
		}
		defer j.Close()
		runner.Journal = j
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := runner.Run(ctx)
	if err != nil {
		if res.FailedStep != "" {
			a.log = a.log.WithField("step", res.FailedStep)
		}
		return err
	}
	a.log.WithFields(logrus.Fields{
		"run_id":   res.RunID.String(),
		"duration": res.Duration.Round(time.Microsecond).String(),
	}).Info("Done")
	return nil
}

func runDevices(cmd *cobra.Command, a *app) error {
	cfg := a.cfg
	showExtensions, _ := cmd.Flags().GetBool("extensions")
	out := cmd.OutOrStdout()

	drv, err := loadDriver(cfg.Vulkan.LibraryPath)
	if err != nil {
		return err
	}

	if showExtensions {
		exts, err := vulkan.InstanceExtensions(drv)
		if err != nil {
			return err
		}
		layers, err := vulkan.InstanceLayers(drv)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Instance extensions (%d):\n", len(exts))
		for _, e := range exts {
			fmt.Fprintf(out, "  %s\n", e)
		}
		fmt.Fprintf(out, "Instance layers (%d):\n", len(layers))
		for _, l := range layers {
			fmt.Fprintf(out, "  %s\n", l)
		}
	}

	apiVersion, err := cfg.APIVersion()
	if err != nil {
		return err
	}
	opts := vulkan.DefaultInstanceOptions()
	opts.ApplicationName = cfg.App.Name
	opts.EngineName = cfg.App.EngineName
	opts.APIVersion = apiVersion
	opts.Layers = cfg.EnabledLayers()
	opts.Extensions = cfg.Vulkan.InstanceExtensions
	opts.Portability = cfg.Vulkan.Portability
	opts.Logger = a.log

	inst, err := vulkan.NewInstance(drv, opts)
	if err != nil {
		return err
	}
	defer inst.Release()

	devices, err := inst.PhysicalDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return vulkan.ErrNoPhysicalDevice
	}

	for _, pd := range devices {
		info := pd.Info()
		compute := "none"
		if info.ComputeFamily >= 0 {
			compute = fmt.Sprintf("%d", info.ComputeFamily)
		}
		fmt.Fprintf(out, "[%d] %s (%s) Vulkan %s, %s device-local, compute family %s\n",
			info.Index, info.Name, info.Type, info.APIVersion, formatBytes(info.DeviceLocalMemory), compute)
		if showExtensions {
			exts, err := pd.Extensions()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "    extensions: %s\n", strings.Join(exts, ", "))
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, a *app) error {
	limit, _ := cmd.Flags().GetInt("limit")
	out := cmd.OutOrStdout()

	j, err := openJournal(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Recent(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	for _, e := range entries {
		status := "ok"
		if !e.Succeeded() {
			status = "FAILED at " + e.FailedStep
		}
		fmt.Fprintf(out, "%s  %s  %-10s n=%-8d %-20s %s\n",
			e.Started.Local().Format(time.RFC3339), shortID(e.ID), e.Duration.Round(time.Millisecond),
			e.Length, e.Device, status)
		if e.Error != "" {
			fmt.Fprintf(out, "    %s\n", e.Error)
		}
	}
	return nil
}

func openJournal(cfg *config.Config, log *logrus.Entry) (*journal.Journal, error) {
	if cfg.Journal.Dir == "" {
		return nil, errors.New("journal directory not configured")
	}
	opts := journal.Options{Dir: cfg.Journal.Dir}
	// badger is chatty at info; only forward its logs when debugging.
	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		opts.Logger = log.WithField("component", "journal")
	}
	return journal.Open(opts)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatBytes(n uint64) string {
	const gib = 1 << 30
	const mib = 1 << 20
	switch {
	case n >= gib:
		return fmt.Sprintf("%.1f GiB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	}
	return fmt.Sprintf("%d B", n)
}
