// Package main provides the CLI entrypoint for forceplate.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ysegawa/forceplate/internal/config"
	"github.com/ysegawa/forceplate/internal/detect"
	"github.com/ysegawa/forceplate/internal/export"
	"github.com/ysegawa/forceplate/internal/model"
	"github.com/ysegawa/forceplate/internal/report"
	"github.com/ysegawa/forceplate/internal/session"
	"github.com/ysegawa/forceplate/internal/store"
	"github.com/ysegawa/forceplate/internal/synth"
	"github.com/ysegawa/forceplate/internal/tui"
)

var (
	analyzeSubject  string
	analyzeMode     string
	samplingRate    float64
	forceThreshold  float64
	baselinePeriod  float64
	contactSdFactor float64
	axisChannel     string
	leadChannel     string

	runSubject string
	runMode    string
	runPick    string
	runSave    bool
	runNoPlot  bool

	exportOut     string
	exportSubject string
	exportMode    string
	exportSince   string
	exportLast    int

	resultsSubject string
	resultsMode    string
	resultsSince   string
	resultsLast    int

	synthProfile  string
	synthOut      string
	synthDuration float64
	synthPeak     float64
	synthRate     float64
	synthNoise    float64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "forceplate [trial.csv ...]",
		Short:         "Force-plate event-window analysis",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.ArbitraryArgs,
		RunE:          runAnalyzeCmd,
	}

	rootCmd.Flags().StringVar(&analyzeSubject, "subject", "", "subject name")
	rootCmd.Flags().StringVar(&analyzeMode, "mode", string(model.ModeLMJ), "analysis mode (LMJ or Throwing)")
	addDetectionFlags(rootCmd)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newResultsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSynthCmd())

	return rootCmd
}

func addDetectionFlags(cmd *cobra.Command) {
	defaults := model.DefaultDetection()
	cmd.Flags().Float64Var(&samplingRate, "sampling-rate", defaults.SamplingRate, "sampling rate (Hz)")
	cmd.Flags().Float64Var(&forceThreshold, "force-threshold", defaults.ForceThreshold, "start/end force threshold (N)")
	cmd.Flags().Float64Var(&baselinePeriod, "baseline-period", defaults.BaselinePeriod, "lead-foot baseline period (s)")
	cmd.Flags().Float64Var(&contactSdFactor, "contact-sd-factor", defaults.ContactSdFactor, "foot-contact SD factor")
	cmd.Flags().StringVar(&axisChannel, "axis-channel", defaults.AxisChannel, "axis-foot force channel")
	cmd.Flags().StringVar(&leadChannel, "lead-channel", defaults.LeadChannel, "lead-foot force channel")
}

// resolveDetection layers file config over defaults, then flags over both.
func resolveDetection(cmd *cobra.Command) (model.DetectionConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.DetectionConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyFloatConfig(cmd, "sampling-rate", &samplingRate, fileCfg.Analysis.SamplingRate)
	applyFloatConfig(cmd, "force-threshold", &forceThreshold, fileCfg.Analysis.ForceThreshold)
	applyFloatConfig(cmd, "baseline-period", &baselinePeriod, fileCfg.Analysis.BaselinePeriod)
	applyFloatConfig(cmd, "contact-sd-factor", &contactSdFactor, fileCfg.Analysis.ContactSdFactor)
	applyStringConfig(cmd, "axis-channel", &axisChannel, fileCfg.Analysis.AxisChannel)
	applyStringConfig(cmd, "lead-channel", &leadChannel, fileCfg.Analysis.LeadChannel)

	cfg := model.DetectionConfig{
		SamplingRate:    samplingRate,
		ForceThreshold:  forceThreshold,
		BaselinePeriod:  baselinePeriod,
		ContactSdFactor: contactSdFactor,
		AxisChannel:     axisChannel,
		LeadChannel:     leadChannel,
	}
	if cfg.SamplingRate <= 0 {
		return model.DetectionConfig{}, fmt.Errorf("--sampling-rate must be > 0")
	}
	if cfg.ForceThreshold <= 0 {
		return model.DetectionConfig{}, fmt.Errorf("--force-threshold must be > 0")
	}
	if cfg.BaselinePeriod <= 0 {
		return model.DetectionConfig{}, fmt.Errorf("--baseline-period must be > 0")
	}
	if cfg.ContactSdFactor <= 0 {
		return model.DetectionConfig{}, fmt.Errorf("--contact-sd-factor must be > 0")
	}
	return cfg, nil
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one trial file is required")
	}
	cfg, err := resolveDetection(cmd)
	if err != nil {
		return err
	}
	mode, ok := model.ParseMode(analyzeMode)
	if !ok {
		return fmt.Errorf("unknown mode %q (LMJ or Throwing)", analyzeMode)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	sess := session.New(cfg)
	sess.SetMode(mode)
	if analyzeSubject != "" {
		sess.SetSubject(analyzeSubject)
	}

	uiModel := tui.NewModel(sess, st, args)
	program := tea.NewProgram(uiModel, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trial.csv>",
		Short: "Analyze one trial non-interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunCmd,
	}
	cmd.Flags().StringVar(&runSubject, "subject", "", "subject name (required)")
	cmd.Flags().StringVar(&runMode, "mode", string(model.ModeLMJ), "analysis mode (LMJ or Throwing)")
	cmd.Flags().StringVar(&runPick, "pick", "first", "start candidate rule: first, last, index=N, or time=SECONDS")
	cmd.Flags().BoolVar(&runSave, "save", false, "store the result")
	cmd.Flags().BoolVar(&runNoPlot, "no-plot", false, "skip the waveform plot")
	addDetectionFlags(cmd)
	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := resolveDetection(cmd)
	if err != nil {
		return err
	}
	mode, ok := model.ParseMode(runMode)
	if !ok {
		return fmt.Errorf("unknown mode %q (LMJ or Throwing)", runMode)
	}
	chooser, err := pickChooser(runPick)
	if err != nil {
		return err
	}

	sess := session.New(cfg)
	sess.SetSubject(runSubject)
	sess.SetMode(mode)
	if err := sess.LoadFile(args[0]); err != nil {
		return err
	}

	win, met, err := sess.Detect(chooser)
	if err != nil {
		if errors.Is(err, detect.ErrNoWindow) {
			fmt.Fprintln(cmd.OutOrStdout(), "No analysis window found.")
			return nil
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Peak force: %.2f N\n", met.PeakForce)
	fmt.Fprintf(out, "Impulse:    %.2f N·s\n", met.Impulse)
	fmt.Fprintf(out, "Window:     %.4fs – %.4fs\n\n", met.StartTime, met.EndTime)

	if !runNoPlot {
		series, err := report.WaveformSeries(sess.Table(), win, cfg.AxisChannel)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("%s (%s)", cfg.AxisChannel, mode)
		if err := report.PlotWaveform(out, title, series, 0, 10, false); err != nil {
			return err
		}
	}

	if runSave {
		rec, err := sess.Confirm()
		if err != nil {
			return err
		}
		st, err := store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		if _, err := st.InsertResult(context.Background(), rec, time.Now()); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
		fmt.Fprintln(out, "Result saved.")
	}
	return nil
}

// pickChooser builds a pre-supplied disambiguation rule for batch use.
func pickChooser(rule string) (detect.Chooser, error) {
	rule = strings.TrimSpace(rule)
	switch {
	case rule == "" || rule == "first":
		return detect.ChooseFirst, nil
	case rule == "last":
		return detect.ChooserFunc(func(times []float64) (float64, error) {
			return times[len(times)-1], nil
		}), nil
	case strings.HasPrefix(rule, "index="):
		n, err := strconv.Atoi(strings.TrimPrefix(rule, "index="))
		if err != nil {
			return nil, fmt.Errorf("invalid --pick index: %w", err)
		}
		return detect.ChooserFunc(func(times []float64) (float64, error) {
			if n < 1 || n > len(times) {
				return 0, fmt.Errorf("--pick index %d out of range (1-%d)", n, len(times))
			}
			return times[n-1], nil
		}), nil
	case strings.HasPrefix(rule, "time="):
		v, err := strconv.ParseFloat(strings.TrimPrefix(rule, "time="), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --pick time: %w", err)
		}
		return detect.ChooserFunc(func([]float64) (float64, error) {
			return v, nil
		}), nil
	}
	return nil, fmt.Errorf("unknown --pick rule %q", rule)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored results to CSV",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportOut, "out", "", "output CSV path (required)")
	cmd.Flags().StringVar(&exportSubject, "subject", "", "subject filter")
	cmd.Flags().StringVar(&exportMode, "mode", "", "mode filter")
	cmd.Flags().StringVar(&exportSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&exportLast, "last", 0, "limit to last N results")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	if exportOut == "" {
		return fmt.Errorf("--out is required")
	}
	filter, err := buildFilter(exportSubject, exportMode, exportSince, exportLast)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	results, err := st.ListResults(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no results to export")
	}
	records := make([]model.ResultRecord, len(results))
	for i, r := range results {
		records[i] = r.ResultRecord
	}
	if err := export.WriteFile(exportOut, records); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d results to %s\n", len(records), exportOut)
	return nil
}

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List stored results",
		Args:  cobra.NoArgs,
		RunE:  runResultsCmd,
	}
	cmd.Flags().StringVar(&resultsSubject, "subject", "", "subject filter")
	cmd.Flags().StringVar(&resultsMode, "mode", "", "mode filter")
	cmd.Flags().StringVar(&resultsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&resultsLast, "last", 0, "limit to last N results")
	return cmd
}

func runResultsCmd(cmd *cobra.Command, _ []string) error {
	filter, err := buildFilter(resultsSubject, resultsMode, resultsSince, resultsLast)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	results, err := st.ListResults(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := report.RenderResults(out, results); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, ""); err != nil {
		return err
	}
	return report.RenderSummary(out, results)
}

func buildFilter(subject, mode, since string, last int) (model.ResultFilter, error) {
	filter := model.ResultFilter{Subject: subject, Last: last}
	if mode != "" {
		parsed, ok := model.ParseMode(mode)
		if !ok {
			return model.ResultFilter{}, fmt.Errorf("unknown mode %q (LMJ or Throwing)", mode)
		}
		filter.Mode = string(parsed)
	}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.ResultFilter{}, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	return filter, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic trial CSV",
		Args:  cobra.NoArgs,
		RunE:  runSynthCmd,
	}
	defaults := synth.DefaultConfig()
	cmd.Flags().StringVar(&synthProfile, "profile", "jump", "trial profile: jump or throw")
	cmd.Flags().StringVar(&synthOut, "out", "", "output CSV path (required)")
	cmd.Flags().Float64Var(&synthDuration, "duration", defaults.Duration, "trial duration (s)")
	cmd.Flags().Float64Var(&synthPeak, "peak", defaults.PeakForce, "peak force (N)")
	cmd.Flags().Float64Var(&synthRate, "rate", defaults.SamplingRate, "sampling rate (Hz)")
	cmd.Flags().Float64Var(&synthNoise, "noise", defaults.Noise, "jitter amplitude (N)")
	return cmd
}

func runSynthCmd(cmd *cobra.Command, _ []string) error {
	if synthOut == "" {
		return fmt.Errorf("--out is required")
	}
	cfg := synth.Config{
		SamplingRate: synthRate,
		Duration:     synthDuration,
		PeakForce:    synthPeak,
		Noise:        synthNoise,
	}
	if cfg.SamplingRate <= 0 {
		return fmt.Errorf("--rate must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}

	var trial *synth.Trial
	switch synthProfile {
	case "jump":
		trial = synth.Jump(cfg)
	case "throw":
		trial = synth.Throw(cfg)
	default:
		return fmt.Errorf("unknown profile %q (jump or throw)", synthProfile)
	}
	if err := trial.WriteFile(synthOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", synthOut)
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	defaults := model.DefaultDetection()
	return fmt.Sprintf(`# forceplate configuration
# Uncomment a value to enable it. CLI flags override config values.

[analysis]
# sampling-rate = %.1f       # Sampling rate (Hz)
# force-threshold = %.1f       # Start/end force threshold (N)
# baseline-period = %.1f        # Lead-foot baseline period (s)
# contact-sd-factor = %.1f      # Foot-contact SD factor
# axis-channel = %q   # Axis-foot force channel
# lead-channel = %q   # Lead-foot force channel
`,
		defaults.SamplingRate,
		defaults.ForceThreshold,
		defaults.BaselinePeriod,
		defaults.ContactSdFactor,
		defaults.AxisChannel,
		defaults.LeadChannel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
