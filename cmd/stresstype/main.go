// Package main provides the CLI entrypoint for stresstype.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/stresstype/internal/config"
	"github.com/verte-zerg/stresstype/internal/model"
	"github.com/verte-zerg/stresstype/internal/passage"
	"github.com/verte-zerg/stresstype/internal/stats"
	"github.com/verte-zerg/stresstype/internal/statsui"
	"github.com/verte-zerg/stresstype/internal/store"
	"github.com/verte-zerg/stresstype/internal/stress"
	"github.com/verte-zerg/stresstype/internal/tui"
)

var version = "dev"

const (
	defaultDurationSec  = 60
	defaultHesitationMs = 2000
	defaultCurveWindow  = 5
	defaultDriver       = store.DriverSQLite
)

var (
	checkDuration     int
	checkHesitation   int
	checkPassage      string
	checkPassagesFile string

	historySince       string
	historyLast        int
	historyCurveWindow int
	historySource      string
	historyPlain       bool

	exportFormat string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stresstype",
		Short:         "Typing stress check",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runCheckCmd,
	}

	addCheckFlags(rootCmd)

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newPassagesCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&checkDuration, "duration", defaultDurationSec, "session length in seconds")
	cmd.Flags().IntVar(&checkHesitation, "hesitation", defaultHesitationMs, "pause in milliseconds that counts as a hesitation")
	cmd.Flags().StringVar(&checkPassage, "passage", "", "passage to type instead of the pool")
	cmd.Flags().StringVar(&checkPassagesFile, "passages-file", "", "passage pool file (blank-line separated)")
}

// checkSettings resolves config file values and flags for a check.
func checkSettings(cmd *cobra.Command, fileCfg config.FileConfig) (model.Config, error) {
	applyIntConfig(cmd, "duration", &checkDuration, fileCfg.Check.DurationSec)
	applyIntConfig(cmd, "hesitation", &checkHesitation, fileCfg.Check.HesitationMs)
	applyStringConfig(cmd, "passage", &checkPassage, fileCfg.Check.Passage)
	applyStringConfig(cmd, "passages-file", &checkPassagesFile, fileCfg.Check.PassagesFile)

	cfg := model.Config{
		Duration:     time.Duration(checkDuration) * time.Second,
		Hesitation:   time.Duration(checkHesitation) * time.Millisecond,
		Passage:      checkPassage,
		PassagesPath: checkPassagesFile,
	}
	return cfg, validateConfig(cfg)
}

func validateConfig(cfg model.Config) error {
	if cfg.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	if cfg.Hesitation <= 0 {
		return fmt.Errorf("--hesitation must be > 0")
	}
	if cfg.Passage == "" {
		return nil
	}
	text := passage.Normalize(cfg.Passage)
	if text == "" {
		return fmt.Errorf("--passage must contain text")
	}
	if !passage.Printable(text) {
		return fmt.Errorf("--passage must be printable text")
	}
	return nil
}

// loadPicker builds the passage picker. An explicit pool file must exist;
// the default pool file is optional.
func loadPicker(cfg model.Config) (*passage.Picker, error) {
	path := cfg.PassagesPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultPassagesPath()
	}
	pool, err := passage.LoadPassages(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return passage.NewPicker(cfg.Passage, nil), nil
		}
		return nil, fmt.Errorf("failed to load passages: %w", err)
	}
	return passage.NewPicker(cfg.Passage, pool), nil
}

func storeConfig(fileCfg config.FileConfig) model.StoreConfig {
	cfg := model.StoreConfig{Driver: defaultDriver, DSN: config.DefaultDBPath()}
	if fileCfg.History.Driver != nil {
		cfg.Driver = *fileCfg.History.Driver
	}
	if fileCfg.History.DSN != nil {
		cfg.DSN = *fileCfg.History.DSN
	}
	return cfg
}

func openStore(ctx context.Context, fileCfg config.FileConfig) (store.Store, error) {
	st, err := store.Open(ctx, storeConfig(fileCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return st, nil
}

func closeStore(st store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close history: %v\n", cerr)
	}
}

func runCheckCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := checkSettings(cmd, fileCfg)
	if err != nil {
		return err
	}
	picker, err := loadPicker(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(context.Background(), fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctrl := stress.NewController(picker.Pick,
		stress.WithDuration(cfg.Duration),
		stress.WithHesitation(cfg.Hesitation),
	)
	m := tui.NewModel(ctrl, st)
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
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
	if err := writeConfigTemplate(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeConfigTemplate creates the config file unless it already exists.
func writeConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func newPassagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passages",
		Short: "List the passage pool",
		Args:  cobra.NoArgs,
		RunE:  runPassagesCmd,
	}
	cmd.Flags().StringVar(&checkPassagesFile, "passages-file", "", "passage pool file (blank-line separated)")
	return cmd
}

func runPassagesCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "passages-file", &checkPassagesFile, fileCfg.Check.PassagesFile)
	picker, err := loadPicker(model.Config{PassagesPath: checkPassagesFile})
	if err != nil {
		return err
	}
	for i, text := range picker.Pool() {
		words := len(strings.Fields(text))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%2d. (%d words) %s\n", i+1, words, preview(text, 60)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func preview(text string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-3]) + "..."
}

func addHistoryFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().StringVar(&historySource, "source", "", "session source filter (tui or api)")
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past checks",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	addHistoryFilterFlags(cmd)
	cmd.Flags().IntVar(&historyCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a text report instead of the browser")
	return cmd
}

func historyConfig(cmd *cobra.Command, fileCfg config.FileConfig) (model.HistoryConfig, error) {
	if cmd.Flags().Lookup("curve-window") != nil {
		applyIntConfig(cmd, "curve-window", &historyCurveWindow, fileCfg.History.CurveWindow)
	}
	cfg := model.HistoryConfig{
		Last:        historyLast,
		CurveWindow: historyCurveWindow,
		Source:      strings.ToLower(strings.TrimSpace(historySource)),
	}
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	if cfg.Last < 0 {
		return cfg, fmt.Errorf("--last must be >= 0")
	}
	if cfg.CurveWindow < 1 {
		return cfg, fmt.Errorf("--curve-window must be >= 1")
	}
	switch cfg.Source {
	case "", store.SourceTUI, store.SourceAPI:
	default:
		return cfg, fmt.Errorf("--source must be %q or %q", store.SourceTUI, store.SourceAPI)
	}
	return cfg, nil
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := historyConfig(cmd, fileCfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if historyPlain {
		return printHistory(ctx, cmd, st, cfg)
	}
	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func printHistory(ctx context.Context, cmd *cobra.Command, st store.Store, cfg model.HistoryConfig) error {
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.Sessions); err != nil {
		return err
	}
	if len(report.Sessions) == 0 {
		return nil
	}
	if err := stats.RenderCurves(out, report.Sessions, cfg.CurveWindow); err != nil {
		return err
	}
	if err := stats.RenderFactors(out, report.Sessions); err != nil {
		return err
	}
	return stats.RenderSessionTable(out, report.Sessions)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	addHistoryFilterFlags(cmd)
	cmd.Flags().StringVar(&exportFormat, "format", stats.FormatJSON, "output format (json or yaml)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	switch strings.ToLower(exportFormat) {
	case stats.FormatJSON, stats.FormatYAML:
	default:
		return fmt.Errorf("--format must be %q or %q", stats.FormatJSON, stats.FormatYAML)
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	historyCurveWindow = 1
	cfg, err := historyConfig(cmd, fileCfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	records, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	return stats.Export(cmd.OutOrStdout(), records, exportFormat)
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

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# stresstype configuration
# Uncomment a value to enable it. CLI flags override config values.

[check]
# duration = %d           # Session length in seconds
# hesitation-ms = %d    # Pause that counts as a hesitation
# passage = ""            # Always type this passage
# passages-file = %q

[history]
# driver = %q        # sqlite or postgres
# dsn = %q
# curve-window = %d         # Moving average window for curves
# %s overrides dsn.

[serve]
# addr = %q
# retention = %d          # Seconds a finished API session stays readable
`,
		defaultDurationSec,
		defaultHesitationMs,
		config.DefaultPassagesPath(),
		defaultDriver,
		config.DefaultDBPath(),
		defaultCurveWindow,
		config.EnvHistoryDSN,
		defaultAddr,
		defaultRetentionSec,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
