// Package main provides the CLI entrypoint for pomoquest.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pomoquest/internal/config"
	"pomoquest/internal/model"
	"pomoquest/internal/session"
	"pomoquest/internal/stats"
	"pomoquest/internal/statsui"
	"pomoquest/internal/store"
	"pomoquest/internal/tui"
	"pomoquest/internal/unlock"
)

const (
	defaultWorkMinutes       = 25
	defaultShortBreakMinutes = 5
	defaultLongBreakMinutes  = 15
	defaultRoundsPerCycle    = 4
	defaultExtendMinutes     = 5
	defaultMicroMinutes      = 10
)

var (
	timerWorkMinutes       int
	timerShortBreakMinutes int
	timerLongBreakMinutes  int
	timerRoundsPerCycle    int
	timerExtendMinutes     int
	timerMicroMinutes      int
	timerStreakBonus       bool
	timerCycleBonus        bool
	timerKickoffBonus      bool

	statsSince string
	statsLast  int
	statsPlain bool

	historySince string
	historyLast  int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pomoquest",
		Short:         "Focus timer with XP, streaks, and unlockables",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTimerCmd,
	}

	rootCmd.Flags().IntVar(&timerWorkMinutes, "work", defaultWorkMinutes, "focus session length in minutes")
	rootCmd.Flags().IntVar(&timerShortBreakMinutes, "short-break", defaultShortBreakMinutes, "short break length in minutes")
	rootCmd.Flags().IntVar(&timerLongBreakMinutes, "long-break", defaultLongBreakMinutes, "long break length in minutes")
	rootCmd.Flags().IntVar(&timerRoundsPerCycle, "rounds", defaultRoundsPerCycle, "focus rounds per cycle")
	rootCmd.Flags().IntVar(&timerExtendMinutes, "extend", defaultExtendMinutes, "minutes added per extension")
	rootCmd.Flags().IntVar(&timerMicroMinutes, "micro", defaultMicroMinutes, "micro focus session length in minutes")
	rootCmd.Flags().BoolVar(&timerStreakBonus, "streak-bonus", true, "award the daily streak bonus")
	rootCmd.Flags().BoolVar(&timerCycleBonus, "cycle-bonus", true, "award the full cycle bonus")
	rootCmd.Flags().BoolVar(&timerKickoffBonus, "kickoff-bonus", true, "award the daily kickoff bonus")

	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newCollectionCmd())
	rootCmd.AddCommand(newEquipCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runTimerCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveTimerConfig(cmd)
	if err != nil {
		return err
	}

	catalog, err := unlock.Default()
	if err != nil {
		return fmt.Errorf("failed to load unlock catalog: %w", err)
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

	coord := session.New(st, catalog, cfg)
	program := tea.NewProgram(tui.NewModel(cfg, coord, st), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func resolveTimerConfig(cmd *cobra.Command) (model.TimerConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.TimerConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "work", &timerWorkMinutes, fileCfg.Timer.WorkMinutes)
	applyIntConfig(cmd, "short-break", &timerShortBreakMinutes, fileCfg.Timer.ShortBreakMinutes)
	applyIntConfig(cmd, "long-break", &timerLongBreakMinutes, fileCfg.Timer.LongBreakMinutes)
	applyIntConfig(cmd, "rounds", &timerRoundsPerCycle, fileCfg.Timer.RoundsPerCycle)
	applyIntConfig(cmd, "extend", &timerExtendMinutes, fileCfg.Timer.ExtendMinutes)
	applyIntConfig(cmd, "micro", &timerMicroMinutes, fileCfg.Timer.MicroMinutes)
	applyBoolConfig(cmd, "streak-bonus", &timerStreakBonus, fileCfg.Bonuses.Streak)
	applyBoolConfig(cmd, "cycle-bonus", &timerCycleBonus, fileCfg.Bonuses.Cycle)
	applyBoolConfig(cmd, "kickoff-bonus", &timerKickoffBonus, fileCfg.Bonuses.Kickoff)

	cfg := model.TimerConfig{
		WorkDuration:       time.Duration(timerWorkMinutes) * time.Minute,
		ShortBreakDuration: time.Duration(timerShortBreakMinutes) * time.Minute,
		LongBreakDuration:  time.Duration(timerLongBreakMinutes) * time.Minute,
		RoundsPerCycle:     timerRoundsPerCycle,
		ExtendBy:           time.Duration(timerExtendMinutes) * time.Minute,
		MicroMinutes:       timerMicroMinutes,
		StreakBonus:        timerStreakBonus,
		CycleBonus:         timerCycleBonus,
		KickoffBonus:       timerKickoffBonus,
	}
	if err := validateTimerConfig(cfg); err != nil {
		return model.TimerConfig{}, err
	}
	return cfg, nil
}

func validateTimerConfig(cfg model.TimerConfig) error {
	if cfg.WorkDuration <= 0 {
		return fmt.Errorf("--work must be > 0")
	}
	if cfg.ShortBreakDuration <= 0 {
		return fmt.Errorf("--short-break must be > 0")
	}
	if cfg.LongBreakDuration <= 0 {
		return fmt.Errorf("--long-break must be > 0")
	}
	if cfg.RoundsPerCycle <= 0 {
		return fmt.Errorf("--rounds must be > 0")
	}
	if cfg.ExtendBy <= 0 {
		return fmt.Errorf("--extend must be > 0")
	}
	if cfg.MicroMinutes <= 0 {
		return fmt.Errorf("--micro must be > 0")
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show progress and stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print to stdout instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveStatsConfig(statsSince, statsLast)
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

	if statsPlain {
		report, err := stats.BuildReport(context.Background(), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		return stats.RenderSummary(cmd.OutOrStdout(), report)
	}

	catalog, err := unlock.Default()
	if err != nil {
		return fmt.Errorf("failed to load unlock catalog: %w", err)
	}
	program := tea.NewProgram(statsui.NewModel(st, catalog, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 20, "limit to last N sessions")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveStatsConfig(historySince, historyLast)
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

	sessions, err := st.ListSessions(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	return stats.RenderHistory(cmd.OutOrStdout(), sessions)
}

func newCollectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collection",
		Short: "List unlocked and upcoming items",
		Args:  cobra.NoArgs,
		RunE:  runCollectionCmd,
	}
}

func runCollectionCmd(cmd *cobra.Command, _ []string) error {
	catalog, err := unlock.Default()
	if err != nil {
		return fmt.Errorf("failed to load unlock catalog: %w", err)
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

	unlocks, err := st.ListUnlocks(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list unlocks: %w", err)
	}
	byKey := make(map[model.UnlockKey]model.Unlock, len(unlocks))
	for _, u := range unlocks {
		byKey[u.UnlockKey] = u
	}

	out := cmd.OutOrStdout()
	for _, cat := range []model.UnlockCategory{model.CategoryTheme, model.CategoryCompanion, model.CategoryTitle} {
		if _, err := fmt.Fprintf(out, "%s:\n", cat); err != nil {
			return err
		}
		for _, e := range catalog.ByCategory(cat) {
			line := fmt.Sprintf("  [ ] %s (%s) — locked", e.Name, e.Key)
			if u, ok := byKey[e.UnlockKey]; ok {
				marker := "x"
				if u.Equipped {
					marker = "*"
				}
				line = fmt.Sprintf("  [%s] %s (%s)", marker, e.Name, e.Key)
			}
			if _, err := fmt.Fprintln(out, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func newEquipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "equip <theme|companion|title> <key>",
		Short: "Equip an unlocked item",
		Args:  cobra.ExactArgs(2),
		RunE:  runEquipCmd,
	}
}

func runEquipCmd(cmd *cobra.Command, args []string) error {
	var category model.UnlockCategory
	switch args[0] {
	case "theme":
		category = model.CategoryTheme
	case "companion":
		category = model.CategoryCompanion
	case "title":
		category = model.CategoryTitle
	default:
		return fmt.Errorf("unknown category %q (use theme, companion, or title)", args[0])
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

	if err := st.Equip(context.Background(), category, args[1]); err != nil {
		return fmt.Errorf("failed to equip %s/%s: %w", category, args[1], err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Equipped %s %s.\n", category, args[1]); err != nil {
		return err
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

func resolveStatsConfig(since string, last int) (model.StatsConfig, error) {
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	return model.StatsConfig{Since: sinceTime, Last: last}, nil
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

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# pomoquest configuration
# Uncomment a value to enable it. CLI flags override config values.

[timer]
# work-minutes = %d        # Focus session length
# short-break-minutes = %d # Short break length
# long-break-minutes = %d # Long break length
# rounds-per-cycle = %d    # Focus rounds before a long break
# extend-minutes = %d      # Minutes added per extension
# micro-minutes = %d      # Micro focus session length

[bonuses]
# streak = true           # Daily streak XP bonus
# cycle = true            # Full cycle XP bonus
# kickoff = true          # First session of the day XP bonus
`,
		defaultWorkMinutes,
		defaultShortBreakMinutes,
		defaultLongBreakMinutes,
		defaultRoundsPerCycle,
		defaultExtendMinutes,
		defaultMicroMinutes,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
