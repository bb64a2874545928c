// Command soundboard is a minimal front end for the dynamics core: it loads
// a directory of WAV clips, runs them through the compressor with the
// persisted settings, and plays them through the default audio device.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"

	dynamics "github.com/tphakala/go-audio-dynamics"
	"github.com/tphakala/go-audio-dynamics/internal/config"
	"github.com/tphakala/go-audio-dynamics/internal/library"
	"github.com/tphakala/go-audio-dynamics/internal/playback"
)

// appName scopes the default config and cache locations.
const appName = "soundboard"

// pollInterval is how often the play command checks for voices finishing.
const pollInterval = 50 * time.Millisecond

var (
	soundsDir    string
	settingsPath string
	cacheDir     string
	verbose      bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Soundboard with single-band compression and two-tier clip caching",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	scope := gap.NewScope(gap.User, appName)
	defaultSettings, err := scope.ConfigPath("settings.json")
	if err != nil {
		defaultSettings = "settings.json"
	}
	defaultCache, err := scope.CacheDir()
	if err != nil {
		defaultCache = ".cache"
	}
	defaultCache = filepath.Join(defaultCache, "processed")

	pf := root.PersistentFlags()
	pf.StringVar(&soundsDir, "sounds", "sounds", "directory of WAV clips")
	pf.StringVar(&settingsPath, "settings", defaultSettings, "settings file")
	pf.StringVar(&cacheDir, "cache", defaultCache, "processed-clip cache directory")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(listCmd(), playCmd(), setCmd(), enableCmd(), clearCacheCmd())
	return root
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the loaded sound clips",
		RunE: func(*cobra.Command, []string) error {
			items, err := library.Load(soundsDir, log.Default())
			if err != nil {
				return err
			}
			for _, item := range items {
				group := item.Group
				if group == "" {
					group = "-"
				}
				fmt.Printf("%-30s %8s  %6.2fs  %s\n",
					item.Key, group, item.Duration.Seconds(), item.Clip.Format)
			}
			return nil
		},
	}
}

func playCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <key>...",
		Short: "Play one or more clips through the compressor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			player, err := playback.New(playback.Config{Logger: log.Default()})
			if err != nil {
				return err
			}

			board, err := newBoard(player)
			if err != nil {
				return err
			}

			for _, key := range args {
				if err := board.Play(key); err != nil {
					return err
				}
			}
			for player.Busy() {
				time.Sleep(pollInterval)
			}

			if verbose {
				stats := board.Stats()
				log.Debug("cache outcomes",
					"mem_hits", stats.MemHits,
					"disk_hits", stats.DiskHits,
					"processed", stats.Processed,
					"raw", stats.RawPlays,
					"fallbacks", stats.Fallbacks)
			}
			return nil
		},
	}
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <parameter> <value>",
		Short: "Update one compressor parameter and invalidate the caches",
		Long: "Parameters: input-gain, threshold, ratio, attack, release, makeup,\n" +
			"ceiling, cache-size. Values are clamped to the parameter's domain.",
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			field, err := parseField(args[0])
			if err != nil {
				return err
			}
			var value float64
			if _, err := fmt.Sscanf(args[1], "%g", &value); err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}

			board, err := newBoard(nil)
			if err != nil {
				return err
			}
			updated := board.UpdateSetting(field, value)
			if err := config.Save(settingsPath, updated); err != nil {
				return err
			}
			fmt.Printf("%s updated, revision %d, signature %s\n",
				field, updated.Revision, updated.Signature())
			return nil
		},
	}
}

func enableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable on|off",
		Short: "Toggle processing without touching the caches",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}

			settings := config.Load(settingsPath, log.Default()).WithEnabled(enabled)
			if err := config.Save(settingsPath, settings); err != nil {
				return err
			}
			fmt.Printf("compressor %s\n", args[0])
			return nil
		},
	}
}

func clearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Remove every processed clip from the disk cache",
		RunE: func(*cobra.Command, []string) error {
			board, err := newBoard(nil)
			if err != nil {
				return err
			}
			board.ClearCaches()
			if err := config.Save(settingsPath, board.Settings()); err != nil {
				return err
			}
			return nil
		},
	}
}

// newBoard wires settings, sounds and caches into a board. The player may
// be nil for commands that never play.
func newBoard(player dynamics.Player) (*dynamics.Board, error) {
	settings := config.Load(settingsPath, log.Default())

	board, err := dynamics.NewBoard(dynamics.BoardConfig{
		Settings: settings,
		CacheDir: cacheDir,
		Player:   player,
		Logger:   log.Default(),
	})
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(soundsDir); err == nil {
		items, err := library.Load(soundsDir, log.Default())
		if err != nil {
			return nil, err
		}
		board.ReplaceSounds(items)
	}
	return board, nil
}

// parseField maps a CLI parameter name onto a settings field.
func parseField(name string) (dynamics.Field, error) {
	switch name {
	case "input-gain":
		return dynamics.FieldInputGainDB, nil
	case "threshold":
		return dynamics.FieldThresholdDB, nil
	case "ratio":
		return dynamics.FieldRatio, nil
	case "attack":
		return dynamics.FieldAttackMs, nil
	case "release":
		return dynamics.FieldReleaseMs, nil
	case "makeup":
		return dynamics.FieldMakeupGainDB, nil
	case "ceiling":
		return dynamics.FieldOutputCeilingDB, nil
	case "cache-size":
		return dynamics.FieldCacheMaxItems, nil
	default:
		return 0, fmt.Errorf("unknown parameter %q", name)
	}
}
