package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/recrawler/internal/build"
	"github.com/rohmanhakim/recrawler/internal/config"
	"github.com/rohmanhakim/recrawler/internal/metadata"
	"github.com/rohmanhakim/recrawler/internal/pagedb"
	"github.com/rohmanhakim/recrawler/internal/scheduler"
	"github.com/rohmanhakim/recrawler/internal/store"
)

var (
	cfgFile      string
	pageDBPath   string
	schedulePath string
	persist      bool
	margin       float64
	maxNCrawls   uint64
	freqDefault  float64
	freqScale    float64
	crawlTime    float64
	maxRequests  int
	maxEmissions int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recrawler",
	Short: "A frequency-based recrawl scheduler.",
	Long: `recrawler decides which URL a crawler should fetch next so that,
over time, every page is revisited at its target frequency.

The schedule is a persistent priority queue keyed by virtual next-due
time and backed by a memory-mapped transactional store. Each request
pops the due-est page, consults the page database for its crawl
history, and reinserts the page one virtual period later.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON)")
	rootCmd.PersistentFlags().StringVar(&pageDBPath, "pagedb", "", "page database directory")
	rootCmd.PersistentFlags().StringVar(&schedulePath, "schedule", "", "schedule directory (default <pagedb>_freqs)")
	rootCmd.PersistentFlags().BoolVar(&persist, "persist", true, "keep schedule files on close")
	rootCmd.PersistentFlags().Float64Var(&margin, "margin", -1.0, "throttle slack; negative disables the wall-clock throttle")
	rootCmd.PersistentFlags().Uint64Var(&maxNCrawls, "max-n-crawls", 0, "retire a page after this many crawls (0 = unlimited)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(drainCmd)
}

// loadConfig resolves the effective config: the config file when given,
// otherwise defaults plus command-line flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil && !errors.Is(err, config.ErrFileDoesNotExist) {
			return config.Config{}, err
		}
		if err == nil {
			return cfg, nil
		}
		fmt.Fprintf(os.Stderr, "Warning: config file %s does not exist, using defaults\n", cfgFile)
	}
	if pageDBPath == "" {
		return config.Config{}, fmt.Errorf("--pagedb is required when no config file is given")
	}
	return config.WithDefaults(pageDBPath)
}

// schedulerOptions maps the effective config and flags onto the
// scheduler's option set. Flags changed on the command line win over
// the config file.
func schedulerOptions(cmd *cobra.Command, cfg config.Config) scheduler.Options {
	opts := scheduler.DefaultOptions()
	opts.Persist = cfg.Persist()
	opts.Margin = cfg.Margin()
	opts.MaxNCrawls = cfg.MaxNCrawls()
	opts.MapSize = cfg.MapSize()

	if cmd.Flags().Changed("persist") {
		opts.Persist = persist
	}
	if cmd.Flags().Changed("margin") {
		opts.Margin = margin
	}
	if cmd.Flags().Changed("max-n-crawls") {
		opts.MaxNCrawls = maxNCrawls
	}
	return opts
}

// openStack opens the page database and the scheduler on top of it.
// The caller closes both.
func openStack(cmd *cobra.Command, cfg config.Config) (*pagedb.LocalPageDB, *scheduler.FreqScheduler, error) {
	dbPath := cfg.PageDBPath()
	if pageDBPath != "" {
		dbPath = pageDBPath
	}
	db, err := pagedb.Open(dbPath, store.DefaultOptions())
	if err != nil {
		return nil, nil, err
	}

	schPath := cfg.SchedulePath()
	if schedulePath != "" {
		schPath = schedulePath
	}
	recorder := metadata.NewRecorder("recrawler-cli")
	sch, err := scheduler.Open(db, schPath, schedulerOptions(cmd, cfg), &recorder)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, sch, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the recrawler version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(build.FullVersion())
	},
}
