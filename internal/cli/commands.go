package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/recrawler/internal/pagedb"
	"github.com/rohmanhakim/recrawler/internal/store"
	"github.com/rohmanhakim/recrawler/pkg/limiter"
	"github.com/rohmanhakim/recrawler/pkg/timeutil"
)

var seedCmd = &cobra.Command{
	Use:   "seed <url>...",
	Short: "Register seed URLs in the page database",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dbPath := cfg.PageDBPath()
		if pageDBPath != "" {
			dbPath = pageDBPath
		}
		db, err := pagedb.Open(dbPath, store.DefaultOptions())
		if err != nil {
			return err
		}
		defer db.Close()

		for _, raw := range args {
			if err := db.AddSeed(raw); err != nil {
				return err
			}
		}
		fmt.Printf("seeded %d URL(s)\n", len(args))
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Record one crawled page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, sch, err := openStack(cmd, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		defer sch.Close()

		when := crawlTime
		if when <= 0 {
			when = timeutil.NewRealClock().NowSeconds()
		}
		return sch.Add(&pagedb.CrawledPage{
			URL:  args[0],
			Time: when,
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Populate the schedule from the page database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, sch, err := openStack(cmd, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		defer sch.Close()

		fd := float32(cfg.FreqDefault())
		fs := float32(cfg.FreqScale())
		if cmd.Flags().Changed("freq-default") {
			fd = float32(freqDefault)
		}
		if cmd.Flags().Changed("freq-scale") {
			fs = float32(freqScale)
		}
		return sch.LoadFromPageDB(fd, fs)
	},
}

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Pop up to --max due URLs and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, sch, err := openStack(cmd, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		defer sch.Close()

		urls, err := sch.Request(maxRequests)
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Println(u)
		}
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the schedule in ascending key order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, sch, err := openStack(cmd, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		defer sch.Close()

		return sch.Dump(os.Stdout)
	},
}

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Continuously pop due URLs, paced by the emission limiter",
	Long: `drain repeatedly requests batches from the schedule and prints the
URLs, bounded by a global emissions-per-second rate and a per-host
minimum delay. It stops when the schedule yields an empty batch or
--max-emissions is reached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, sch, err := openStack(cmd, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		defer sch.Close()

		pacer := limiter.NewConcurrentEmissionLimiter()
		pacer.SetGlobalRate(cfg.EmitRate())
		pacer.SetHostDelay(time.Duration(cfg.HostDelaySeconds() * float64(time.Second)))
		sleeper := timeutil.NewRealSleeper()

		emitted := 0
		for maxEmissions <= 0 || emitted < maxEmissions {
			batch := cfg.BatchSize()
			if maxEmissions > 0 && maxEmissions-emitted < batch {
				batch = maxEmissions - emitted
			}
			urls, err := sch.Request(batch)
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				break
			}
			for _, raw := range urls {
				if err := pacer.WaitGlobal(context.Background()); err != nil {
					return err
				}
				host := ""
				if u, perr := url.Parse(raw); perr == nil {
					host = u.Host
				}
				sleeper.Sleep(pacer.ResolveDelay(host))
				fmt.Println(raw)
				pacer.MarkEmission(host)
				emitted++
			}
		}
		return nil
	},
}

func init() {
	addCmd.Flags().Float64Var(&crawlTime, "time", 0, "crawl timestamp in seconds since epoch (0 = now)")
	loadCmd.Flags().Float64Var(&freqDefault, "freq-default", 1.0/86400.0, "frequency for pages without a usable rate estimate")
	loadCmd.Flags().Float64Var(&freqScale, "freq-scale", -1.0, "multiplier on a page's observed crawl rate (<= 0 disables)")
	requestCmd.Flags().IntVar(&maxRequests, "max", 16, "maximum URLs per request batch")
	drainCmd.Flags().IntVar(&maxEmissions, "max-emissions", 0, "stop after this many URLs (0 = until empty)")
}
