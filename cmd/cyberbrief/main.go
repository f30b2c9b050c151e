package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/cyberbrief/internal/config"
	"github.com/TobiSchelling/cyberbrief/internal/news"
	"github.com/TobiSchelling/cyberbrief/internal/pipeline"
	"github.com/TobiSchelling/cyberbrief/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cyberbrief",
	Short:   "Daily cybersecurity news curation",
	Long:    "cyberbrief retrieves regional cybersecurity news and has a language model curate it per industry sector.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(curateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cyberbrief", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/cyberbrief/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to choose countries, sectors and the LLM provider.")
		fmt.Println("API keys are read from the environment or a .env file.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run history and stored data",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n", db.Path())
		fmt.Printf("Output backend: %s\n\n", cfg.Output.Backend)

		fmt.Println("Runs:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		fmt.Printf("  Failed units: %d\n", stats.FailedUnits)

		latest, err := db.GetLatestRun()
		if err != nil {
			return fmt.Errorf("getting latest run: %w", err)
		}
		if latest != nil {
			finished := "still running or interrupted"
			if latest.FinishedAt != nil {
				finished = *latest.FinishedAt
			}
			fmt.Printf("  Latest: #%d started %s, finished %s\n", latest.ID, latest.StartedAt, finished)
			fmt.Printf("          %d ok, %d failed, %d skipped\n", latest.Succeeded, latest.Failed, latest.Skipped)
		}

		if cfg.Output.Backend == "sqlite" {
			fmt.Println("\nStored:")
			fmt.Printf("  Record sets: %d (%d records)\n", stats.RecordSets, stats.Records)
			fmt.Printf("  Curations: %d\n", stats.Curations)
		}
		return nil
	},
}

// --- retrieve command ---

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [country...]",
	Short: "Retrieve today's news for the given or configured countries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = cfg.Countries
		}
		countries, err := parseCountries(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var errs []error
		for _, c := range countries {
			records, err := a.fetcher.Retrieve(cmd.Context(), string(c))
			if err != nil {
				fmt.Printf("%s: %v\n", c, err)
				errs = append(errs, err)
				continue
			}
			fmt.Printf("%s: stored %d records\n", c, len(records))
		}
		return errors.Join(errs...)
	},
}

// --- curate command ---

var curateCount int

var curateCmd = &cobra.Command{
	Use:   "curate <country> <sector>",
	Short: "Curate a country's stored records for one sector",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		country, err := news.ParseCountry(args[0])
		if err != nil {
			return err
		}
		count := curateCount
		if count == 0 {
			count = cfg.ArticleCount
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		cur, err := a.curator.Curate(cmd.Context(), news.Query{
			Country:      country,
			Sector:       args[1],
			ArticleCount: count,
		})
		if err != nil {
			return err
		}
		printCuration(cur)
		return nil
	},
}

func init() {
	curateCmd.Flags().IntVarP(&curateCount, "count", "n", 0, "Number of articles to select (default from config)")
}

// --- run command ---

var (
	dryRun       bool
	runCountries []string
	runSectors   []string
	runCount     int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Retrieve and curate every configured country and sector",
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := buildPlan(runCountries, runSectors, runCount)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if dryRun {
			a, err := newReadOnlyApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			printResult(a.pipeline.DryRun(ctx, plan))
			return nil
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.pipeline.Run(ctx, plan)
		printResult(result)

		if n := result.Count(pipeline.StatusFailed); n > 0 {
			return fmt.Errorf("%d of %d units failed", n, len(result.Units))
		}
		if ctx.Err() != nil {
			return fmt.Errorf("run interrupted")
		}
		fmt.Println("\nRun complete! Run 'cyberbrief serve' to browse the curations.")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().StringSliceVar(&runCountries, "country", nil, "Countries to process (default from config)")
	runCmd.Flags().StringSliceVar(&runSectors, "sector", nil, "Sectors to curate (default from config)")
	runCmd.Flags().IntVarP(&runCount, "count", "n", 0, "Articles per curation (default from config)")
}

// --- show command ---

var showCmd = &cobra.Command{
	Use:   "show <country> [sector]",
	Short: "Print a stored curation, or list a country's curations",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		country, err := news.ParseCountry(args[0])
		if err != nil {
			return err
		}

		a, err := newReadOnlyApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 2 {
			cur, err := a.store.LoadCuration(cmd.Context(), country, args[1])
			if err != nil {
				return err
			}
			printCuration(cur)
			return nil
		}

		records, err := a.store.LoadRecords(cmd.Context(), country)
		switch {
		case errors.Is(err, news.ErrNotFound):
			fmt.Printf("No records stored for %s. Run 'cyberbrief retrieve %s'.\n", country, country)
		case err != nil:
			return err
		default:
			fmt.Printf("%s: %d records stored\n", country, len(records))
		}

		keys, err := a.store.ListCurations(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("\nCurations:")
		found := false
		for _, k := range keys {
			if k.Country == country {
				fmt.Printf("  %s\n", k.Sector)
				found = true
			}
		}
		if !found {
			fmt.Println("  (none)")
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		a, err := newReadOnlyApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(a.store, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- schedule command ---

var scheduleSpec string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the full batch on a cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := cfg.Schedule.Cron
		if scheduleSpec != "" {
			spec = scheduleSpec
		}
		plan, err := buildPlan(nil, nil, 0)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(log.Default())))
		_, err = c.AddFunc(spec, func() {
			log.Println("Scheduled run starting")
			result := a.pipeline.Run(ctx, plan)
			log.Printf("Scheduled run finished: %d ok, %d failed, %d skipped, %d cancelled",
				result.Count(pipeline.StatusOK), result.Count(pipeline.StatusFailed),
				result.Count(pipeline.StatusSkipped), result.Count(pipeline.StatusCancelled))
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", spec, err)
		}

		c.Start()
		fmt.Printf("Scheduled with %q. Press Ctrl+C to stop\n", spec)

		<-ctx.Done()
		log.Println("Shutting down scheduler, waiting for a running batch to finish")
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "", "Cron expression (default from config)")
}

// --- helpers ---

func buildPlan(countries, sectors []string, count int) (pipeline.Plan, error) {
	if len(countries) == 0 {
		countries = cfg.Countries
	}
	if len(sectors) == 0 {
		sectors = cfg.Sectors
	}
	if count == 0 {
		count = cfg.ArticleCount
	}

	parsed, err := parseCountries(countries)
	if err != nil {
		return pipeline.Plan{}, err
	}
	if len(sectors) == 0 {
		return pipeline.Plan{}, fmt.Errorf("%w: no sectors configured", news.ErrInvalidInput)
	}
	if count < 1 {
		return pipeline.Plan{}, fmt.Errorf("%w: article count must be positive, got %d", news.ErrInvalidInput, count)
	}
	return pipeline.Plan{Countries: parsed, Sectors: sectors, ArticleCount: count}, nil
}

func parseCountries(names []string) ([]news.Country, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no countries configured", news.ErrInvalidInput)
	}
	countries := make([]news.Country, 0, len(names))
	for _, n := range names {
		c, err := news.ParseCountry(n)
		if err != nil {
			return nil, err
		}
		countries = append(countries, c)
	}
	return countries, nil
}

func printResult(result *pipeline.Result) {
	for _, u := range result.Units {
		label := string(u.Country)
		if u.Sector != "" {
			label += "/" + u.Sector
		}
		fmt.Printf("\n%s %s: %s\n", u.Stage, label, u.Status)
		if u.Err != nil {
			fmt.Printf("  Error: %v\n", u.Err)
		} else if u.Summary != "" {
			fmt.Printf("  %s\n", u.Summary)
		}
	}
}

func printCuration(cur *news.Curation) {
	fmt.Printf("%s / %s\n\n", cur.Country, cur.Sector)
	for _, a := range cur.Articles {
		fmt.Printf("  [%d] %s\n", a.ID, a.Title)
		fmt.Printf("      %s, %s\n", a.SourceName, a.PublishedAt)
		fmt.Printf("      %s\n", a.Link)
	}
	fmt.Printf("\n%s\n", cur.Summary)
}
