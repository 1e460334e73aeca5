package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/catalysts/internal/collect"
	"github.com/TobiSchelling/catalysts/internal/config"
	"github.com/TobiSchelling/catalysts/internal/database"
	"github.com/TobiSchelling/catalysts/internal/directory"
	"github.com/TobiSchelling/catalysts/internal/docstore"
	"github.com/TobiSchelling/catalysts/internal/extract"
	"github.com/TobiSchelling/catalysts/internal/ocr"
	"github.com/TobiSchelling/catalysts/internal/pipeline"
	"github.com/TobiSchelling/catalysts/internal/server"
	"github.com/TobiSchelling/catalysts/internal/store"
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
	Use:     "catalysts",
	Short:   "Earnings calendar extraction",
	Long:    "Catalysts extracts earnings events from calendar screenshots, pasted lists and news feeds.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Secrets such as API keys may live in a local .env file.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("Ignoring .env: %v", err)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			setLogFlags(verbose)
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err != nil && configPath != "":
			return err
		case err != nil:
			cfg = config.Default()
		default:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}

		setLogFlags(verbose || strings.EqualFold(cfg.Logging.Level, "DEBUG"))
		if path == "" {
			log.Println("No config file found, using defaults. Run 'catalysts init' to create one.")
		}
		return nil
	},
}

func setLogFlags(debug bool) {
	if debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(pasteCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(directoryCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("catalysts", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/catalysts/",
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
		fmt.Println("Edit it to configure the OCR provider, storage and news sources.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and extraction status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		today := store.Today()
		stats, err := st.GetStats(today)
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		dir, err := loadDirectory()
		if err != nil {
			return err
		}

		fmt.Printf("Today: %s\n\n", today)
		fmt.Println("Events:")
		fmt.Printf("  Stored: %d\n", stats.Events)
		fmt.Printf("  Tickers: %d\n", stats.Tickers)
		fmt.Printf("  Upcoming: %d\n", stats.Upcoming)
		if len(stats.BySource) > 0 {
			fmt.Println("\nBy source:")
			for _, src := range sortedKeys(stats.BySource) {
				fmt.Printf("  %s: %d\n", src, stats.BySource[src])
			}
		}
		fmt.Println("\nExtraction runs:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		if stats.LastRun != "" {
			fmt.Printf("  Last: %s\n", stats.LastRun)
		}
		fmt.Println("\nSetup:")
		fmt.Printf("  Storage: %s (%s)\n", cfg.Storage.Backend, cfg.GetDataDir())
		fmt.Printf("  OCR provider: %s\n", cfg.OCR.Provider)
		fmt.Printf("  Directory: %d companies\n", dir.Len())
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := newPipeline(cmd.Context(), st)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		opts := server.Options{
			APIToken:       os.Getenv(cfg.Server.APITokenEnv),
			MaxUploadBytes: cfg.MaxUploadBytes(),
		}
		if opts.APIToken == "" {
			log.Printf("%s not set, API routes are unauthenticated", cfg.Server.APITokenEnv)
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(p, opts, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- extract command ---

var extractSave bool

var extractCmd = &cobra.Command{
	Use:   "extract IMAGE",
	Short: "Extract earnings events from a calendar screenshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading image: %w", err)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := newPipeline(cmd.Context(), st)
		if err != nil {
			return err
		}

		res, err := p.ProcessUpload(cmd.Context(), image)
		if err != nil {
			return err
		}
		printSteps(res.Steps)

		fmt.Printf("\n%s\n\n", res.Message)
		printEvents(res.Events)

		if !extractSave || len(res.Events) == 0 {
			return nil
		}
		records, err := p.SaveEvents(res.Events)
		if err != nil {
			return err
		}
		fmt.Printf("\nSaved %d events.\n", len(records))
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "Save the detected events")
}

// --- paste command ---

var pasteDefaultDate string

var pasteCmd = &cobra.Command{
	Use:   "paste [FILE]",
	Short: "Add events from pasted lines (reads stdin without FILE)",
	Long: `Add events from lines such as "NVDA 1/25/2025 AMC". Anything after # is
ignored. Lines without a ticker or date are reported and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			text []byte
			err  error
		)
		if len(args) == 1 {
			text, err = os.ReadFile(args[0])
		} else {
			text, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := newTextPipeline(st)
		if err != nil {
			return err
		}

		res, err := p.ProcessBulk(string(text), pasteDefaultDate)
		if err != nil {
			return err
		}

		fmt.Printf("Added %d events.\n", res.Added)
		if len(res.Skipped) > 0 {
			fmt.Printf("\nSkipped %d lines:\n", len(res.Skipped))
			for _, s := range res.Skipped {
				fmt.Printf("  %-30s %s\n", s.Line, s.Reason)
			}
		}
		return nil
	},
}

func init() {
	pasteCmd.Flags().StringVar(&pasteDefaultDate, "default-date", "", "Date for lines without one")
}

// --- import command ---

var importSave bool

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Extract earnings events from configured feeds and pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Sources.Feeds) == 0 && len(cfg.Sources.Pages) == 0 {
			fmt.Println("No sources configured. Add feeds or pages to the config.")
			return nil
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := newTextPipeline(st)
		if err != nil {
			return err
		}

		collector := collect.NewCollector(cfg, nil)
		res, err := p.Import(cmd.Context(), collector, importSave)
		printSteps(res.Steps)
		if err != nil {
			return err
		}

		fmt.Println()
		for _, d := range res.Documents {
			fmt.Printf("%s: %s (%d)\n", d.Document.Source, d.Document.Title, len(d.Events))
		}
		fmt.Println()
		printEvents(res.Events)
		if !importSave {
			fmt.Println("\nDry run. Use --save to store these events.")
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importSave, "save", false, "Save the extracted events")
}

// --- events command ---

var (
	eventsTicker string
	eventsFrom   string
	eventsLimit  int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List stored earnings events",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.ListEvents(store.Filter{
			Ticker: strings.ToUpper(eventsTicker),
			From:   eventsFrom,
			Limit:  eventsLimit,
		})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No events stored. Add some with: catalysts paste")
			return nil
		}

		events := make([]extract.Event, len(records))
		for i, r := range records {
			events[i] = r.Event
		}
		printEvents(events)
		return nil
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsTicker, "ticker", "", "Only show this ticker")
	eventsCmd.Flags().StringVar(&eventsFrom, "from", "", "Only show events on or after YYYY-MM-DD")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "Maximum events to show (0 for all)")
}

// --- directory command ---

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Inspect the ticker directory",
}

var directoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := loadDirectory()
		if err != nil {
			return err
		}
		for _, e := range dir.Entries() {
			fmt.Printf("  %-6s %s\n", e.Ticker, e.CompanyName)
		}
		fmt.Printf("\n%d entries\n", dir.Len())
		return nil
	},
}

var directoryResolveCmd = &cobra.Command{
	Use:   "resolve LABEL...",
	Short: "Resolve company labels to tickers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := loadDirectory()
		if err != nil {
			return err
		}
		for _, label := range args {
			res, ok := dir.Resolve(label)
			switch {
			case !ok:
				fmt.Printf("  %-24s (no match)\n", label)
			case res.Synthesized:
				fmt.Printf("  %-24s %-6s %s (synthesized)\n", label, res.Ticker, res.CompanyName)
			default:
				fmt.Printf("  %-24s %-6s %s\n", label, res.Ticker, res.CompanyName)
			}
		}
		return nil
	},
}

func init() {
	directoryCmd.AddCommand(directoryListCmd)
	directoryCmd.AddCommand(directoryResolveCmd)
}

// --- helpers ---

func openStore() (store.Store, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		return docstore.Open(filepath.Join(dataDir, "badger"))
	default:
		return database.Open(filepath.Join(dataDir, "catalysts.db"))
	}
}

func loadDirectory() (*directory.Directory, error) {
	if cfg.Directory.Path == "" {
		return directory.Default(), nil
	}
	dir, err := directory.Load(cfg.Directory.Path)
	if err != nil {
		return nil, fmt.Errorf("loading directory: %w", err)
	}
	return dir, nil
}

func newExtractor() (*extract.Extractor, error) {
	dir, err := loadDirectory()
	if err != nil {
		return nil, err
	}
	return extract.New(dir,
		extract.WithMaxEvents(cfg.Extraction.MaxEvents),
		extract.WithWindow(cfg.Extraction.CalendarWindow),
	), nil
}

// newPipeline builds a pipeline with the configured OCR client. A client
// that cannot be constructed is replaced by one that reports the cause on
// every call, so the rest of the service stays usable.
func newPipeline(ctx context.Context, st store.Store) (*pipeline.Pipeline, error) {
	x, err := newExtractor()
	if err != nil {
		return nil, err
	}

	client, err := ocr.New(ctx, ocr.Config{
		Provider:          cfg.OCR.Provider,
		APIKeyEnv:         cfg.OCR.APIKeyEnv,
		CredentialsFile:   cfg.OCR.CredentialsFile,
		Endpoint:          cfg.OCR.Endpoint,
		GeminiModel:       cfg.OCR.GeminiModel,
		GeminiAPIKeyEnv:   cfg.OCR.GeminiAPIKeyEnv,
		MaxLogos:          cfg.OCR.MaxLogos,
		RequestsPerSecond: cfg.OCR.RequestsPerSecond,
	})
	if err != nil {
		log.Printf("OCR unavailable: %v", err)
		client = ocr.Unavailable(err)
	}

	return pipeline.New(client, x, st, cfg.Extraction.ExtractedTextChars), nil
}

// newTextPipeline builds a pipeline for text-only commands, which never
// call OCR.
func newTextPipeline(st store.Store) (*pipeline.Pipeline, error) {
	x, err := newExtractor()
	if err != nil {
		return nil, err
	}
	client := ocr.Unavailable(fmt.Errorf("OCR is not used by this command"))
	return pipeline.New(client, x, st, cfg.Extraction.ExtractedTextChars), nil
}

func printSteps(steps []pipeline.StepResult) {
	for i, step := range steps {
		fmt.Printf("\nStep %d/%d: %s\n", i+1, len(steps), step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
}

func printEvents(events []extract.Event) {
	if len(events) == 0 {
		fmt.Println("No events.")
		return
	}
	for _, e := range events {
		fmt.Printf("  %s  %-6s %-4s %-28s %s\n", e.EarningsDate, e.StockTicker, e.EarningsType, e.CompanyName, e.Source)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
