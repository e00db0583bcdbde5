// cmd/embedfeed/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/griogair/embedfeed/internal/app"
	"github.com/griogair/embedfeed/internal/config"
	"github.com/griogair/embedfeed/internal/freshrss"
	"github.com/griogair/embedfeed/internal/output"
	"github.com/griogair/embedfeed/internal/pages"
	"github.com/griogair/embedfeed/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]

	switch command {
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: embedfeed run <config.yaml>\n")
			os.Exit(1)
		}
		runHarvest(ctx, os.Args[2])

	case "sync":
		if len(os.Args) < 4 {
			fmt.Fprintf(os.Stderr, "Error: config file and listened export required\n")
			fmt.Fprintf(os.Stderr, "Usage: embedfeed sync <config.yaml> <listened.json> [--stats-only]\n")
			os.Exit(1)
		}
		runSync(os.Args[2], os.Args[3], hasFlag("--stats-only"))

	case "feeds":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: embedfeed feeds <config.yaml>\n")
			os.Exit(1)
		}
		listFeeds(ctx, os.Args[2])

	case "categories":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: embedfeed categories <config.yaml>\n")
			os.Exit(1)
		}
		listCategories(ctx, os.Args[2])

	case "history":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: embedfeed history <config.yaml>\n")
			os.Exit(1)
		}
		showHistory(os.Args[2])

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: embedfeed validate <config.yaml>\n")
			os.Exit(1)
		}
		validateConfig(os.Args[2])

	case "template":
		template, err := generateTemplate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(template)

	case "version", "--version", "-v":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runHarvest(ctx context.Context, configFile string) {
	cfg := mustLoadConfig(configFile)
	logger := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel))

	harvester, err := app.New(cfg, nil, logger)
	if err != nil {
		fatal(err)
	}
	defer harvester.Close()

	summary, err := harvester.Harvest(ctx)
	if err != nil {
		fatal(err)
	}

	for _, feed := range summary.Feeds {
		if feed.Err != nil {
			fmt.Printf("✗ %s: %v\n", feed.Name, feed.Err)
			continue
		}
		fmt.Printf("✓ %s: %d entries (%d resolved, %d skipped)\n",
			feed.Name, feed.Entries, feed.Counters.Resolved, feed.Counters.Skipped)
	}
	fmt.Printf("Harvest finished in %s: %d entries across %d feeds",
		summary.Duration.Round(10*time.Millisecond), summary.Entries, len(summary.Feeds))
	if summary.Failed > 0 {
		fmt.Printf(" (%d failed)", summary.Failed)
	}
	fmt.Println()

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func runSync(configFile, listenedFile string, statsOnly bool) {
	cfg := mustLoadConfig(configFile)
	logger := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel))

	store, err := output.NewArtifactStore(cfg.Output.Directory, logger)
	if err != nil {
		fatal(err)
	}

	export, err := output.LoadListenedExport(listenedFile)
	if err != nil {
		fatal(err)
	}

	names, err := store.List()
	if err != nil {
		fatal(err)
	}
	if len(names) == 0 {
		fmt.Println("No artifacts to sync.")
		return
	}

	failures := 0
	for _, name := range names {
		pm, err := store.Load(name)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", name, err)
			failures++
			continue
		}

		perPage := pages.EffectivePageSize(pm, store.LoadMeta(name).ItemsPerPage,
			cfg.Output.ItemsPerPage)
		synced, stats := pages.Sync(pm, export.For(name), perPage)

		fmt.Printf("%s: %d entries, %d kept, %d removed", name,
			stats.Original, stats.Kept, stats.Removed)
		if stats.NoID > 0 {
			fmt.Printf(" (%d without id, kept)", stats.NoID)
		}
		fmt.Println()

		if statsOnly {
			continue
		}
		if err := store.Write(name, synced, pages.Meta{ItemsPerPage: perPage}); err != nil {
			fmt.Printf("✗ %s: %v\n", name, err)
			failures++
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func listFeeds(ctx context.Context, configFile string) {
	client := mustAuthenticate(ctx, configFile)

	feeds, err := client.ListFeeds(ctx)
	if err != nil {
		fatal(err)
	}
	if len(feeds) == 0 {
		fmt.Println("No subscriptions found.")
		return
	}
	for _, feed := range feeds {
		fmt.Printf("%-40s %s\n", feed.Title, feed.ID)
	}
}

func listCategories(ctx context.Context, configFile string) {
	client := mustAuthenticate(ctx, configFile)

	categories, err := client.ListCategories(ctx)
	if err != nil {
		fatal(err)
	}
	if len(categories) == 0 {
		fmt.Println("No categories found.")
		return
	}
	for _, category := range categories {
		fmt.Println(category)
	}
}

func showHistory(configFile string) {
	cfg := mustLoadConfig(configFile)
	if cfg.Output.HistoryDB == "" {
		fmt.Fprintln(os.Stderr, "Error: output.history_db is not configured")
		os.Exit(1)
	}

	store, err := output.NewHistoryStore(cfg.Output.HistoryDB)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(20)
	if err != nil {
		fatal(err)
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return
	}
	for _, run := range runs {
		line := fmt.Sprintf("%s  %d feeds, %d entries",
			run.StartedAt.Local().Format("2006-01-02 15:04"), run.Feeds, run.Entries)
		if run.FailedFeeds > 0 {
			line += fmt.Sprintf(", %d failed", run.FailedFeeds)
		}
		fmt.Println(line)
	}
}

func validateConfig(configFile string) {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}
	fmt.Printf("✓ Configuration file '%s' is valid\n", configFile)
}

func generateTemplate() (string, error) {
	yamlData, err := yaml.Marshal(config.GenerateTemplate())
	if err != nil {
		return "", fmt.Errorf("failed to marshal template to YAML: %w", err)
	}
	return string(yamlData), nil
}

func mustLoadConfig(configFile string) *config.Config {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fatal(err)
	}
	return cfg
}

func mustAuthenticate(ctx context.Context, configFile string) *freshrss.Client {
	cfg := mustLoadConfig(configFile)
	logger := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel))

	client := freshrss.NewClient(cfg.Server.URL, cfg.Server.Username, cfg.Server.Password, logger)
	if err := client.Authenticate(ctx); err != nil {
		fatal(err)
	}
	return client
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// hasFlag checks if a flag is present in command line arguments
func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println("embedfeed - FreshRSS media embed harvester")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  embedfeed run <config.yaml>                       Harvest feeds and write page artifacts")
	fmt.Println("  embedfeed sync <config.yaml> <listened.json>      Remove listened entries from artifacts")
	fmt.Println("  embedfeed feeds <config.yaml>                     List server subscriptions")
	fmt.Println("  embedfeed categories <config.yaml>                List server categories")
	fmt.Println("  embedfeed history <config.yaml>                   Show recent harvest runs")
	fmt.Println("  embedfeed validate <config.yaml>                  Validate configuration file")
	fmt.Println("  embedfeed template                                Generate configuration template")
	fmt.Println("  embedfeed version                                 Show version information")
	fmt.Println("  embedfeed help                                    Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --stats-only                                      With sync: report without rewriting")
}

func printVersion() {
	fmt.Printf("embedfeed %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
