package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steamlens/steamlens/internal/cache"
	"github.com/steamlens/steamlens/internal/config"
	"github.com/steamlens/steamlens/internal/crossref"
	"github.com/steamlens/steamlens/internal/gateway"
	"github.com/steamlens/steamlens/internal/server"
	"github.com/steamlens/steamlens/internal/steam"
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
	Use:     "steamlens",
	Short:   "Explore and cross-reference Steam game reviews",
	Long:    "steamlens fetches a game's reviews, enriches them with player profiles, and cross-references what else the reviewers recommended.",
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
			// Fall back to built-in defaults when no config exists.
			cfg = config.Default()
			return nil
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
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(reviewsCmd)
	rootCmd.AddCommand(crossrefCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("steamlens", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/steamlens/",
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
		fmt.Println("Set the STEAM_API_KEY environment variable to enable profile enrichment.")
		return nil
	},
}

// --- reviews command ---

var (
	reviewsCursor string
	reviewsFilter string
	reviewsCount  int
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews [appid]",
	Short: "Fetch one page of a game's reviews, enriched with player profiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _ := buildCore()

		page, err := client.GetEnrichedReviewPage(context.Background(), args[0], steam.Options{
			Cursor:     reviewsCursor,
			Filter:     reviewsFilter,
			NumPerPage: reviewsCount,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Score: %s (%d total reviews)\n\n", page.Summary.ReviewScoreDesc, page.Summary.TotalReviews)
		for _, r := range page.Reviews {
			marker := "-"
			if r.VotedUp {
				marker = "+"
			}
			fmt.Printf("[%s] %s\n", marker, r.Author.PersonaName)
			fmt.Printf("    %s\n", truncate(r.Review, 120))
		}
		if page.Cursor != "" {
			fmt.Printf("\nNext page: --cursor %q\n", page.Cursor)
		}
		return nil
	},
}

func init() {
	reviewsCmd.Flags().StringVar(&reviewsCursor, "cursor", "", "Pagination cursor from a previous page")
	reviewsCmd.Flags().StringVar(&reviewsFilter, "filter", "", "Review filter (recent, updated, all)")
	reviewsCmd.Flags().IntVarP(&reviewsCount, "num", "n", 0, "Reviews per page")
}

// --- crossref command ---

var crossrefPages int

var crossrefCmd = &cobra.Command{
	Use:   "crossref [appid]",
	Short: "Cross-reference what else a game's positive reviewers recommended",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID := args[0]
		client, _, engine := buildCore()
		ctx := context.Background()

		page, err := client.GetEnrichedReviewPage(ctx, appID, steam.Options{})
		if err != nil {
			return err
		}

		maxPages := crossrefPages
		if maxPages == 0 {
			maxPages = cfg.Crossref.MaxPagesPerReviewer
		}

		result, err := engine.Aggregate(ctx, page.Reviews, maxPages, func(processed, total int) {
			fmt.Printf("\rProcessed %d/%d reviewers", processed, total)
		}, appID)
		if err != nil {
			return err
		}
		fmt.Println()

		printCrossref(result)
		return nil
	},
}

func init() {
	crossrefCmd.Flags().IntVar(&crossrefPages, "pages", 0, "Feed pages to visit per reviewer (default from config)")
}

func printCrossref(result *crossref.Result) {
	type row struct {
		agg   *crossref.Aggregate
		count int
	}
	var rows []row
	failed := 0
	for _, agg := range result.Reviewers {
		if agg.Err != "" {
			failed++
			continue
		}
		rows = append(rows, row{agg, len(agg.Reviews)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].count > rows[j].count })

	fmt.Printf("\n%d reviewers cross-referenced, %d failed\n\n", len(rows), failed)
	for _, r := range rows {
		fmt.Printf("%s (%d other recommendations)\n", r.agg.PersonaName, r.count)
		for appID, entry := range r.agg.Reviews {
			name := entry.GameName
			if name == "" {
				name = "app " + appID
			}
			fmt.Printf("    %s\n", name)
		}
	}
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, gw, engine := buildCore()
		srv := server.New(client, gw, engine, cfg.Crossref.MaxPagesPerReviewer)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.Serve(port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// buildCore wires the client, gateway, and engine from the loaded config.
func buildCore() (*steam.Client, *gateway.Gateway, *crossref.Engine) {
	client := steam.NewClient(
		cfg.Steam.StoreAPIURL,
		cfg.Steam.PlayerAPIURL,
		cfg.Steam.APIKeyEnv,
		cache.New(cfg.ReviewCacheTTL()),
		cache.New(cfg.PlayerCacheTTL()),
	)

	gw, err := gateway.New(cfg.Steam.TrustedOrigin, cfg.GatewayTimeout(), cache.New(cfg.GatewayCacheTTL()))
	if err != nil {
		log.Fatalf("Invalid trusted origin in config: %v", err)
	}

	engine := crossref.NewEngine(gw, cfg.Crossref.MaxConcurrentReviewers)
	return client, gw, engine
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
