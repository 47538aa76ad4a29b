package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"auto_sniper/models"
	"auto_sniper/scraper"
)

var (
	listingsPath string
	queryPath    string
	outputPath   string
	skipFilter   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Rank a file of listings against a search query",
	Long: `Runs merge, distance and history enrichment, the AI pre-filter and fitness
scoring over a JSON array of listings and prints the ranked result as JSON.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&listingsPath, "listings", "", "JSON array of listings")
	analyzeCmd.Flags().StringVar(&queryPath, "query", "", "JSON search query")
	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "-", "output file, - for stdout")
	analyzeCmd.Flags().BoolVar(&skipFilter, "skip-filter", false, "skip the AI pre-filter")
	_ = analyzeCmd.MarkFlagRequired("listings")
	_ = analyzeCmd.MarkFlagRequired("query")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var listings []models.Listing
	if err := readJSON(listingsPath, &listings); err != nil {
		return err
	}
	var query models.SearchQuery
	if err := readJSON(queryPath, &query); err != nil {
		return err
	}

	p, err := newPipeline(ctx, cfg, nil, !skipFilter)
	if err != nil {
		return err
	}
	defer p.Close()

	var opts []scraper.OrchestratorOption
	if p.prefilter != nil {
		opts = append(opts, scraper.WithPreFilter(p.prefilter))
	}
	orchestrator := scraper.NewOrchestrator(scraper.StaticSource(listings), p.processor, p.analyzer, opts...)

	ranked, err := orchestrator.RunSearch(ctx, models.SearchJob{Query: query, Platform: models.PlatformAll})
	if err != nil {
		return err
	}
	log.Info().Int("listings", len(ranked)).Msg("analysis complete")

	var out io.Writer = os.Stdout
	if outputPath != "-" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(ranked)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
