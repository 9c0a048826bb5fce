// Command pitchlens analyzes a startup pitch deck (PDF, PPT or PPTX)
// and writes a markdown investment-analysis report.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pitchlens/pitchlens"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		output     string
		apiKey     string
		configPath string
		skipWeb    bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "pitchlens <pitch-deck>",
		Short: "Analyze startup pitch decks and generate investment reports",
		Long: `Analyze startup pitch decks and generate investment reports.

The deck's text and images are extracted, URLs mentioned in the deck are
researched on the web, and a multimodal LLM produces a markdown report.`,
		Example: `  pitchlens pitch_deck.pdf
  pitchlens presentation.pptx --output custom_report.md
  pitchlens deck.pdf --api-key your_openrouter_key`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], output, apiKey, configPath, skipWeb, verbose)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path for the report (default: auto-generated)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenRouter API key (or set OPENROUTER_API_KEY)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().BoolVar(&skipWeb, "skip-web", false, "skip web research of URLs found in the deck")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func run(deckPath, output, apiKey, configPath string, skipWeb, verbose bool) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// A .env file in the working directory may carry the API key.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	cfg := pitchlens.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = pitchlens.LoadConfig(configPath)
		if err != nil {
			fmt.Printf("❌ Error: %v\n", err)
			return err
		}
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}

	analyzer, err := pitchlens.New(cfg)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
		fmt.Println("💡 Set your OpenRouter API key using:")
		fmt.Println("   export OPENROUTER_API_KEY='your_key_here'")
		fmt.Println("   or use the --api-key flag")
		return err
	}

	fmt.Printf("🚀 Starting analysis of: %s\n", deckPath)
	fmt.Println(divider)

	res, err := analyzer.Analyze(context.Background(), deckPath, pitchlens.Options{
		OutputPath:     output,
		SkipEnrichment: skipWeb,
	})
	if err != nil {
		fmt.Println(divider)
		fmt.Println("❌ Analysis failed!")
		fmt.Printf("Error: %v\n", err)
		return err
	}

	fmt.Println(divider)
	fmt.Println("✅ Analysis completed successfully!")
	fmt.Printf("📊 Report saved to: %s\n", res.ReportPath)
	fmt.Println()
	fmt.Println("📋 Summary:")
	fmt.Printf("   • File type: %s\n", res.Extraction.FileType)
	fmt.Printf("   • Content length: %d characters\n", res.Extraction.ContentLength)
	fmt.Printf("   • %s: %d\n", titleLabel(res.Extraction.UnitLabel), res.Extraction.Units)
	fmt.Printf("   • Links found: %d\n", res.LinksFound)
	fmt.Printf("   • Pages scraped: %d\n", res.PagesScraped)
	fmt.Printf("   • AI Model: %s\n", res.Analysis.ModelUsed)
	fmt.Printf("   • Analysis: %s\n", statusLabel(res.Analysis.Success))

	if !res.Analysis.Success {
		return errors.New("analysis failed; see the report for details")
	}
	return nil
}

const divider = "=================================================="

func titleLabel(unitLabel string) string {
	if unitLabel == "slides" {
		return "Slides"
	}
	return "Pages"
}

func statusLabel(ok bool) string {
	if ok {
		return "✅ Success"
	}
	return "❌ Failed"
}
