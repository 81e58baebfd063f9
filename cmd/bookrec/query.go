// ABOUTME: CLI commands for recommendations and catalog browsing.
// ABOUTME: Provides recommend, books, and genres subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389-research/bookrec/internal/catalog"
	"github.com/2389-research/bookrec/internal/models"
	"github.com/2389-research/bookrec/internal/recommend"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <preferences>",
	Short: "Recommend books for a description of your taste",
	Long:  "Embed the preferences and print the most similar books in the catalog.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecommend,
}

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List catalog books",
	Long:  "List catalog books, optionally filtered by genre, rating, and publication years.",
	RunE:  runBooks,
}

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List catalog genres",
	RunE:  runGenres,
}

// Flags
var (
	recommendLimit int
	filterGenre    string
	filterRating   float64
	filterYears    string
)

func init() {
	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "n", recommend.DefaultLimit, "number of recommendations")
	for _, cmd := range []*cobra.Command{recommendCmd, booksCmd} {
		cmd.Flags().StringVar(&filterGenre, "genre", "", "only books in this genre")
		cmd.Flags().Float64Var(&filterRating, "min-rating", 0, "only books rated at least this")
		cmd.Flags().StringVar(&filterYears, "year-range", "", "only books published in START-END")
	}

	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(genresCmd)
}

// filterFromFlags builds a catalog filter. Unlike the HTTP API, a malformed
// year range is an error here.
func filterFromFlags(cmd *cobra.Command) (catalog.Filter, error) {
	f := catalog.Filter{Genre: strings.TrimSpace(filterGenre)}
	if cmd.Flags().Changed("min-rating") {
		rating := filterRating
		f.MinRating = &rating
	}
	if filterYears != "" {
		yr, ok := catalog.ParseYearRange(filterYears)
		if !ok {
			return catalog.Filter{}, fmt.Errorf("invalid --year-range %q: want START-END", filterYears)
		}
		f.Years = &yr
	}
	return f, nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	if recommendLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.service.Recommend(ctx, recommend.Query{
		Preferences: strings.Join(args, " "),
		Limit:       recommendLimit,
		Filter:      filter,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(recs) == 0 {
		fmt.Fprintln(out, "No books match those filters.")
		return nil
	}
	for i, r := range recs {
		fmt.Fprintf(out, "%d. %s by %s (%s, %d)  similarity %.3f\n", i+1, r.Title, r.Author, r.Genre, r.Year, r.SimilarityScore)
		if r.Description != "" {
			fmt.Fprintf(out, "   %s\n", r.Description)
		}
	}
	return nil
}

func runBooks(cmd *cobra.Command, args []string) error {
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	books := globalCatalog.Filter(filter)
	out := cmd.OutOrStdout()
	if len(books) == 0 {
		fmt.Fprintln(out, "No books found.")
		return nil
	}
	for _, b := range books {
		fmt.Fprintln(out, formatBook(b))
	}
	return nil
}

func runGenres(cmd *cobra.Command, args []string) error {
	for _, g := range globalCatalog.Genres() {
		fmt.Fprintln(cmd.OutOrStdout(), g)
	}
	return nil
}

func formatBook(b models.Book) string {
	return fmt.Sprintf("[%d] %s by %s  %s, %d, rated %.1f", b.ID, b.Title, b.Author, b.Genre, b.Year, b.Rating)
}
