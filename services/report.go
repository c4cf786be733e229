package services

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"airbnb-explorer/models"
)

// PrintReport writes r to w as a coloured terminal report.
func PrintReport(w io.Writer, r *models.Report) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)
	section := func(title string) {
		fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
		fmt.Fprintf(w, "  %s\n", thin)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 AIRBNB NYC LISTINGS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	section("Overview")
	fmt.Fprintf(w, "  Source          : %s\n", truncate(r.Info.Source, 60))
	fmt.Fprintf(w, "  Listings loaded : \033[1m%d\033[0m\n", r.Info.Rows)
	fmt.Fprintf(w, "  Rows skipped    : \033[1m%d\033[0m\n", r.Info.Skipped)
	for _, p := range r.Info.Problems {
		fmt.Fprintf(w, "    \033[2m%s\033[0m\n", truncate(p, 60))
	}
	fmt.Fprintln(w)

	section("First listings")
	printListings(w, r.Head)
	fmt.Fprintln(w)

	section(fmt.Sprintf("Most expensive (%d listings at the top price tier)", r.ExpensiveCount))
	if len(r.MostExpensive) == 0 {
		fmt.Fprintf(w, "  No expensive listings found\n")
	} else {
		printListings(w, r.MostExpensive)
	}
	fmt.Fprintln(w)

	section("Average price by room type")
	for _, g := range r.RoomTypes {
		fmt.Fprintf(w, "  %-30s \033[1;32m$%.2f\033[0m\n", truncate(g.Group, 28), g.Value)
	}
	fmt.Fprintln(w)

	section("Hosts with the most listings")
	if len(r.TopHosts) == 0 {
		fmt.Fprintf(w, "  No hosts found\n")
	}
	for i, h := range r.TopHosts {
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %s with \033[1m%d\033[0m listings\n", i+1, h.HostName, h.Count)
		for _, l := range h.Sample {
			fmt.Fprintf(w, "       %-40s %s\n", truncate(l.Name, 38), price(l.Price))
		}
	}
	fmt.Fprintln(w)

	section("Price range")
	fmt.Fprintf(w, "  Minimum : \033[1;32m$%.2f\033[0m\n", r.PriceBounds.Min)
	fmt.Fprintf(w, "  Maximum : \033[1;32m$%.2f\033[0m\n", r.PriceBounds.Max)
	fmt.Fprintln(w)

	section("Availability by neighbourhood group (affordable listings)")
	if len(r.Availability) == 0 {
		fmt.Fprintf(w, "  No availability data\n")
	} else {
		fmt.Fprintf(w, "  %-16s %6s %8s %8s", "group", "count", "mean", "std")
		for _, p := range r.Availability[0].Summary.Percentiles {
			fmt.Fprintf(w, " %6s", fmt.Sprintf("%g%%", p.P*100))
		}
		fmt.Fprintln(w)
		for _, g := range r.Availability {
			s := g.Summary
			fmt.Fprintf(w, "  %-16s %6d %8.1f %8s", truncate(g.Group, 16), s.Count, s.Mean, s.StdDev)
			for _, p := range s.Percentiles {
				fmt.Fprintf(w, " %6.0f", p.Value)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)

	section("Average availability (days)")
	for _, g := range r.AvailabilityByGroup {
		bar := strings.Repeat("█", int(g.Value/10))
		fmt.Fprintf(w, "  %-16s %s (%.0f)\n", truncate(g.Group, 16), bar, g.Value)
	}
	fmt.Fprintln(w)

	section("Most reviewed listings with 0 to 5 reviews")
	printListings(w, r.MostReviewed)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printListings(w io.Writer, ls []models.Listing) {
	for i, l := range ls {
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-38s %-20s %-16s %s\n",
			i+1, truncate(l.Name, 36), truncate(l.Neighbourhood, 18), truncate(l.RoomType, 16), price(l.Price))
	}
}

func price(p models.NullFloat) string {
	if !p.Valid {
		return "\033[2mn/a\033[0m"
	}
	return fmt.Sprintf("\033[1;32m$%.2f\033[0m", p.Value)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
