// Package cli renders products, preferences and errors for the command line.
package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tphakala/foodscan/internal/classifier"
	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/notification"
	"github.com/tphakala/foodscan/internal/product"
)

const dateLayout = "2006-01-02 15:04"

// Product writes a detailed view of p.
func Product(w io.Writer, p *product.Product) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", p.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	if p.Brand != "" {
		fmt.Fprintf(tw, "Brand:\t%s\n", p.Brand)
	}
	if p.Barcode != "" {
		fmt.Fprintf(tw, "Barcode:\t%s\n", p.Barcode)
	}
	fmt.Fprintf(tw, "Verdict:\t%s\n", verdictLabel(p.Verdict))
	if p.Calories != nil {
		fmt.Fprintf(tw, "Calories:\t%g kcal/100g\n", *p.Calories)
	}
	if len(p.Categories) > 0 {
		fmt.Fprintf(tw, "Categories:\t%s\n", strings.Join(p.Categories, ", "))
	}
	if len(p.Ingredients) > 0 {
		fmt.Fprintf(tw, "Ingredients:\t%s\n", strings.Join(p.Ingredients, ", "))
	}
	fmt.Fprintf(tw, "Source:\t%s\n", p.Source)
	fmt.Fprintf(tw, "Scanned:\t%s\n", p.ScanDate.Local().Format(dateLayout))
	if p.Avoided {
		fmt.Fprintf(tw, "Avoid list:\tyes\n")
	}
	_ = tw.Flush()
	Flagged(w, p.FlaggedIngredients)
}

// Flagged writes the flagged ingredients with their reasons.
func Flagged(w io.Writer, flagged []product.FlaggedIngredient) {
	if len(flagged) == 0 {
		return
	}
	fmt.Fprintln(w, "Flagged:")
	for _, f := range flagged {
		fmt.Fprintf(w, "  - %s: %s\n", f.Ingredient, f.Reason)
	}
}

// Evaluation writes a fresh evaluation of a stored product.
func Evaluation(w io.Writer, eval classifier.Evaluation, categories []string) {
	fmt.Fprintf(w, "Verdict: %s\n", verdictLabel(eval.Verdict))
	if len(categories) > 0 {
		fmt.Fprintf(w, "Categories: %s\n", strings.Join(categories, ", "))
	}
	Flagged(w, eval.Flagged)
}

// Products writes one row per product, newest first as given.
func Products(w io.Writer, products []*product.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCANNED\tVERDICT\tNAME\tBRAND\tBARCODE")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.ScanDate.Local().Format(dateLayout), p.Verdict, p.Name, p.Brand, p.Barcode)
	}
	_ = tw.Flush()
}

// Preferences writes the avoid lists and calorie ceiling.
func Preferences(w io.Writer, prefs product.UserPreferences) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Avoided:\t%s\n", listOrNone(prefs.AvoidedIngredients))
	fmt.Fprintf(tw, "Custom:\t%s\n", listOrNone(prefs.CustomAvoidedIngredients))
	if prefs.MaxCalories != nil {
		fmt.Fprintf(tw, "Max calories:\t%g kcal/100g\n", *prefs.MaxCalories)
	} else {
		fmt.Fprintf(tw, "Max calories:\tnone\n")
	}
	if prefs.Goal != "" {
		fmt.Fprintf(tw, "Goal:\t%s\n", prefs.Goal)
	}
	_ = tw.Flush()
}

// Notifications writes notifications raised at or after since, oldest first.
func Notifications(w io.Writer, items []notification.Notification, since time.Time) {
	for i := len(items) - 1; i >= 0; i-- {
		n := items[i]
		if n.Timestamp.Before(since) {
			continue
		}
		fmt.Fprintf(w, "[%s] %s\n", n.Type, n.Message)
	}
}

// Describe turns a pipeline error into a one-line message for the user.
// Expected outcomes such as a missing product get a plain sentence.
func Describe(err error) string {
	switch {
	case errors.Is(err, product.ErrNoText):
		return "No text detected in the image."
	case errors.Is(err, product.ErrNotFound):
		return "Product not found."
	case errors.Is(err, product.ErrAborted):
		return "Scan aborted."
	case errors.Is(err, product.ErrScanInProgress):
		return "Another scan is already in progress."
	case errors.Is(err, product.ErrPersistenceFailure):
		return fmt.Sprintf("Product could not be saved: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

func verdictLabel(v product.Verdict) string {
	switch v {
	case product.VerdictGood:
		return "GOOD"
	case product.VerdictBad:
		return "BAD"
	default:
		return string(v)
	}
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
