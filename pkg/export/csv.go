// Package export writes search results and saved lists to CSV and JSON.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sourcingdenis/devfinder/pkg/enrich"
	"github.com/sourcingdenis/devfinder/pkg/search"
	"github.com/sourcingdenis/devfinder/pkg/store"
)

var csvHeader = []string{
	"login", "name", "email", "email_source", "location",
	"top_language", "followers", "hireable", "profile_url",
}

// WriteCSV writes enriched records to w as CSV. Generated email addresses
// are guesses, not discovered data, and are labeled as such so exported
// sheets cannot mistake them for verified contacts.
func WriteCSV(records []search.Record, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Login,
			rec.Name,
			labelEmail(rec.Email, rec.EmailSource),
			rec.EmailSource,
			rec.Location,
			rec.TopLanguage,
			strconv.Itoa(rec.Followers),
			strconv.FormatBool(rec.Hireable),
			rec.HTMLURL,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", rec.Login, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// ExportCSV writes records to a CSV file at path.
// This is a convenience wrapper around [WriteCSV] for file-based output.
func ExportCSV(records []search.Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteCSV(records, f)
}

var listHeader = []string{
	"login", "name", "email", "email_source", "location", "top_language", "saved_at",
}

// WriteListCSV writes a saved list's profiles to w as CSV.
func WriteListCSV(list *store.ListRecord, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(listHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, p := range list.Profiles {
		row := []string{
			p.Login,
			p.Name,
			labelEmail(p.Email, p.EmailSource),
			p.EmailSource,
			p.Location,
			p.TopLanguage,
			p.SavedAt.Format("2006-01-02"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", p.Login, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func labelEmail(email, source string) string {
	if email == "" {
		return ""
	}
	if source == enrich.SourceGenerated {
		return email + " (guessed)"
	}
	return email
}
