package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"biblioflow/api"
	"biblioflow/config"
	"biblioflow/library"
	"biblioflow/logging"
)

const catalogFile = "books.csv"

// entry is one row of books.csv: title, author, category and an optional
// cover image path relative to the directory.
type entry struct {
	Line     int
	Title    string
	Author   string
	Category library.Category
	Image    string
}

type result struct {
	Entry entry
	Book  *library.Book
	Err   error
}

func main() {
	var dir, apiURL, dbPath string
	cmd := &cobra.Command{
		Use:           "import_books",
		Short:         "Publish every book listed in <dir>/books.csv as the logged-in lender",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api-url") {
				cfg.APIURL = apiURL
			}
			if cmd.Flags().Changed("db") {
				cfg.Storage.Path = dbPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := logging.Init("biblioflow-import", cfg.Env, cfg.LogLevel)

			entries, err := readCatalog(dir)
			if err != nil {
				return err
			}

			mgr, err := newManager(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer mgr.Close()

			results := importBooks(cmd.Context(), mgr, dir, entries, cmd.OutOrStdout())
			printSummary(cmd.OutOrStdout(), results)
			for _, r := range results {
				if r.Err != nil {
					return errors.New("some books could not be imported")
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "books", "directory holding books.csv and the cover images")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "service base URL")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database holding the session")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newManager(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*library.Manager, error) {
	var storage library.Storage
	if cfg.Storage.Driver == config.StorageRedis {
		rdb, err := library.NewRedisClient(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword)
		if err != nil {
			return nil, err
		}
		storage = library.NewRedisStorage(rdb)
	} else {
		s, err := library.NewSQLiteStorage(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		storage = s
	}
	rule, err := library.ParseOwnershipRule(cfg.Ownership)
	if err != nil {
		storage.Close()
		return nil, err
	}
	client := api.NewClient(cfg.APIBase(), api.WithTimeout(cfg.HTTPTimeout), api.WithLogger(logger))
	return library.NewManager(storage, client, library.Options{
		Ownership: rule,
		Session:   library.SessionOptions{Secret: cfg.Session.Secret, TTL: cfg.Session.TTL},
		Logger:    logger,
	}), nil
}

// readCatalog parses <dir>/books.csv. The first row is a header.
func readCatalog(dir string) ([]entry, error) {
	f, err := os.Open(filepath.Join(dir, catalogFile))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return parseCatalog(f)
}

func parseCatalog(r io.Reader) ([]entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("catalog is empty")
	}

	var entries []entry
	for i, rec := range records[1:] {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: want title,author,category[,image], got %d fields", i+2, len(rec))
		}
		e := entry{
			Line:     i + 2,
			Title:    strings.TrimSpace(rec[0]),
			Author:   strings.TrimSpace(rec[1]),
			Category: library.Category(strings.TrimSpace(rec[2])),
		}
		if len(rec) > 3 {
			e.Image = strings.TrimSpace(rec[3])
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// importBooks publishes entries one by one and keeps going after a failure.
func importBooks(ctx context.Context, mgr *library.Manager, dir string, entries []entry, out io.Writer) []result {
	results := make([]result, 0, len(entries))
	for _, e := range entries {
		fmt.Fprintf(out, "Importing: %s by %s... ", e.Title, e.Author)

		draft := library.BookDraft{Title: e.Title, Author: e.Author, Category: e.Category}
		if e.Image != "" {
			img, err := library.ReadImageFile(filepath.Join(dir, e.Image))
			if err != nil {
				fmt.Fprintf(out, "ERROR - %v\n", err)
				results = append(results, result{Entry: e, Err: err})
				continue
			}
			draft.Image = img
		}

		book, err := mgr.Publish(ctx, draft)
		if err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			results = append(results, result{Entry: e, Err: err})
			if errors.Is(err, library.ErrLoginRequired) || errors.Is(err, library.ErrForbidden) || errors.Is(err, api.ErrUnreachable) {
				break
			}
			continue
		}
		fmt.Fprintf(out, "SUCCESS (ID: %s)\n", book.ID)
		results = append(results, result{Entry: e, Book: book})
	}
	return results
}

func printSummary(out io.Writer, results []result) {
	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", ok)
	fmt.Fprintf(out, "Errors: %d\n", failed)
	if ok == 0 {
		return
	}

	fmt.Fprintln(out, "\nImported books:")
	fmt.Fprintf(out, "%-26s %-40s %-25s %s\n", "ID", "Title", "Author", "Category")
	fmt.Fprintln(out, strings.Repeat("-", 105))
	for _, r := range results {
		if r.Book == nil {
			continue
		}
		fmt.Fprintf(out, "%-26s %-40s %-25s %s\n", r.Book.ID, truncateString(r.Book.Title, 40), truncateString(r.Book.Author, 25), r.Book.Category)
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
