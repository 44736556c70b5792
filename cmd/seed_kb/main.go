package main

import (
	"context"
	"flag"
	"os"

	"bank-support-be/internal/config"
	"bank-support-be/internal/entity"
	"bank-support-be/internal/mapper"
	"bank-support-be/internal/repository/implementation"
	"bank-support-be/pkg/database"
	"bank-support-be/pkg/kb"

	"github.com/fatih/color"
)

var (
	okf   = color.New(color.FgGreen).PrintfFunc()
	failf = color.New(color.FgRed).PrintfFunc()
	infof = color.New(color.FgCyan).PrintfFunc()
)

func main() {
	file := flag.String("file", "", "KB JSON file to import (defaults to the built-in seed list)")
	dryRun := flag.Bool("dry-run", false, "validate the source without writing to the database")
	flag.Parse()

	sources, origin, err := loadSources(*file)
	if err != nil {
		failf("✗ %v\n", err)
		os.Exit(1)
	}
	entries, err := kb.CompileAll(sources)
	if err != nil {
		failf("✗ %s is invalid: %v\n", origin, err)
		os.Exit(1)
	}
	okf("✓ %s: %d entries compiled\n", origin, len(entries))

	if *dryRun {
		infof("ℹ dry run, nothing written\n")
		return
	}

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		failf("✗ DB_CONNECTION_STRING is not set\n")
		os.Exit(1)
	}
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, database.DefaultOptions())
	if err != nil {
		failf("✗ connect to database: %v\n", err)
		os.Exit(1)
	}

	m := mapper.NewKBEntryMapper()
	rows := make([]*entity.KBEntry, len(sources))
	for i, src := range sources {
		rows[i] = m.FromSource(src, i)
	}

	repo := implementation.NewKBEntryRepository(db)
	if err := repo.ReplaceAll(context.Background(), rows); err != nil {
		failf("✗ import failed: %v\n", err)
		os.Exit(1)
	}
	okf("✓ kb_entries replaced with %d rows\n", len(rows))
	infof("ℹ embeddings are filled in by the server when EMBEDDING_PROVIDER is set\n")
}

func loadSources(path string) ([]kb.Source, string, error) {
	if path == "" {
		return kb.DefaultSources(), "built-in seed", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, path, err
	}
	defer f.Close()
	sources, err := kb.DecodeSources(f)
	return sources, path, err
}
