package main

import (
	"context"
	"flag"
	"os"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/klassbok/internal/app"
	"github.com/shrimpsizemoose/klassbok/internal/export"
)

func main() {
	var (
		configPath = flag.String("config", "config.toml", "Path to config file")
		classID    = flag.String("class", "", "Class to export")
		output     = flag.String("out", "journal.xlsx", "Output workbook")
	)
	flag.Parse()

	if *classID == "" {
		logger.Error.Fatalf("-class is required")
	}

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	entries, err := service.JournalSummary(context.Background(), *classID)
	if err != nil {
		logger.Error.Fatalf("Failed to summarize journal of %s: %v", *classID, err)
	}

	f, err := os.Create(*output)
	if err != nil {
		logger.Error.Fatalf("Failed to create %s: %v", *output, err)
	}
	defer f.Close()

	if err := export.WriteJournal(f, export.Options{
		SheetName:  service.Config.Export.SheetName,
		DateFormat: service.Config.Display.DateFormat,
	}, entries); err != nil {
		logger.Error.Fatalf("Export failed: %v", err)
	}

	logger.Info.Printf("Exported %d journal entries of %s to %s", len(entries), *classID, *output)
}
