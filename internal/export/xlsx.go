package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shrimpsizemoose/klassbok/internal/models"
	"github.com/shrimpsizemoose/klassbok/internal/stats"
)

type Options struct {
	SheetName string
	// DateFormat is a Go time layout for the date column.
	DateFormat string
}

var header = []interface{}{"Date", "Topic", "Scope", "Present", "Absent", "Total", "Absent students", "Source"}

// WriteJournal writes one row per journal entry, in the order given.
func WriteJournal(w io.Writer, opts Options, entries []stats.EntrySummary) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	sheetName := opts.SheetName
	if sheetName == "" {
		sheetName = "Journal"
	}
	if err := file.SetSheetName(file.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := file.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, entry := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		source := "record"
		if entry.Legacy {
			source = "legacy"
		}
		row := []interface{}{
			formatDate(entry.Date, opts.DateFormat),
			entry.Topic,
			entry.Scope,
			entry.Present,
			entry.Absent,
			entry.Total,
			absentees(entry.AbsentStudents),
			source,
		}
		if err := file.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", entry.Date, err)
		}
	}

	if err := file.SetColWidth(sheetName, "B", "B", 40); err != nil {
		return err
	}
	if err := file.SetColWidth(sheetName, "G", "G", 60); err != nil {
		return err
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func absentees(students []stats.Attendee) string {
	names := make([]string, 0, len(students))
	for _, s := range students {
		name := s.FullName()
		if s.IsTemporary && s.OriginalGroup != nil {
			name = fmt.Sprintf("%s (%s)", name, *s.OriginalGroup)
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func formatDate(date, layout string) string {
	if layout == "" || layout == models.DateLayout {
		return date
	}
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(layout)
}
