// Package stats computes read-only attendance figures for the journal list and
// the calendar. Nothing here fails: missing data counts as zero.
package stats

import (
	"sort"

	"github.com/shrimpsizemoose/klassbok/internal/models"
)

type Counts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Total   int `json:"total"`
}

// Attendee is a resolved student of a record.
type Attendee struct {
	models.Student
	IsTemporary   bool    `json:"isTemporary"`
	OriginalGroup *string `json:"originalGroup,omitempty"`
}

type Summary struct {
	Counts
	AbsentStudents []Attendee `json:"absentStudents"`
	// Legacy is set when the figures come from per-student presence maps
	// because the entry has no attendance record.
	Legacy bool `json:"legacy"`
}

type EntrySummary struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Topic string `json:"topic"`
	Scope string `json:"scope,omitempty"`
	Summary
}

func CountsFor(record *models.AttendanceRecord) Counts {
	var c Counts
	if record == nil {
		return c
	}
	for _, present := range record.Data {
		if present {
			c.Present++
		}
	}
	for _, tmp := range record.TemporaryStudents {
		if tmp.Present {
			c.Present++
		}
	}
	c.Total = len(record.Data) + len(record.TemporaryStudents)
	c.Absent = c.Total - c.Present
	return c
}

// PresentRoster splits the membership of record into present and absent
// students, in roster order. Ids missing from roster are skipped.
func PresentRoster(record *models.AttendanceRecord, roster []models.Student) ([]Attendee, []Attendee) {
	present := []Attendee{}
	absent := []Attendee{}
	if record == nil {
		return present, absent
	}

	for _, student := range roster {
		if flag, ok := record.Data[student.ID]; ok {
			a := Attendee{Student: student}
			if flag {
				present = append(present, a)
			} else {
				absent = append(absent, a)
			}
			continue
		}
		if tmp, ok := record.TemporaryStudents[student.ID]; ok {
			a := Attendee{Student: student, IsTemporary: true, OriginalGroup: tmp.OriginalGroup}
			if tmp.Present {
				present = append(present, a)
			} else {
				absent = append(absent, a)
			}
		}
	}
	return present, absent
}

// Legacy derives figures from the presence map each student carries. Only
// students with a flag for date take part.
func Legacy(roster []models.Student, date string) (Counts, []Attendee, []Attendee) {
	var c Counts
	present := []Attendee{}
	absent := []Attendee{}
	for _, student := range roster {
		flag, ok := student.Presence[date]
		if !ok {
			continue
		}
		c.Total++
		if flag {
			c.Present++
			present = append(present, Attendee{Student: student})
		} else {
			absent = append(absent, Attendee{Student: student})
		}
	}
	c.Absent = c.Total - c.Present
	return c, present, absent
}

func Statistics(record *models.AttendanceRecord, roster []models.Student) Summary {
	_, absent := PresentRoster(record, roster)
	return Summary{
		Counts:         CountsFor(record),
		AbsentStudents: absent,
	}
}

// ForEntry summarises entry, falling back to the legacy presence maps when
// the entry carries no record.
func ForEntry(entry *models.JournalEntry, roster []models.Student) Summary {
	if entry == nil {
		return Summary{AbsentStudents: []Attendee{}}
	}
	if entry.Attendance != nil {
		return Statistics(entry.Attendance, roster)
	}
	counts, _, absent := Legacy(roster, entry.Date)
	return Summary{Counts: counts, AbsentStudents: absent, Legacy: true}
}

// SummarizeJournal builds the journal list, newest entry first.
func SummarizeJournal(entries []models.JournalEntry, roster []models.Student) []EntrySummary {
	out := make([]EntrySummary, 0, len(entries))
	for i := range entries {
		out = append(out, summarize(&entries[i], roster))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

// Calendar keys the summaries of entries dated within [from, to] by date.
// An empty bound is open. When two entries share a date the first one wins.
func Calendar(entries []models.JournalEntry, roster []models.Student, from, to string) map[string]EntrySummary {
	out := make(map[string]EntrySummary)
	for i := range entries {
		date := entries[i].Date
		if from != "" && date < from {
			continue
		}
		if to != "" && date > to {
			continue
		}
		if _, seen := out[date]; seen {
			continue
		}
		out[date] = summarize(&entries[i], roster)
	}
	return out
}

func summarize(entry *models.JournalEntry, roster []models.Student) EntrySummary {
	s := EntrySummary{
		ID:      entry.ID,
		Date:    entry.Date,
		Topic:   entry.Topic,
		Summary: ForEntry(entry, roster),
	}
	if entry.Attendance != nil {
		s.Scope = entry.Attendance.Scope
	}
	return s
}
