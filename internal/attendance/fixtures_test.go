package attendance

import (
	"github.com/shrimpsizemoose/klassbok/internal/models"
)

func student(id, group string) models.Student {
	s := models.Student{ID: id, ClassID: "7b", FirstName: "First" + id, LastName: "Last" + id}
	if group != "" {
		s.Group = models.GroupPtr(group)
	}
	return s
}

// groupedRoster: s1, s2 in Group1; s3, s4 in Group2; s5 ungrouped.
func groupedRoster() []models.Student {
	return []models.Student{
		student("s1", "Group1"),
		student("s2", "Group1"),
		student("s3", "Group2"),
		student("s4", "Group2"),
		student("s5", ""),
	}
}

func ungroupedRoster() []models.Student {
	return []models.Student{
		student("s1", ""),
		student("s2", ""),
		student("s3", ""),
	}
}

func accept(string) bool  { return true }
func decline(string) bool { return false }
