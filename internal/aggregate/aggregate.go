// Package aggregate computes read-only dashboard rollups over the letter
// collection. It never writes, never errors on missing data, and always
// returns zero-filled structures for empty input.
package aggregate

import (
	"sort"

	"letterflow/internal/department"
	"letterflow/internal/directory"
	"letterflow/internal/models"
)

// Overall rolls up the whole letter collection plus the user directory into
// organization-wide dashboard stats. Department count is the distinct union
// of user departments and letter departments, compared canonically.
func Overall(letters []models.Letter, users []models.User) models.OverallStats {
	stats := models.OverallStats{
		UserCount:    len(users),
		LetterCount:  len(letters),
		ByStatus:     make(map[models.Status]int),
		ByDepartment: make(map[string]int),
		ByDate:       []models.DateCount{},
	}

	departments := make(map[string]bool)
	for _, u := range users {
		if key := department.ParsePath(u.Department).Key(); key != "" {
			departments[key] = true
		}
	}

	byDate := make(map[string]int)
	for _, l := range letters {
		stats.ByStatus[l.Status]++
		stats.ByDepartment[l.Department]++
		byDate[l.CreatedAt.Format("2006-01-02")]++
		if key := department.ParsePath(l.Department).Key(); key != "" {
			departments[key] = true
		}
	}
	stats.DepartmentCount = len(departments)
	stats.ByDate = sortedDates(byDate)
	return stats
}

// ForUser rolls up the letters a user participates in. Received means the
// user is the recipient or appears in the CC list. TotalLetters is
// sent+received and double-counts self-addressed letters; that matches the
// historical dashboard numbers and is kept deliberately.
func ForUser(letters []models.Letter, email string) models.UserStats {
	stats := models.UserStats{
		ByStatus: make(map[models.Status]int),
		ByDate:   []models.DateCount{},
	}

	byDate := make(map[string]int)
	for _, l := range letters {
		sent := directory.SameEmail(l.FromEmail, email)
		received := directory.SameEmail(l.ToEmail, email) || inCC(l.CC, email)
		if sent {
			stats.SentCount++
		}
		if received {
			stats.ReceivedCount++
		}
		if sent || received {
			stats.ByStatus[l.Status]++
			byDate[l.CreatedAt.Format("2006-01-02")]++
		}
	}
	stats.TotalLetters = stats.SentCount + stats.ReceivedCount
	stats.ByDate = sortedDates(byDate)
	return stats
}

// Dashboard bundles the overall rollup with a per-user one when an email is
// given.
func Dashboard(letters []models.Letter, users []models.User, userEmail string) models.DashboardStats {
	stats := models.DashboardStats{OverallStats: Overall(letters, users)}
	if userEmail != "" {
		userStats := ForUser(letters, userEmail)
		stats.UserStats = &userStats
	}
	return stats
}

func inCC(cc []string, email string) bool {
	for _, entry := range cc {
		if directory.SameEmail(entry, email) {
			return true
		}
	}
	return false
}

func sortedDates(byDate map[string]int) []models.DateCount {
	out := make([]models.DateCount, 0, len(byDate))
	for date, count := range byDate {
		out = append(out, models.DateCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
