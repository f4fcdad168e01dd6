package report

import (
	"fmt"
	"io"
	"mypage-client/lib/scrapers/mypage"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
)

const csvHeader = "教科名, 締め切り, 進捗率, 点数"

// ThisMonth keeps the records due on the 15th of today's month.
//
// This is a substring match on the limit as the portal writes it, so a
// limit of "4/150" is also picked up in April.
func ThisMonth(records []mypage.SubjectScore, today time.Time) []mypage.SubjectScore {
	needle := fmt.Sprintf("%d/15", int(today.Month()))

	result := []mypage.SubjectScore{}
	for _, r := range records {
		if strings.Contains(r.Limit, needle) {
			result = append(result, r)
		}
	}
	return result
}

// ToCsv renders the records with a header line. Fields are joined with ", "
// and are not quoted.
func ToCsv(records []mypage.SubjectScore) string {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, csvHeader)
	for _, r := range records {
		lines = append(lines, strings.Join([]string{
			r.Subject,
			r.Limit,
			strconv.Itoa(r.Percentage),
			r.Score,
		}, ", "))
	}
	return strings.Join(lines, "\n")
}

// Subjects returns every distinct subject, sorted.
func Subjects(records []mypage.SubjectScore) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.Subject] = struct{}{}
	}
	subjects := make([]string, 0, len(seen))
	for s := range seen {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects
}

// FilterSubject keeps the records whose subject is similar enough to query.
// An exact substring always matches.
func FilterSubject(records []mypage.SubjectScore, query string, threshold float64) []mypage.SubjectScore {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}

	similarity := make(map[string]bool)
	result := []mypage.SubjectScore{}
	for _, r := range records {
		matched, ok := similarity[r.Subject]
		if !ok {
			matched = strings.Contains(r.Subject, query) ||
				matchr.JaroWinkler(r.Subject, query, false) >= threshold
			similarity[r.Subject] = matched
		}
		if matched {
			result = append(result, r)
		}
	}
	return result
}

// RenderTable writes the records as a console table.
func RenderTable(w io.Writer, records []mypage.SubjectScore) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"教科名", "締め切り", "進捗率", "点数"})
	for _, r := range records {
		t.AppendRow(table.Row{
			r.Subject,
			r.Limit,
			fmt.Sprintf("%d%%", r.Percentage),
			r.Score,
		})
	}
	t.Render()
}
