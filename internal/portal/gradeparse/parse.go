package gradeparse

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Parse extracts grades from a portal page. The cascade is tried first, the
// generic table scan runs only when no pattern produced a grade. Parse never
// fails, a page without grades yields an empty slice.
//
// today is used for entries without a date.
func Parse(html string, cascade Cascade, today time.Time) []Grade {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return []Grade{}
	}

	for _, p := range cascade {
		if grades := parsePattern(doc, p, today); len(grades) > 0 {
			return grades
		}
	}
	grades := parseTables(doc, today)
	if grades == nil {
		return []Grade{}
	}
	return grades
}
