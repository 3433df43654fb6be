package gradeparse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Assignment is one homework entry.
type Assignment struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Assigned    string `json:"assigned,omitempty"`
	Due         string `json:"due,omitempty"`
}

var descriptionSelectors = []string{".description", ".aprasymas", ".uzduotis", ".task"}

// ParseHomework reads homework elements (.homework, .namu-darbai) and
// falls back to table rows of subject, description and dates. It never
// fails.
func ParseHomework(html string) []Assignment {
	out := []Assignment{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out
	}

	doc.Find(".homework, .namu-darbai").Each(func(_ int, el *goquery.Selection) {
		s := newScope(el)
		a := Assignment{
			Subject:     s.find(subjectSelectors, "data-subject"),
			Description: s.find(descriptionSelectors, ""),
		}
		a.Due, _ = findDate(s.find([]string{".due", ".terminas", ".atlikti-iki"}, "data-due"))
		a.Assigned, _ = findDate(s.find(dateSelectors, "data-date"))
		if a.Subject != "" && a.Description != "" {
			out = append(out, a)
		}
	})
	if len(out) > 0 {
		return out
	}

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		header := findHeader(table)
		ownRows(table).Each(func(_ int, row *goquery.Selection) {
			if isHeaderRow(row, header) {
				return
			}
			if a, ok := parseAssignmentRow(rowCells(row)); ok {
				out = append(out, a)
			}
		})
	})
	return out
}

// parseAssignmentRow treats the first text cell as the subject, the longest
// remaining text cell as the description, and the dates in order as
// assigned then due. A single date is the due date.
func parseAssignmentRow(cells []string) (Assignment, bool) {
	var a Assignment
	var dates []string
	for _, c := range cells {
		if d, ok := findDate(c); ok {
			dates = append(dates, d)
			continue
		}
		if !hasWords(c) {
			continue
		}
		if a.Subject == "" {
			a.Subject = c
			continue
		}
		if len(c) > len(a.Description) {
			a.Description = c
		}
	}
	switch len(dates) {
	case 0:
	case 1:
		a.Due = dates[0]
	default:
		a.Assigned, a.Due = dates[0], dates[1]
	}
	return a, a.Subject != "" && a.Description != ""
}
