package gradeparse

import (
	"strconv"
	"strings"
	"time"

	"gradesync-backend/internal/components/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

type column int

const (
	columnSubject column = iota
	columnDate
	columnTeacher
	columnType
	columnComment
)

// labels are compared against header cells with Jaro-Winkler, portals spell
// the same header differently between deployments.
var columnLabels = map[column][]string{
	columnSubject: {"dalykas", "mokomasis dalykas", "subject"},
	columnDate:    {"data", "date", "įvertinimo data"},
	columnTeacher: {"mokytojas", "mokytoja", "teacher"},
	columnType:    {"tipas", "darbo tipas", "rūšis", "type"},
	columnComment: {"komentaras", "pastaba", "comment"},
}

const labelThreshold = 0.9

func matchColumn(header string) (column, bool) {
	header = strings.ToLower(htmlutil.CleanText(header))
	if header == "" {
		return 0, false
	}
	best := 0.0
	var bestColumn column
	for col, labels := range columnLabels {
		for _, label := range labels {
			score := matchr.JaroWinkler(header, label, false)
			if score > best {
				best = score
				bestColumn = col
			}
		}
	}
	return bestColumn, best >= labelThreshold
}

// tableLayout maps known columns to cell indexes.
type tableLayout map[column]int

func (l tableLayout) has(index int) bool {
	for _, i := range l {
		if i == index {
			return true
		}
	}
	return false
}

func rowCells(row *goquery.Selection) []string {
	cellSel := row.ChildrenFiltered("td, th")
	cells := make([]string, cellSel.Length())
	cellSel.Each(func(i int, cell *goquery.Selection) {
		cells[i] = htmlutil.Text(cell)
	})
	return cells
}

// ownRows skips the rows of nested tables.
func ownRows(table *goquery.Selection) *goquery.Selection {
	return table.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Closest("table").IsSelection(table)
	})
}

// minDayColumns is how many 1, 2, 3... cells make a row of day numbers.
const minDayColumns = 3

// isLabelRow reports whether a row of plain cells is a header: its first
// cell is a column label, or its numbers count up from 1 like the day
// columns of a monthly grid.
func isLabelRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	if _, ok := matchColumn(cells[0]); ok {
		return true
	}

	expected := 1
	for _, c := range cells {
		n, err := strconv.Atoi(strings.TrimSpace(c))
		if err != nil {
			continue
		}
		if n != expected {
			return false
		}
		expected++
	}
	return expected-1 >= minDayColumns
}

// findHeader returns the header row of table or nil. Rows in thead and rows
// of th cells are headers, a first row of td cells only when it reads as
// labels.
func findHeader(table *goquery.Selection) *goquery.Selection {
	rows := ownRows(table)
	if header := rows.FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Closest("thead").Length() > 0
	}).First(); header.Length() > 0 {
		return header
	}
	if header := rows.FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.ChildrenFiltered("th").Length() > 0 && row.ChildrenFiltered("td").Length() == 0
	}).First(); header.Length() > 0 {
		return header
	}
	if first := rows.First(); first.Length() > 0 && isLabelRow(rowCells(first)) {
		return first
	}
	return nil
}

func detectLayout(header *goquery.Selection) tableLayout {
	layout := tableLayout{}
	if header == nil {
		return layout
	}
	for i, text := range rowCells(header) {
		col, ok := matchColumn(text)
		if !ok {
			continue
		}
		if _, taken := layout[col]; !taken {
			layout[col] = i
		}
	}
	return layout
}

func isHeaderRow(row, header *goquery.Selection) bool {
	if header != nil && row.Get(0) == header.Get(0) {
		return true
	}
	return row.Closest("thead").Length() > 0 || row.ChildrenFiltered("td").Length() == 0
}

// parseTables scans every table: the first cell (or the detected subject
// column) is the subject, every cell made of integers in range is a grade.
func parseTables(doc *goquery.Document, today time.Time) []Grade {
	var out []Grade
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		header := findHeader(table)
		layout := detectLayout(header)
		subjectIndex, ok := layout[columnSubject]
		if !ok {
			subjectIndex = 0
		}

		ownRows(table).Each(func(_ int, row *goquery.Selection) {
			if isHeaderRow(row, header) {
				return
			}
			out = append(out, parseRow(row, layout, subjectIndex, today)...)
		})
	})
	return out
}

func parseRow(row *goquery.Selection, layout tableLayout, subjectIndex int, today time.Time) (out []Grade) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()

	cells := rowCells(row)
	if subjectIndex >= len(cells) || len(cells) < 2 {
		return nil
	}

	subject := cells[subjectIndex]
	if !hasWords(subject) {
		return nil
	}

	at := func(col column) string {
		if i, ok := layout[col]; ok && i < len(cells) {
			return cells[i]
		}
		return ""
	}

	date, _ := findDate(at(columnDate))
	if date == "" {
		for _, c := range cells {
			if d, ok := findDate(c); ok {
				date = d
				break
			}
		}
	}

	teacher := at(columnTeacher)
	if _, detected := layout[columnTeacher]; !detected {
		last := len(cells) - 1
		if last != subjectIndex && !layout.has(last) && parseGradeCell(cells[last]) == nil && hasWords(cells[last]) {
			teacher = cells[last]
		}
	}

	for i, c := range cells {
		if i == subjectIndex || layout.has(i) {
			continue
		}
		for _, value := range parseGradeCell(c) {
			out = append(out, normalize(Grade{
				Subject: subject,
				Value:   value,
				Type:    at(columnType),
				Date:    date,
				Teacher: teacher,
				Comment: at(columnComment),
			}, today))
		}
	}
	return out
}
