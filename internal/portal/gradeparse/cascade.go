package gradeparse

import (
	"strings"
	"time"

	"gradesync-backend/internal/components/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Pattern describes one markup shape a portal has used for grades.
// Selector finds the element holding a single grade, the other lists are
// sub-selectors tried inside that element and then inside its row.
type Pattern struct {
	Selector string
	Value    []string
	Subject  []string
	Type     []string
	Date     []string
	Teacher  []string
	Comment  []string
}

// Cascade is tried in order, the first pattern yielding grades wins.
type Cascade []Pattern

var (
	subjectSelectors = []string{".subject", ".subject-name", ".dalykas", ".dalyko-pavadinimas", "[data-subject]"}
	typeSelectors    = []string{".grade-type", ".type", ".tipas", ".darbo-tipas"}
	dateSelectors    = []string{".date", ".data", "time", "[data-date]"}
	teacherSelectors = []string{".teacher", ".mokytojas", ".mokytoja", "[data-teacher]"}
	commentSelectors = []string{".comment", ".komentaras", ".pastaba"}
	valueSelectors   = []string{".value", ".mark-value", ".ivertinimas"}
)

func pattern(selector string) Pattern {
	return Pattern{
		Selector: selector,
		Value:    valueSelectors,
		Subject:  subjectSelectors,
		Type:     typeSelectors,
		Date:     dateSelectors,
		Teacher:  teacherSelectors,
		Comment:  commentSelectors,
	}
}

// DefaultCascade covers the markup seen on every supported portal so far.
var DefaultCascade = Cascade{
	pattern("[data-grade]"),
	pattern(".grade"),
	pattern("td.pazymys"),
	pattern("span.mark"),
	pattern(".pazymys"),
}

type scope struct {
	el *goquery.Selection
	// containers are searched in order: the element, its row, then up to
	// three more ancestors when the element is not part of a table row.
	containers []*goquery.Selection
}

func newScope(el *goquery.Selection) scope {
	s := scope{el: el, containers: []*goquery.Selection{el}}
	row := el.Closest("tr")
	if row.Length() > 0 {
		s.containers = append(s.containers, row)
		return s
	}
	parent := el.Parent()
	for i := 0; i < 3 && parent.Length() > 0 && goquery.NodeName(parent) != "body"; i++ {
		s.containers = append(s.containers, parent)
		parent = parent.Parent()
	}
	return s
}

// find returns the text of the first sub-selector match inside the
// containers of the scope, attr is checked on each container and match first.
func (s scope) find(selectors []string, attr string) string {
	for _, container := range s.containers {
		if attr != "" {
			if v, ok := container.Attr(attr); ok && strings.TrimSpace(v) != "" {
				return htmlutil.CleanText(v)
			}
		}
		for _, sel := range selectors {
			match := container.Find(sel).First()
			if match.Length() == 0 {
				continue
			}
			if attr != "" {
				if v, ok := match.Attr(attr); ok && strings.TrimSpace(v) != "" {
					return htmlutil.CleanText(v)
				}
			}
			if text := htmlutil.Text(match); text != "" {
				return text
			}
		}
	}
	return ""
}

// cells returns the texts of the row cells and the index of the cell holding
// the element, -1 when the element is not inside a table cell.
func (s scope) cells() ([]string, int) {
	row := s.el.Closest("tr")
	if row.Length() == 0 {
		return nil, -1
	}
	cellSel := row.ChildrenFiltered("td, th")
	own := s.el.Closest("td, th")

	texts := make([]string, cellSel.Length())
	index := -1
	cellSel.Each(func(i int, cell *goquery.Selection) {
		texts[i] = htmlutil.Text(cell)
		if own.Length() > 0 && cell.IsSelection(own) {
			index = i
		}
	})
	return texts, index
}

func parsePattern(doc *goquery.Document, p Pattern, today time.Time) (out []Grade) {
	// goquery panics on selectors that do not compile
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()

	doc.Find(p.Selector).Each(func(_ int, el *goquery.Selection) {
		if g, ok := parseElement(el, p, today); ok {
			out = append(out, g)
		}
	})
	return out
}

func parseElement(el *goquery.Selection, p Pattern, today time.Time) (g Grade, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	s := newScope(el)

	valueText := ""
	for _, sel := range p.Value {
		if match := el.Find(sel).First(); match.Length() > 0 {
			valueText = htmlutil.Text(match)
			break
		}
	}
	if valueText == "" {
		valueText = el.AttrOr("data-grade", el.AttrOr("data-mark", ""))
	}
	if valueText == "" {
		valueText = htmlutil.Text(el)
	}
	value, ok := parseGrade(valueText)
	if !ok {
		return Grade{}, false
	}

	g = Grade{
		Value:   value,
		Subject: s.find(p.Subject, "data-subject"),
		Type:    s.find(p.Type, "data-type"),
		Teacher: s.find(p.Teacher, "data-teacher"),
		Comment: s.find(p.Comment, "data-comment"),
	}
	if date, found := findDate(s.find(p.Date, "data-date")); found {
		g.Date = date
	}
	if g.Comment == "" {
		g.Comment = htmlutil.CleanText(el.AttrOr("title", ""))
	}

	// positional fallback from the surrounding table row
	cells, own := s.cells()
	if g.Subject == "" && len(cells) > 0 && own != 0 {
		g.Subject = cells[0]
	}
	if g.Date == "" {
		for _, c := range cells {
			if date, found := findDate(c); found {
				g.Date = date
				break
			}
		}
	}
	if g.Teacher == "" && len(cells) > 2 {
		last := len(cells) - 1
		if last != own && hasWords(cells[last]) {
			g.Teacher = cells[last]
		}
	}

	if g.Subject == "" {
		return Grade{}, false
	}
	return normalize(g, today), true
}

// hasWords rejects cells that hold grades, dates or plain numbers.
func hasWords(text string) bool {
	if text == "" {
		return false
	}
	if _, ok := findDate(text); ok {
		return false
	}
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127 {
			return true
		}
	}
	return false
}
