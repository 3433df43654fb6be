package gradeparse

import (
	"regexp"
	"strings"

	"gradesync-backend/internal/components/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Lesson is one entry of a weekly timetable.
type Lesson struct {
	Day     string `json:"day,omitempty"`
	Time    string `json:"time,omitempty"`
	Subject string `json:"subject"`
	Teacher string `json:"teacher,omitempty"`
	Room    string `json:"room,omitempty"`
}

var (
	timePattern = regexp.MustCompile(`\d{1,2}:\d{2}(\s*-\s*\d{1,2}:\d{2})?`)
	roomPattern = regexp.MustCompile(`(?i)^(kab\.|kabinetas|room)\s*\d+\S*`)
)

var weekdays = []string{
	"pirmadienis", "antradienis", "trečiadienis", "ketvirtadienis", "penktadienis", "šeštadienis", "sekmadienis",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

func weekday(text string) string {
	lower := strings.ToLower(text)
	for _, day := range weekdays {
		if strings.Contains(lower, day) {
			return day
		}
	}
	return ""
}

// ParseSchedule reads lesson elements (.lesson, .pamoka) and falls back to
// timetable rows that carry a lesson time. It never fails.
func ParseSchedule(html string) []Lesson {
	out := []Lesson{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out
	}

	doc.Find(".lesson, .pamoka").Each(func(_ int, el *goquery.Selection) {
		s := newScope(el)
		lesson := Lesson{
			Subject: s.find(subjectSelectors, "data-subject"),
			Teacher: s.find(teacherSelectors, "data-teacher"),
			Time:    timePattern.FindString(s.find([]string{".time", ".laikas"}, "data-time")),
			Room:    s.find([]string{".room", ".kabinetas"}, "data-room"),
			Day:     weekday(el.Closest("[data-day], .day, .diena").AttrOr("data-day", "")),
		}
		if lesson.Subject != "" {
			out = append(out, lesson)
		}
	})
	if len(out) > 0 {
		return out
	}

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		day := ""
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			if !row.Closest("table").IsSelection(table) {
				return
			}
			var cells []string
			row.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, htmlutil.Text(cell))
			})
			if lesson, ok := parseLessonRow(cells, &day); ok {
				out = append(out, lesson)
			}
		})
	})
	return out
}

// parseLessonRow consumes day header rows by updating day.
func parseLessonRow(cells []string, day *string) (Lesson, bool) {
	lesson := Lesson{}
	for _, c := range cells {
		switch {
		case c == "":
		case weekday(c) != "" && lesson.Subject == "":
			*day = weekday(c)
		case lesson.Time == "" && timePattern.MatchString(c):
			lesson.Time = timePattern.FindString(c)
		case lesson.Room == "" && roomPattern.MatchString(c):
			lesson.Room = c
		case lesson.Subject == "" && hasWords(c):
			lesson.Subject = c
		case lesson.Teacher == "" && hasWords(c):
			lesson.Teacher = c
		}
	}
	lesson.Day = *day
	return lesson, lesson.Subject != "" && lesson.Time != ""
}
