package gradeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultType is used when the markup does not say what kind of work was graded.
	DefaultType = "Įvertinimas"
	// DefaultTeacher is used when the markup does not name a teacher.
	DefaultTeacher = "Nenurodyta"

	MinGrade = 1
	MaxGrade = 10
)

// Grade is one graded entry found on a portal page.
type Grade struct {
	Subject  string `json:"subject"`
	Value    int    `json:"grade"`
	Type     string `json:"gradeType"`
	Date     string `json:"date"`
	Semester string `json:"semester"`
	Teacher  string `json:"teacher"`
	Comment  string `json:"comment,omitempty"`
}

// SemesterOf returns "I" for September through January and "II" otherwise.
func SemesterOf(t time.Time) string {
	m := t.Month()
	if m >= time.September || m == time.January {
		return "I"
	}
	return "II"
}

// SemesterOfDate is SemesterOf for a YYYY-MM-DD date.
func SemesterOfDate(date string) (string, error) {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return "", err
	}
	return SemesterOf(t), nil
}

// ValidGrade reports whether value is accepted as a grade.
func ValidGrade(value int) bool {
	return value >= MinGrade && value <= MaxGrade
}

// parseGrade reads the first whitespace separated token of text as a grade.
func parseGrade(text string) (int, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, false
	}
	value, err := strconv.Atoi(strings.Trim(fields[0], ".,;:()"))
	if err != nil || !ValidGrade(value) {
		return 0, false
	}
	return value, true
}

// parseGradeCell reads a cell where every token must be a grade, cells
// like "9 10" hold two grades.
func parseGradeCell(text string) []int {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	values := make([]int, 0, len(fields))
	for _, f := range fields {
		value, err := strconv.Atoi(f)
		if err != nil || !ValidGrade(value) {
			return nil
		}
		values = append(values, value)
	}
	return values
}

var (
	isoDatePattern = regexp.MustCompile(`(\d{4})[-./](\d{1,2})[-./](\d{1,2})`)
	ltDatePattern  = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
)

// findDate returns the first date in text formatted as YYYY-MM-DD.
func findDate(text string) (string, bool) {
	var year, month, day int
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
	} else if m := ltDatePattern.FindStringSubmatch(text); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	} else {
		return "", false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// normalize fills in defaults and derives the semester.
func normalize(g Grade, today time.Time) Grade {
	if g.Type == "" {
		g.Type = DefaultType
	}
	if g.Teacher == "" {
		g.Teacher = DefaultTeacher
	}
	if g.Date == "" {
		g.Date = today.Format(time.DateOnly)
	}
	semester, err := SemesterOfDate(g.Date)
	if err != nil {
		semester = SemesterOf(today)
	}
	g.Semester = semester
	return g
}
