package chrono

import (
	"time"
	_ "time/tzdata"
)

var vilnius *time.Location

func init() {
	var err error
	vilnius, err = time.LoadLocation("Europe/Vilnius")
	if err != nil {
		panic(err)
	}
}

// Vilnius returns a [*time.Location] for Europe/Vilnius, the timezone every
// supported portal operates in.
func Vilnius() *time.Location {
	return vilnius
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in Europe/Vilnius.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(vilnius)
}

// FixedTime always returns the same instant.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At.In(vilnius)
}

// Today formats the date of t in Europe/Vilnius as YYYY-MM-DD.
func Today(t TimeAPI) string {
	return t.Now().Format(time.DateOnly)
}
