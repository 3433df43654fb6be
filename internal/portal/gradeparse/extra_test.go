package gradeparse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	html := `
	<table>
		<tr><th>Nr.</th><th>Laikas</th><th>Pamoka</th><th>Kabinetas</th><th>Mokytojas</th></tr>
		<tr><td colspan="5">Pirmadienis</td></tr>
		<tr><td>1</td><td>8:00 - 8:45</td><td>Matematika</td><td>Kab. 12</td><td>J. Jonaitis</td></tr>
		<tr><td>2</td><td>8:55-9:40</td><td>Fizika</td><td></td><td></td></tr>
		<tr><td colspan="5">Antradienis</td></tr>
		<tr><td>1</td><td>8:00-8:45</td><td>Istorija</td><td>Room 4</td><td>P. Petraitė</td></tr>
	</table>`

	lessons := ParseSchedule(html)
	require.Equal(t, []Lesson{
		{Day: "pirmadienis", Time: "8:00 - 8:45", Subject: "Matematika", Room: "Kab. 12", Teacher: "J. Jonaitis"},
		{Day: "pirmadienis", Time: "8:55-9:40", Subject: "Fizika"},
		{Day: "antradienis", Time: "8:00-8:45", Subject: "Istorija", Room: "Room 4", Teacher: "P. Petraitė"},
	}, lessons)

	require.Empty(t, ParseSchedule("<p>Tvarkaraštis nepaskelbtas</p>"))
}

func TestParseScheduleElements(t *testing.T) {
	html := `<div class="day" data-day="Penktadienis">
		<div class="lesson"><span class="time">10:00</span><span class="subject">Chemija</span><span class="room">201</span></div>
	</div>`
	require.Equal(t, []Lesson{
		{Day: "penktadienis", Time: "10:00", Subject: "Chemija", Room: "201"},
	}, ParseSchedule(html))
}

func TestParseHomework(t *testing.T) {
	html := `
	<table>
		<thead><tr><th>Dalykas</th><th>Užduotis</th><th>Data</th><th>Atlikti iki</th></tr></thead>
		<tbody>
			<tr><td>Lietuvių kalba</td><td>Perskaityti 3 skyrių ir parašyti santrauką</td><td>2024-10-01</td><td>2024-10-08</td></tr>
			<tr><td>Geografija</td><td>Kontūrinis žemėlapis</td><td>2024-10-10</td></tr>
			<tr><td>Be užduoties</td></tr>
		</tbody>
	</table>`

	require.Equal(t, []Assignment{
		{Subject: "Lietuvių kalba", Description: "Perskaityti 3 skyrių ir parašyti santrauką", Assigned: "2024-10-01", Due: "2024-10-08"},
		{Subject: "Geografija", Description: "Kontūrinis žemėlapis", Due: "2024-10-10"},
	}, ParseHomework(html))

	elements := `<div class="homework" data-subject="Muzika" data-due="2024-12-01">
		<p class="description">Išmokti dainą</p>
	</div>`
	require.Equal(t, []Assignment{
		{Subject: "Muzika", Description: "Išmokti dainą", Due: "2024-12-01"},
	}, ParseHomework(elements))
}
