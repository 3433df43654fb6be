package session

import (
	"net/http"
	"strings"
)

type cookie struct {
	name  string
	value string
}

// Jar is an ordered set of cookies for one login+fetch sequence. Expiry,
// domain and path attributes are ignored, every cookie lives until the Jar
// is discarded.
type Jar struct {
	cookies []cookie
}

func NewJar() *Jar {
	return &Jar{}
}

// Update merges every Set-Cookie header in headers into the jar and
// returns the names it set. An existing cookie keeps its position and takes
// the new value, unseen cookies are appended.
func (j *Jar) Update(headers http.Header) []string {
	parsed := (&http.Response{Header: headers}).Cookies()
	names := make([]string, 0, len(parsed))
	for _, c := range parsed {
		j.Set(c.Name, c.Value)
		names = append(names, c.Name)
	}
	return names
}

func (j *Jar) Set(name, value string) {
	for i := range j.cookies {
		if j.cookies[i].name == name {
			j.cookies[i].value = value
			return
		}
	}
	j.cookies = append(j.cookies, cookie{name: name, value: value})
}

func (j *Jar) Get(name string) (string, bool) {
	for _, c := range j.cookies {
		if c.name == name {
			return c.value, true
		}
	}
	return "", false
}

func (j *Jar) Names() []string {
	out := make([]string, len(j.cookies))
	for i, c := range j.cookies {
		out[i] = c.name
	}
	return out
}

func (j *Jar) Len() int {
	return len(j.cookies)
}

// Header renders the jar as the value of a single Cookie request header.
func (j *Jar) Header() string {
	var out strings.Builder
	for i, c := range j.cookies {
		if i > 0 {
			out.WriteString("; ")
		}
		out.WriteString(c.name)
		out.WriteByte('=')
		out.WriteString(c.value)
	}
	return out.String()
}
