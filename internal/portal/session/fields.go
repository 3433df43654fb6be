package session

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TokenNames are the anti-forgery input names seen on supported portals,
// in order of preference.
var TokenNames = []string{
	"__RequestVerificationToken",
	"_token",
	"csrf_token",
	"_csrf",
	"csrfmiddlewaretoken",
	"authenticity_token",
	"logintoken",
}

// Fields is what a login page smuggles through hidden inputs.
type Fields struct {
	// TokenName and Token are empty when no known anti-forgery input exists.
	TokenName string
	Token     string
	// Hidden holds every named hidden input, missing values map to "".
	Hidden map[string]string
	// Action is the action attribute of the form holding a password input.
	Action string
}

// ExtractFields never fails, unparseable or empty html yields empty Fields.
func ExtractFields(html string) Fields {
	out := Fields{Hidden: map[string]string{}}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out
	}

	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		if !strings.EqualFold(strings.TrimSpace(input.AttrOr("type", "")), "hidden") {
			return
		}
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		// the first occurrence wins, later duplicates are usually template leftovers
		if _, seen := out.Hidden[name]; seen {
			return
		}
		out.Hidden[name] = input.AttrOr("value", "")
	})

	for _, name := range TokenNames {
		if value, ok := out.Hidden[name]; ok {
			out.TokenName = name
			out.Token = value
			break
		}
	}
	if out.TokenName == "" {
		// some portals put the token in a meta tag for their ajax calls
		meta := doc.Find(`meta[name="csrf-token"]`).First()
		if content, ok := meta.Attr("content"); ok {
			out.TokenName = "_token"
			out.Token = content
		}
	}

	form := doc.Find(`input[type="password"]`).First().Closest("form")
	out.Action = strings.TrimSpace(form.AttrOr("action", ""))

	return out
}
