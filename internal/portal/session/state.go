package session

// State is everything a portal knows about us during one login+fetch
// sequence. A fresh State is created per login attempt and threaded through
// every call of that sequence, it is never shared or reused.
type State struct {
	// BaseURL is the candidate base url that answered the login page.
	BaseURL string
	Jar     *Jar
	Token   string
	// LoggedIn is set once a login attempt was classified as successful.
	LoggedIn bool
}

func NewState() *State {
	return &State{Jar: NewJar()}
}
