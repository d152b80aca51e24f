/*
Package server implements msgpack IPC for location-bar autocomplete.

Clients send msgpack maps on stdin and read msgpack maps from stdout. Every
message carries an "id" that is echoed in the reply and an "action":

	{"id": "1", "action": "session"}
	{"id": "2", "action": "resolve", "s": "<session>", "q": "beaker"}
	{"id": "3", "action": "focus", "s": "<session>"}
	{"id": "4", "action": "visit", "u": "https://beakerbrowser.com", "t": "Beaker"}
	{"id": "5", "action": "health"}

A session is one location bar. "resolve" sets the session input and runs a
resolution in the background; its reply arrives once results are applied:

	{"id": "2", "s": "<session>", "q": "beaker", "r": [{"k": "search", ...}], "c": 3, "t": 412}

A resolution that is overtaken by a newer one for the same session sends no
reply at all, so clients match replies by id and keep only the latest.
"focus" restarts the session's bookmarks fetch, as when the bar is focused.

Failures are reported as {"id": ..., "e": message, "c": code}.
*/
package server

// Request is any client message; which fields matter depends on Action.
type Request struct {
	ID      string `msgpack:"id"`
	Action  string `msgpack:"action"`
	Session string `msgpack:"s,omitempty"`
	Query   string `msgpack:"q,omitempty"`
	URL     string `msgpack:"u,omitempty"`
	Title   string `msgpack:"t,omitempty"`
}

// Suggestion is one result row. Fragment lists alternate plain and
// matched text, starting with plain.
type Suggestion struct {
	Kind           string   `msgpack:"k"`
	URL            string   `msgpack:"u"`
	Title          string   `msgpack:"t"`
	Query          string   `msgpack:"q,omitempty"`
	Guessing       bool     `msgpack:"gs,omitempty"`
	URLFragments   []string `msgpack:"uf,omitempty"`
	TitleFragments []string `msgpack:"tf,omitempty"`
	Icon           string   `msgpack:"i,omitempty"`
	Label          string   `msgpack:"l,omitempty"`
}

// Guess is the session's URL guess.
type Guess struct {
	Input string `msgpack:"in"`
	URL   string `msgpack:"u"`
}

// ResolveResponse carries an applied resolution.
type ResolveResponse struct {
	ID          string       `msgpack:"id"`
	Session     string       `msgpack:"s"`
	Query       string       `msgpack:"q"`
	Suggestions []Suggestion `msgpack:"r"`
	Guess       *Guess       `msgpack:"g,omitempty"`
	Count       int          `msgpack:"c"`
	TimeTaken   int64        `msgpack:"t"`
}

// SessionResponse returns a new session id.
type SessionResponse struct {
	ID      string `msgpack:"id"`
	Session string `msgpack:"s"`
}

// StatusResponse acknowledges actions without a payload.
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for a failed request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
