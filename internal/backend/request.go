package backend

import (
	"net/http"
	"net/url"
)

// Request is the read-only snapshot of one interaction: query parameters
// and posted fields. Form only holds fields of the request body.
type Request struct {
	Method string
	Query  url.Values
	Form   url.Values
	ID     string
}

// NewRequest snapshots r. The body must already be parsed.
func NewRequest(r *http.Request, id string) *Request {
	return &Request{
		Method: r.Method,
		Query:  cloneValues(r.URL.Query()),
		Form:   cloneValues(r.PostForm),
		ID:     id,
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func (r *Request) IsPost() bool { return r.Method == http.MethodPost }

// Get returns the query parameter key.
func (r *Request) Get(key string) string { return r.Query.Get(key) }

// Post returns the posted field key; always empty outside POST requests.
func (r *Request) Post(key string) string {
	if !r.IsPost() {
		return ""
	}
	return r.Form.Get(key)
}

// Truthy reports whether a parameter counts as set: present, non-empty and
// not "0".
func Truthy(v string) bool { return v != "" && v != "0" }
