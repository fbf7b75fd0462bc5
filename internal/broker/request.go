package broker

import (
	"net/url"
	"time"
)

// Broker commands understood by FlareSolverr-compatible services.
const (
	CommandGet  = "request.get"
	CommandPost = "request.post"
)

// DefaultMaxTimeout is how long the broker may spend solving a challenge.
const DefaultMaxTimeout = 60 * time.Second

// networkMargin pads the HTTP timeout beyond the broker's own deadline.
const networkMargin = 10 * time.Second

// Request is a single command for the broker.
type Request struct {
	Command    string
	URL        string
	MaxTimeout time.Duration
	// Params are merged into the JSON payload after the core fields.
	Params map[string]string
	// PostData is sent verbatim unless Form is set, in which case Form is
	// URL-encoded into postData instead.
	PostData string
	Form     url.Values
}

// Get builds a request.get command using the client's default timeout.
func Get(targetURL string) Request {
	return Request{Command: CommandGet, URL: targetURL}
}

// Post builds a request.post command with a form body.
func Post(targetURL string, form url.Values) Request {
	return Request{Command: CommandPost, URL: targetURL, Form: form}
}

func (r Request) command() string {
	if r.Command == "" {
		return CommandGet
	}
	return r.Command
}

func (r Request) maxTimeout() time.Duration {
	if r.MaxTimeout <= 0 {
		return DefaultMaxTimeout
	}
	return r.MaxTimeout
}

func (r Request) postData() string {
	if len(r.Form) > 0 {
		return r.Form.Encode()
	}
	return r.PostData
}

// networkTimeout is the HTTP-level timeout for the call.
func (r Request) networkTimeout() time.Duration {
	return r.maxTimeout() + networkMargin
}
