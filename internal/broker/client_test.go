package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePoster struct {
	reply    []byte
	err      error
	calls    int
	endpoint string
	payload  map[string]any
	timeout  time.Duration
}

func (f *fakePoster) Post(_ context.Context, endpoint string, payload []byte, timeout time.Duration) ([]byte, error) {
	f.calls++
	f.endpoint = endpoint
	f.timeout = timeout
	f.payload = map[string]any{}
	if err := json.Unmarshal(payload, &f.payload); err != nil {
		return nil, fmt.Errorf("bad payload: %w", err)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) HTTPStatus() int { return e.code }

func TestSendWithoutEndpointIsUnavailable(t *testing.T) {
	t.Parallel()

	poster := &fakePoster{}
	client := New("", poster, zap.NewNop())

	_, err := client.Send(context.Background(), Get("https://example.com"))
	require.ErrorIs(t, err, ErrBrokerUnavailable)
	require.Zero(t, poster.calls)

	var nilClient *Client
	_, err = nilClient.Send(context.Background(), Get("https://example.com"))
	require.ErrorIs(t, err, ErrBrokerUnavailable)
}

func TestSendBuildsGetPayload(t *testing.T) {
	t.Parallel()

	poster := &fakePoster{reply: []byte(`{"status":"ok","solution":{"url":"https://example.com","status":200,"response":"<html>ok</html>"}}`)}
	client := New("http://localhost:8191/v1", poster, zap.NewNop())

	req := Get("https://uk.indeed.com/jobs")
	req.Params = map[string]string{"q": "django", "start": "10"}
	body, err := client.Send(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "<html>ok</html>", body)

	require.Equal(t, "http://localhost:8191/v1", poster.endpoint)
	require.Equal(t, 70*time.Second, poster.timeout)
	require.Equal(t, "request.get", poster.payload["cmd"])
	require.Equal(t, "https://uk.indeed.com/jobs", poster.payload["url"])
	require.EqualValues(t, 60000, poster.payload["maxTimeout"])
	require.Equal(t, "django", poster.payload["q"])
	require.Equal(t, "10", poster.payload["start"])
	require.NotContains(t, poster.payload, "postData")
}

func TestSendEncodesFormAsPostData(t *testing.T) {
	t.Parallel()

	poster := &fakePoster{reply: []byte(`{"solution":{"response":"<string>x</string>"}}`)}
	client := New("http://broker/v1", poster, nil)

	form := url.Values{}
	form.Set("shid", "ABC")
	form.Set("jobIDsStr", "A#B")
	form.Set("pageNum", "1")
	req := Post("https://jobserve.com/WebServices/JobSearch.asmx/RetrieveJobs", form)
	req.MaxTimeout = 30 * time.Second

	body, err := client.Send(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "<string>x</string>", body)
	require.Equal(t, "request.post", poster.payload["cmd"])
	require.EqualValues(t, 30000, poster.payload["maxTimeout"])
	require.Equal(t, "jobIDsStr=A%23B&pageNum=1&shid=ABC", poster.payload["postData"])
	require.Equal(t, 40*time.Second, poster.timeout)
}

func TestSendPassesRawPostData(t *testing.T) {
	t.Parallel()

	poster := &fakePoster{reply: []byte("plain")}
	client := New("http://broker/v1", poster, nil)

	_, err := client.Send(context.Background(), Request{Command: CommandPost, URL: "https://x", PostData: "a=1"})
	require.NoError(t, err)
	require.Equal(t, "a=1", poster.payload["postData"])
}

func TestSendReturnsRawBodyWhenNotStructured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"html", "<html><body>raw</body></html>", "<html><body>raw</body></html>"},
		{"broken json", `{"solution": `, `{"solution": `},
		{"json array", `["a"]`, `["a"]`},
		{"object without solution", `{"status":"ok"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := New("http://broker/v1", &fakePoster{reply: []byte(tt.reply)}, nil)
			body, err := client.Send(context.Background(), Get("https://example.com"))
			require.NoError(t, err)
			require.Equal(t, tt.want, body)
		})
	}
}

func TestSendWrapsTransportFailure(t *testing.T) {
	t.Parallel()

	cause := statusErr{code: 503}
	client := New("http://broker/v1", &fakePoster{err: cause}, nil)

	_, err := client.Send(context.Background(), Get("https://example.com"))
	require.ErrorIs(t, err, ErrRequestFailed)
	require.ErrorIs(t, err, cause)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, 503, reqErr.StatusCode)
	require.Equal(t, CommandGet, reqErr.Command)
	require.Contains(t, reqErr.Error(), "status 503")
}

func TestSendTreatsErrorReplyAsFailure(t *testing.T) {
	t.Parallel()

	client := New("http://broker/v1", &fakePoster{reply: []byte(`{"status":"error","message":"Challenge not solved"}`)}, nil)

	_, err := client.Send(context.Background(), Get("https://example.com"))
	require.ErrorIs(t, err, ErrRequestFailed)
	require.Contains(t, err.Error(), "Challenge not solved")
}

func TestSendAppliesClientMaxTimeout(t *testing.T) {
	t.Parallel()

	poster := &fakePoster{reply: []byte(`{"status":"ok","solution":{"response":"x"}}`)}
	client := New("http://broker", poster, nil).WithMaxTimeout(30 * time.Second)

	_, err := client.Send(context.Background(), Get("https://example.com"))
	require.NoError(t, err)
	require.EqualValues(t, 30000, poster.payload["maxTimeout"])
	require.Equal(t, 40*time.Second, poster.timeout)

	req := Get("https://example.com")
	req.MaxTimeout = 5 * time.Second
	_, err = client.Send(context.Background(), req)
	require.NoError(t, err)
	require.EqualValues(t, 5000, poster.payload["maxTimeout"])
}

func TestRequestDefaults(t *testing.T) {
	t.Parallel()

	req := Request{URL: "https://example.com"}
	require.Equal(t, CommandGet, req.command())
	require.Equal(t, DefaultMaxTimeout, req.maxTimeout())
	require.Equal(t, DefaultMaxTimeout+10*time.Second, req.networkTimeout())
	require.Empty(t, req.postData())
}
