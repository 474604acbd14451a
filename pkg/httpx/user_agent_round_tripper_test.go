package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bidzhoyandavid/auto-bot/pkg/httpx"
)

func TestUserAgentRoundTripper(t *testing.T) {
	rq := require.New(t)

	userAgents := []string{"agent-one/1.0", "agent-two/2.0"}

	var seen []string

	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer httpServer.Close()

	client := &http.Client{
		Transport: httpx.NewUserAgentRoundTripper(http.DefaultTransport, userAgents),
	}

	for range 20 {
		resp, err := client.Get(httpServer.URL)
		rq.NoError(err)
		resp.Body.Close()
	}

	rq.Len(seen, 20)
	for _, ua := range seen {
		rq.Contains(userAgents, ua)
	}
}

func TestUserAgentRoundTripperKeepsExplicitHeader(t *testing.T) {
	rq := require.New(t)

	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rq.Equal("custom/3.0", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer httpServer.Close()

	client := &http.Client{
		Transport: httpx.NewUserAgentRoundTripper(http.DefaultTransport, []string{"agent-one/1.0"}),
	}

	req, err := http.NewRequest(http.MethodGet, httpServer.URL, http.NoBody)
	rq.NoError(err)
	req.Header.Set("User-Agent", "custom/3.0")

	resp, err := client.Do(req)
	rq.NoError(err)
	resp.Body.Close()
}
