package httpx

import (
	"fmt"
	"math/rand"
	"net/http"
)

// UserAgentRoundTripper подставляет случайный User-Agent из набора в каждый
// исходящий запрос. Уже установленный вызывающим кодом заголовок не трогаем.
type UserAgentRoundTripper struct {
	next       http.RoundTripper
	userAgents []string
}

func NewUserAgentRoundTripper(
	next http.RoundTripper,
	userAgents []string,
) UserAgentRoundTripper {
	return UserAgentRoundTripper{
		next:       next,
		userAgents: userAgents,
	}
}

func (rt UserAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && len(rt.userAgents) > 0 {
		req.Header.Set("User-Agent", rt.userAgents[rand.Intn(len(rt.userAgents))])
	}

	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("next.RoundTrip: %w", err)
	}

	return resp, nil
}
