package httpx

import "math/rand"

// DefaultUserAgents — набор актуальных десктопных User-Agent.
// Один набор используется и браузером, и обычными HTTP-клиентами,
// чтобы трафик выглядел однородно.
var DefaultUserAgents = []string{ //nolint:gochecknoglobals
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// RandomUserAgent возвращает случайный User-Agent из набора.
func RandomUserAgent() string {
	return DefaultUserAgents[rand.Intn(len(DefaultUserAgents))] //nolint:gosec
}
