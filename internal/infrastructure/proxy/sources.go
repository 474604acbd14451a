package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bidzhoyandavid/auto-bot/internal/domain"
	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/pkg/errcodes"
)

// Ограничение на размер ответа источника: списки прокси весят десятки
// килобайт, всё сверх этого — мусор.
const maxSourceBodyBytes = 2 << 20

// Format определяет, как разбирать ответ источника.
type Format int

const (
	// FormatHTMLTable — HTML-страница с таблицей ip/port в первых двух колонках.
	FormatHTMLTable Format = iota
	// FormatPlainList — текстовый список строк "ip:port".
	FormatPlainList
)

// Source — открытый список публичных прокси.
type Source struct {
	Name   string
	URL    string
	Format Format
}

// DefaultSources возвращает источники, из которых пул собирает кандидатов.
func DefaultSources() []Source {
	return []Source{
		{Name: "sslproxies", URL: "https://www.sslproxies.org/", Format: FormatHTMLTable},
		{Name: "free-proxy-list", URL: "https://free-proxy-list.net/", Format: FormatHTMLTable},
		{
			Name:   "proxyscrape",
			URL:    "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=10000&country=all&ssl=all&anonymity=all",
			Format: FormatPlainList,
		},
	}
}

// Fetch скачивает список источника и возвращает непроверенных кандидатов.
func (s Source) Fetch(ctx context.Context, client *http.Client) ([]entity.Proxy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(
			errcodes.ProxySourceFailure,
			fmt.Sprintf("source %s returned status %d", s.Name, resp.StatusCode),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll: %w", err)
	}

	switch s.Format {
	case FormatHTMLTable:
		return parseProxyTable(body)
	case FormatPlainList:
		return parseProxyList(body), nil
	default:
		return nil, domain.NewError(errcodes.ProxySourceFailure, fmt.Sprintf("source %s has unknown format", s.Name))
	}
}

// parseProxyTable вытаскивает пары ip/port из первых двух колонок таблицы.
func parseProxyTable(body []byte) ([]entity.Proxy, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("goquery.NewDocumentFromReader: %w", err)
	}

	var proxies []entity.Proxy

	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		host := strings.TrimSpace(cells.Eq(0).Text())
		port, err := strconv.Atoi(strings.TrimSpace(cells.Eq(1).Text()))
		if err != nil || net.ParseIP(host) == nil {
			return
		}

		proxies = append(proxies, entity.Proxy{Host: host, Port: port, Protocol: "http"})
	})

	return proxies, nil
}

// parseProxyList разбирает текстовый список "ip:port", по одному на строку.
func parseProxyList(body []byte) []entity.Proxy {
	var proxies []entity.Proxy

	for _, line := range strings.Fields(string(body)) {
		host, portStr, ok := strings.Cut(line, ":")
		if !ok || net.ParseIP(host) == nil {
			continue
		}

		port, err := strconv.Atoi(strings.TrimSpace(portStr))
		if err != nil {
			continue
		}

		proxies = append(proxies, entity.Proxy{Host: host, Port: port, Protocol: "http"})
	}

	return proxies
}
