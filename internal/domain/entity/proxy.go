package entity

import (
	"fmt"
	"time"
)

// Proxy — HTTP-прокси из открытых списков. Живёт только в памяти пула,
// при каждом обновлении пул пересобирается заново.
type Proxy struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`

	SuccessCount int       `json:"success_count"`
	FailCount    int       `json:"fail_count"`
	LastChecked  time.Time `json:"last_checked"`
}

// Address возвращает "host:port".
func (p *Proxy) Address() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// URL возвращает адрес в виде "protocol://host:port".
func (p *Proxy) URL() string {
	proto := p.Protocol
	if proto == "" {
		proto = "http"
	}
	return fmt.Sprintf("%s://%s:%d", proto, p.Host, p.Port)
}

// SuccessRate — доля успешных проверок; 0.5, пока прокси не проверялся.
func (p *Proxy) SuccessRate() float64 {
	total := p.SuccessCount + p.FailCount
	if total == 0 {
		return 0.5
	}
	return float64(p.SuccessCount) / float64(total)
}

// ProxyPoolStats — агрегированное состояние пула.
type ProxyPoolStats struct {
	Total          int       `json:"total"`
	LastRefresh    time.Time `json:"last_refresh"`
	AvgSuccessRate float64   `json:"avg_success_rate"`
}
