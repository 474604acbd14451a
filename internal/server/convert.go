package server

import (
	"github.com/samber/lo"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/entity"
	"github.com/bidzhoyandavid/auto-bot/internal/worker"
	"github.com/bidzhoyandavid/auto-bot/pkg/rest"
)

func newRESTStatusReport(stats entity.RepoStats, last *worker.CycleReport, running bool) rest.StatusReport {
	return rest.StatusReport{
		Repo: rest.RepoStats{
			TotalListings:      stats.TotalListings,
			TotalNotifications: stats.TotalNotifications,
			Notifications24h:   stats.Notifications24h,
			BySource:           stats.BySource,
			ByMake:             stats.ByMake,
		},
		LastCycle:    newRESTCycleSummary(last),
		CycleRunning: running,
	}
}

func newRESTCycleSummary(report *worker.CycleReport) *rest.CycleSummary {
	if report == nil {
		return nil
	}

	return &rest.CycleSummary{
		ID:         report.ID,
		StartedAt:  report.StartedAt,
		DurationMS: report.Duration.Milliseconds(),
		Scraped:    report.Scraped,
		New:        report.New,
		Notified:   report.Notified,
		Errors:     report.Errors,
	}
}

func newRESTProxyPoolReport(stats entity.ProxyPoolStats, proxies []entity.Proxy) rest.ProxyPoolReport {
	return rest.ProxyPoolReport{
		Total:          stats.Total,
		AvgSuccessRate: stats.AvgSuccessRate,
		LastRefresh:    stats.LastRefresh,
		Proxies: lo.Map(proxies, func(p entity.Proxy, _ int) rest.Proxy {
			return rest.Proxy{
				Address:     p.Address(),
				Protocol:    p.Protocol,
				SuccessRate: p.SuccessRate(),
				LastChecked: p.LastChecked,
			}
		}),
	}
}
