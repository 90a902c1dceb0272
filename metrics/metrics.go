// Package metrics exposes Prometheus collectors for the paper driver.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradesim_ticks_total", Help: "Count of ticks processed"},
		[]string{"instrument"},
	)
	EntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradesim_entries_total", Help: "Positions opened"},
		[]string{"instrument", "direction"},
	)
	ExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradesim_exits_total", Help: "Positions closed"},
		[]string{"instrument", "reason"},
	)
	RejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tradesim_rejections_total", Help: "Entries refused by the risk gate"},
		[]string{"instrument", "reason"},
	)
	Capital = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tradesim_capital", Help: "Current simulated capital"},
	)
	OpenNotional = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "tradesim_open_notional", Help: "Notional tied up in open positions"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, EntriesTotal, ExitsTotal, RejectionsTotal, Capital, OpenNotional)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
