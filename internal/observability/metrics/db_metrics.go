package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// backlogGauges are sampled from the database on every scrape.
var backlogGauges = []struct {
	name  string
	help  string
	query string
}{
	{
		name:  "settlements_without_bill",
		help:  "Settlements awaiting manual bill remediation",
		query: "SELECT COUNT(*) FROM settlements WHERE bill_ref IS NULL",
	},
	{
		name:  "couriers_high_volume_active",
		help:  "Couriers with the high volume bonus active today",
		query: "SELECT COUNT(*) FROM couriers WHERE high_volume_active",
	},
}

func registerDBMetrics(db *sql.DB, logger logrus.FieldLogger) {
	for _, g := range backlogGauges {
		query := g.query
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: metricPrefix + g.name, Help: g.help},
			func() float64 { return countRows(db, logger, query) },
		))
	}
}

func countRows(db *sql.DB, logger logrus.FieldLogger, query string) float64 {
	if db == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var count int64
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		if logger != nil {
			logger.WithError(err).WithField("query", query).Warn("metrics query failed")
		}
		return 0
	}
	return float64(max(count, 0))
}
