package anomaly

import (
	"github.com/adamdorogi/anomaly-detection/internal/rate"
	"github.com/adamdorogi/anomaly-detection/schema"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type promMetrics struct {
	samplesTotal   prometheus.Counter
	decisionsTotal prometheus.Counter
	outliersTotal  prometheus.Counter

	lastValue   prometheus.Gauge
	rollingMean prometheus.Gauge
	rollingStd  prometheus.Gauge
	zScore      prometheus.Gauge
	outlierFlag prometheus.Gauge
	outlierRate prometheus.Gauge
}

func newPromMetrics() *promMetrics {
	return &promMetrics{
		samplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detector_samples_received_total",
			Help: "Live samples seen on the broker.",
		}),
		decisionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detector_decisions_total",
			Help: "Decisions emitted by the engine.",
		}),
		outliersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detector_outliers_total",
			Help: "Decisions that flagged an outlier.",
		}),
		lastValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "detector_last_value",
			Help: "Value of the most recent accepted sample.",
		}),
		rollingMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "detector_rolling_mean",
			Help: "Rolling mean at the most recent decision.",
		}),
		rollingStd: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "detector_rolling_stddev",
			Help: "Rolling sample standard deviation at the most recent decision.",
		}),
		zScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "detector_zscore",
			Help: "Z-score of the most recent accepted sample.",
		}),
		outlierFlag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "detector_outlier",
			Help: "1 when the most recent decision flagged an outlier.",
		}),
		outlierRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "detector_outlier_rate_percent",
			Help: "Share of the last 100 decisions that flagged an outlier.",
		}),
	}
}

func (m *promMetrics) register() error {
	collectors := []prometheus.Collector{
		m.samplesTotal,
		m.decisionsTotal,
		m.outliersTotal,
		m.lastValue,
		m.rollingMean,
		m.rollingStd,
		m.zScore,
		m.outlierFlag,
		m.outlierRate,
	}

	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			are := prometheus.AlreadyRegisteredError{}
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func (d *Detector) publishPrometheusMetrics() {
	m := newPromMetrics()
	if err := m.register(); err != nil {
		d.errCh <- errors.Wrap(err, "register prometheus metrics")
		return
	}

	tracker := rate.NewTracker(100)

	msgCh := d.broker.Subscribe()
	defer d.broker.Unsubscribe(msgCh)

	for {
		select {
		case <-d.ctx.Done():
			return
		case msg := <-msgCh:
			switch v := msg.(type) {
			case schema.Sample:
				m.samplesTotal.Inc()
			case schema.Decision:
				m.decisionsTotal.Inc()
				m.lastValue.Set(v.Value)
				m.rollingMean.Set(v.Mean)
				m.rollingStd.Set(v.StdDev)
				m.zScore.Set(v.ZScore)

				if v.Outlier {
					m.outliersTotal.Inc()
					m.outlierFlag.Set(1)
				} else {
					m.outlierFlag.Set(0)
				}

				tracker.Record(v.Outlier)
				m.outlierRate.Set(tracker.Percent())
			}
		}
	}
}
