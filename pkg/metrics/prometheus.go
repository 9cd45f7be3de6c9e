package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector adapts a Recorder's snapshot into a prometheus.Collector so a
// host application can register it with its own registry.
type Collector struct {
	recorder *Recorder

	bytesSentDesc      *prometheus.Desc
	bytesReceivedDesc  *prometheus.Desc
	operationCountDesc *prometheus.Desc
	errorCountDesc     *prometheus.Desc
	errorRateDesc      *prometheus.Desc
	avgSendDesc        *prometheus.Desc
	avgReceiveDesc     *prometheus.Desc
}

// NewCollector wraps recorder in a prometheus.Collector. labels are applied
// to every exported metric, typically used to distinguish multiple PLC
// connections registered against the same registry.
func NewCollector(recorder *Recorder, constLabels prometheus.Labels) *Collector {
	return &Collector{
		recorder:           recorder,
		bytesSentDesc:      prometheus.NewDesc("s7_bytes_sent_total", "Total bytes sent to the PLC.", nil, constLabels),
		bytesReceivedDesc:  prometheus.NewDesc("s7_bytes_received_total", "Total bytes received from the PLC.", nil, constLabels),
		operationCountDesc: prometheus.NewDesc("s7_operations_total", "Total S7 exchanges completed.", nil, constLabels),
		errorCountDesc:     prometheus.NewDesc("s7_errors_total", "Total S7 exchanges that ended in error.", nil, constLabels),
		errorRateDesc:      prometheus.NewDesc("s7_error_rate", "error_count / operation_count.", nil, constLabels),
		avgSendDesc:        prometheus.NewDesc("s7_send_latency_seconds_avg", "Rolling average send-side latency.", nil, constLabels),
		avgReceiveDesc:     prometheus.NewDesc("s7_receive_latency_seconds_avg", "Rolling average receive-side latency.", nil, constLabels),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.bytesSentDesc
	descs <- c.bytesReceivedDesc
	descs <- c.operationCountDesc
	descs <- c.errorCountDesc
	descs <- c.errorRateDesc
	descs <- c.avgSendDesc
	descs <- c.avgReceiveDesc
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	snap := c.recorder.Snapshot()
	metrics <- prometheus.MustNewConstMetric(c.bytesSentDesc, prometheus.CounterValue, float64(snap.BytesSent))
	metrics <- prometheus.MustNewConstMetric(c.bytesReceivedDesc, prometheus.CounterValue, float64(snap.BytesReceived))
	metrics <- prometheus.MustNewConstMetric(c.operationCountDesc, prometheus.CounterValue, float64(snap.OperationCount))
	metrics <- prometheus.MustNewConstMetric(c.errorCountDesc, prometheus.CounterValue, float64(snap.ErrorCount))
	metrics <- prometheus.MustNewConstMetric(c.errorRateDesc, prometheus.GaugeValue, snap.ErrorRate)
	metrics <- prometheus.MustNewConstMetric(c.avgSendDesc, prometheus.GaugeValue, snap.AverageSend.Seconds())
	metrics <- prometheus.MustNewConstMetric(c.avgReceiveDesc, prometheus.GaugeValue, snap.AverageReceive.Seconds())
}
