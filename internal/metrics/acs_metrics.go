// Package metrics exposes Prometheus instrumentation for ACS traffic and provisioning flows.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
)

var (
	// ACS call metrics
	ACSCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpe_console_acs_calls_total",
			Help: "Total number of calls made to the ACS by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	ACSCallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cpe_console_acs_call_duration_seconds",
			Help:    "Duration of calls made to the ACS",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"op"},
	)

	// Provisioning metrics
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpe_console_operations_total",
			Help: "Total number of provisioning operations by kind and result",
		},
		[]string{"kind", "result"},
	)

	VLANKeyResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpe_console_vlan_key_resolutions_total",
			Help: "VLAN parameter name resolutions by vendor and confidence",
		},
		[]string{"vendor", "confidence"},
	)

	BulkRebootDevicesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpe_console_bulk_reboot_devices_total",
			Help: "Devices processed by bulk reboot requests by result",
		},
		[]string{"result"},
	)
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

// ObserveACSCall records one ACS round trip. Its signature matches genieacs.Observer.
func ObserveACSCall(op string, status int, err error, elapsed time.Duration) {
	ACSCallsTotal.WithLabelValues(op, CallOutcome(status, err)).Inc()
	ACSCallDurationSeconds.WithLabelValues(op).Observe(elapsed.Seconds())
}

// CallOutcome labels a call by its status code or error category.
func CallOutcome(status int, err error) string {
	if err != nil {
		return string(internalerrors.TypeOf(err))
	}
	if status >= 200 && status < 300 {
		return OutcomeOK
	}
	return OutcomeRejected
}

// RecordOperation records the result of a provisioning operation.
func RecordOperation(kind, result string) {
	OperationsTotal.WithLabelValues(kind, result).Inc()
}

// RecordVLANKeyResolution records how a VLAN parameter name was chosen.
func RecordVLANKeyResolution(vendor, confidence string) {
	VLANKeyResolutionsTotal.WithLabelValues(vendor, confidence).Inc()
}

// RecordBulkRebootDevice records the result for one device of a bulk reboot.
func RecordBulkRebootDevice(result string) {
	BulkRebootDevicesTotal.WithLabelValues(result).Inc()
}
