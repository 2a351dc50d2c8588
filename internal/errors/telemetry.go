package errors

import "sync/atomic"

// TelemetryReporter receives every built EnhancedError.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

type reporterHolder struct {
	reporter TelemetryReporter
}

var telemetryReporter atomic.Pointer[reporterHolder]

// SetTelemetryReporter installs the global reporter. Passing nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		telemetryReporter.Store(nil)
		return
	}
	telemetryReporter.Store(&reporterHolder{reporter: reporter})
}

// GetTelemetryReporter returns the installed reporter or nil.
func GetTelemetryReporter() TelemetryReporter {
	if h := telemetryReporter.Load(); h != nil {
		return h.reporter
	}
	return nil
}

func reportToTelemetry(ee *EnhancedError) {
	reporter := GetTelemetryReporter()
	if reporter == nil || !reporter.IsEnabled() || ee.IsReported() {
		return
	}
	reporter.ReportError(ee)
	ee.MarkReported()
}
