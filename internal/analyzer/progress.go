package analyzer

import "time"

// ProgressReporter receives progress events during analysis.
type ProgressReporter interface {
	// OnDiscoveryComplete is called once the batch has been enumerated.
	OnDiscoveryComplete(source string, totalClasses int)

	// OnClassProcessed is called after each entry, decoded or skipped.
	OnClassProcessed(entryName string)

	// OnSkipped is called when an entry cannot be decoded.
	OnSkipped(entryName string, err error)

	// OnResolvingStart is called before override counts are resolved.
	OnResolvingStart(totalClasses int)

	// OnComplete is called when the report is ready.
	OnComplete(report *Report, duration time.Duration)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryComplete(source string, totalClasses int) {}
func (n *NoOpProgressReporter) OnClassProcessed(entryName string)                  {}
func (n *NoOpProgressReporter) OnSkipped(entryName string, err error)              {}
func (n *NoOpProgressReporter) OnResolvingStart(totalClasses int)                  {}
func (n *NoOpProgressReporter) OnComplete(report *Report, duration time.Duration)  {}
