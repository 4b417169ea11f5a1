package types

import "fmt"

// WarningLevel is the severity of a non-fatal issue encountered while
// loading or saving a document.
type WarningLevel string

const (
	WarningLevelInfo    WarningLevel = "info"
	WarningLevelWarning WarningLevel = "warning"
)

// Warning is one non-fatal issue recorded on a Document's WarningCollector.
// Code, when set, reuses the same PDFErrorCode vocabulary as hard errors —
// in particular a save-mode downgrade (see IsIncrementalDowngrade) is
// recorded with the PDFErrorCode that would have been the error had the
// writer not fallen back to a safer path instead.
type Warning struct {
	Level   WarningLevel
	Message string
	Code    PDFErrorCode
}

// Error implements the error interface so a Warning can be surfaced as an
// error by callers that want to, without the collector treating it as one.
func (w *Warning) Error() string {
	if w.Code != "" {
		return fmt.Sprintf("[%s] %s: %s", w.Level, w.Code, w.Message)
	}
	return fmt.Sprintf("[%s] %s", w.Level, w.Message)
}

// WarningCollector accumulates Warnings gathered while loading or saving a
// document. A disabled collector drops everything added to it, so callers
// that don't want the bookkeeping don't pay for it.
type WarningCollector struct {
	warnings []*Warning
	enabled  bool
}

// NewWarningCollector creates a collector, enabled or not.
func NewWarningCollector(enabled bool) *WarningCollector {
	return &WarningCollector{enabled: enabled}
}

// AddWarning records a plain, uncategorized warning.
func (wc *WarningCollector) AddWarning(level WarningLevel, message string) {
	wc.record(level, "", message)
}

// AddWarningf records a formatted, uncategorized warning.
func (wc *WarningCollector) AddWarningf(level WarningLevel, format string, args ...interface{}) {
	wc.record(level, "", fmt.Sprintf(format, args...))
}

// AddDowngrade records a save-mode downgrade warning tagged with the
// PDFErrorCode a caller can later check for via IsIncrementalDowngrade.
func (wc *WarningCollector) AddDowngrade(code PDFErrorCode, message string) {
	wc.record(WarningLevelWarning, code, message)
}

func (wc *WarningCollector) record(level WarningLevel, code PDFErrorCode, message string) {
	if !wc.enabled {
		return
	}
	wc.warnings = append(wc.warnings, &Warning{Level: level, Code: code, Message: message})
}

// Warnings returns every warning recorded so far.
func (wc *WarningCollector) Warnings() []*Warning {
	return wc.warnings
}

// Count returns the number of warnings recorded.
func (wc *WarningCollector) Count() int {
	return len(wc.warnings)
}

// HasWarnings reports whether any warnings have been recorded.
func (wc *WarningCollector) HasWarnings() bool {
	return len(wc.warnings) > 0
}
