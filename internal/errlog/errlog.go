// Package errlog classifies failures, maps them to severities, and
// reports them through structured logs and an optional user-facing
// notifier. Reporting itself must never fail: context serialization
// degrades gracefully instead of propagating marshal errors.
package errlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Category buckets an error by origin.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryValidation Category = "validation"
	CategorySystem     Category = "system"
	CategoryDownload   Category = "download"
	CategoryUnknown    Category = "unknown"
)

// Severity orders user impact. It drives both the log level and how long
// a notification stays visible.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// Categorize assigns a category from keyword heuristics over the error
// message. Download keywords are checked before network ones so that
// "download fetch failed" lands in the download bucket.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "download", "yt-dlp", "media"):
		return CategoryDownload
	case containsAny(msg, "network", "fetch", "connection", "timeout", "dns"):
		return CategoryNetwork
	case containsAny(msg, "permission", "file", "directory", "disk", "path"):
		return CategorySystem
	case containsAny(msg, "invalid", "validation", "required", "empty"):
		return CategoryValidation
	}
	return CategoryUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// SeverityFor maps a category to its default severity.
func SeverityFor(c Category) Severity {
	switch c {
	case CategorySystem:
		return SeverityHigh
	case CategoryDownload, CategoryNetwork:
		return SeverityMedium
	case CategoryValidation:
		return SeverityLow
	}
	return SeverityMedium
}

// Retryable reports whether a category should offer a retry action to the
// user.
func Retryable(c Category) bool {
	return c == CategoryNetwork || c == CategoryDownload
}

// NotificationDuration is how long a notification for the severity stays
// visible; zero means it persists until dismissed.
func NotificationDuration(s Severity) time.Duration {
	switch s {
	case SeverityDebug, SeverityLow:
		return 3 * time.Second
	case SeverityMedium:
		return 6 * time.Second
	case SeverityHigh:
		return 12 * time.Second
	}
	return 0
}

// Notification is a user-visible error surface.
type Notification struct {
	Category Category
	Severity Severity
	Message  string
	Detail   string
	// Retry, when non-nil, is the action offered to the user.
	Retry func()
	// Duration zero keeps the notification pinned until dismissed.
	Duration time.Duration
}

// Notifier receives user-visible notifications. The rendering layer
// provides the implementation; NopNotifier serves headless runs.
type Notifier interface {
	Notify(n Notification)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(Notification) {}

// Reporter logs categorized errors and forwards them to a notifier.
type Reporter struct {
	logger   *slog.Logger
	notifier Notifier
}

// NewReporter builds a reporter; nil arguments fall back to the default
// logger and a nop notifier.
func NewReporter(logger *slog.Logger, notifier Notifier) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Reporter{logger: logger, notifier: notifier}
}

// Report logs err with structured context and raises a notification. The
// optional retry action is attached only for retryable categories.
func (r *Reporter) Report(msg string, err error, context map[string]any, retry func()) {
	cat := Categorize(err)
	sev := SeverityFor(cat)

	attrs := []any{
		"category", string(cat),
		"severity", sev.String(),
		"error", err,
	}
	if len(context) > 0 {
		attrs = append(attrs, "context", SafeSerialize(context))
	}

	switch {
	case sev >= SeverityHigh:
		r.logger.Error(msg, attrs...)
	case sev == SeverityMedium:
		r.logger.Warn(msg, attrs...)
	default:
		r.logger.Info(msg, attrs...)
	}

	n := Notification{
		Category: cat,
		Severity: sev,
		Message:  msg,
		Duration: NotificationDuration(sev),
	}
	if err != nil {
		n.Detail = err.Error()
	}
	if retry != nil && Retryable(cat) {
		n.Retry = retry
	}
	r.notifier.Notify(n)
}

// SafeSerialize renders v for logging without ever failing: structured
// JSON first, then a sanitized re-marshal of the stringified value, and
// finally plain string coercion.
func SafeSerialize(v any) string {
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	coerced := fmt.Sprintf("%+v", v)
	if b, err := json.Marshal(coerced); err == nil {
		return string(b)
	}
	return coerced
}
