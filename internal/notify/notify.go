// Package notify implements Notifier: a best-effort, fire-and-forget
// text sink for fills, rejections, and run-level events.
package notify

import "github.com/sirupsen/logrus"

// Notifier is a best-effort, fire-and-forget text sink. Implementations
// must not block the caller on delivery failure.
type Notifier interface {
	Send(text string) error
}

// Noop discards every message — the backtest path's default Notifier.
type Noop struct{}

// Send implements Notifier by doing nothing.
func (Noop) Send(string) error { return nil }

// Logging writes every message to a logger instead of delivering it
// anywhere — useful for a dry-run live mode.
type Logging struct {
	logger *logrus.Entry
}

// NewLogging returns a Logging notifier using the given logger.
func NewLogging(logger *logrus.Entry) *Logging {
	return &Logging{logger: logger}
}

// Send logs text at info level and never returns an error.
func (l *Logging) Send(text string) error {
	l.logger.Info(text)
	return nil
}
