// Package notify is the modal and notification layer contract the routers
// speak to. Notices are transient and dismissible; modals replace the page
// content for terminal outcomes like not-found or an invalid link.
package notify

import "log/slog"

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// ModalKind identifies which terminal modal to show.
type ModalKind string

const (
	ModalNotFound    ModalKind = "not_found"
	ModalInvalidLink ModalKind = "invalid_link"
	ModalLocked      ModalKind = "locked"
)

// Notifier presents notices and modals to the user. Implementations are
// fire-and-forget: the routers invoke them and never wait for a result.
type Notifier interface {
	// Notice shows a dismissible notice.
	Notice(level Level, message string)

	// Modal shows a terminal modal in place of the page.
	Modal(kind ModalKind, message string)
}

// LogNotifier is a slog-backed Notifier for headless use and tests.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notice implements Notifier.
func (n LogNotifier) Notice(level Level, message string) {
	n.logger().Info("notice", "level", string(level), "message", message)
}

// Modal implements Notifier.
func (n LogNotifier) Modal(kind ModalKind, message string) {
	n.logger().Info("modal", "kind", string(kind), "message", message)
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}
