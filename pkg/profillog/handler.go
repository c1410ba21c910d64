package profillog

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Handler persists entries to one storage resource and reads them back
type Handler interface {
	// Persist stores a single entry
	Persist(entry Entry) error

	// RetrieveAll returns every decodable entry in storage order.
	// Malformed records are skipped; it never fails.
	RetrieveAll() []Entry
}

// Named is implemented by handlers that expose a short backend name
type Named interface {
	Name() string
}

// HandlerName returns the backend name of h, or "unknown"
func HandlerName(h Handler) string {
	if n, ok := h.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

type namedHandler struct {
	Handler
	name string
}

// WithName labels h with a configured name, used in place of the backend
// name in metrics and failure logs. Close is forwarded to h.
func WithName(h Handler, name string) Handler {
	if name == "" {
		return h
	}
	return &namedHandler{Handler: h, name: name}
}

func (n *namedHandler) Name() string { return n.name }

func (n *namedHandler) Close() error { return CloseHandler(n.Handler) }

// Unwrap returns the labelled handler
func (n *namedHandler) Unwrap() Handler { return n.Handler }

// CloseHandler releases the handler's resource if it holds one
func CloseHandler(h Handler) error {
	if c, ok := h.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func loggerOrDefault(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// skipRecord reports a record dropped during retrieval
func skipRecord(logger *logrus.Logger, handler, location string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"handler":  handler,
		"location": location,
	}).Warn("Skipping malformed log record")
}
