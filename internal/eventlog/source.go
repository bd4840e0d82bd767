package eventlog

import "errors"

// ErrUnsupported is returned by Query on platforms without an event log.
var ErrUnsupported = errors.New("event log not supported on this platform")

// Source runs structured queries against the system event log.
type Source interface {
	Query(channel, query string) (ResultSet, error)
}

// ResultSet is an open query, newest events first.
type ResultSet interface {
	// Next returns up to max events. An exhausted result set returns no
	// events and no error.
	Next(max int) ([]Event, error)
	Close() error
}

// Event is one fetched record. Callers must Close it.
type Event interface {
	RenderXML() (string, error)
	Close() error
}
