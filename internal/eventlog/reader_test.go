package eventlog

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arccheck/arccheck/internal/report"
)

type fakeEvent struct {
	xml      string
	err      error
	panicMsg string
	rendered bool
	closed   bool
}

func (e *fakeEvent) RenderXML() (string, error) {
	e.rendered = true
	if e.panicMsg != "" {
		panic(e.panicMsg)
	}
	return e.xml, e.err
}

func (e *fakeEvent) Close() error {
	e.closed = true
	return nil
}

type fakeResultSet struct {
	events  []*fakeEvent
	nextErr error
	max     int
	closed  bool
}

func (rs *fakeResultSet) Next(max int) ([]Event, error) {
	rs.max = max
	if rs.nextErr != nil {
		return nil, rs.nextErr
	}
	n := min(max, len(rs.events))
	out := make([]Event, 0, n)
	for _, e := range rs.events[:n] {
		out = append(out, e)
	}
	return out, nil
}

func (rs *fakeResultSet) Close() error {
	rs.closed = true
	return nil
}

type fakeSource struct {
	results *fakeResultSet
	err     error
	channel string
	query   string
}

func (s *fakeSource) Query(channel, query string) (ResultSet, error) {
	s.channel, s.query = channel, query
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func levelXML(level string) string {
	return "<Event><System><Provider Name='Microsoft-AzureArc-Agent'/><Level>" + level + "</Level></System></Event>"
}

func newReader(src Source) *Reader {
	return &Reader{Source: src, Channel: DefaultChannel, Provider: DefaultProvider}
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t,
		"*[System[Provider[@Name='Microsoft-AzureArc-Agent'] and (Level=1 or Level=2 or Level=3)]]",
		BuildQuery(DefaultProvider, LevelCritical, LevelError, LevelWarning))
	assert.Equal(t, "*[System[Provider[@Name='p']]]", BuildQuery("p"))
}

func TestQueryRecentEventsLevels(t *testing.T) {
	tests := []struct {
		level    string
		alert    string
		severity report.Severity
	}{
		{"1", "critical error detected", report.SeverityError},
		{"2", "error detected", report.SeverityError},
		{"3", "warning detected", report.SeverityWarning},
	}

	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			src := &fakeSource{results: &fakeResultSet{events: []*fakeEvent{{xml: levelXML(tt.level)}}}}

			row, ok := newReader(src).QueryRecentEvents()

			require.True(t, ok)
			assert.Equal(t, report.ComponentStatus{
				Component: "Event Log",
				Status:    "recent event",
				Details:   "recent events in the journal",
				Alert:     tt.alert,
				Severity:  tt.severity,
			}, row)
		})
	}
}

func TestQueryRecentEventsUsesChannelAndQuery(t *testing.T) {
	src := &fakeSource{results: &fakeResultSet{}}

	_, ok := newReader(src).QueryRecentEvents()

	assert.False(t, ok)
	assert.Equal(t, DefaultChannel, src.channel)
	assert.Equal(t, BuildQuery(DefaultProvider, 1, 2, 3), src.query)
	assert.Equal(t, 10, src.results.max)
	assert.True(t, src.results.closed)
}

func TestQueryRecentEventsQueryFailure(t *testing.T) {
	_, ok := newReader(&fakeSource{err: ErrUnsupported}).QueryRecentEvents()

	assert.False(t, ok)
}

func TestQueryRecentEventsNextFailure(t *testing.T) {
	rs := &fakeResultSet{nextErr: errors.New("channel not found")}

	_, ok := newReader(&fakeSource{results: rs}).QueryRecentEvents()

	assert.False(t, ok)
	assert.True(t, rs.closed)
}

func TestQueryRecentEventsRenderFailureFallsThrough(t *testing.T) {
	first := &fakeEvent{err: errors.New("insufficient buffer")}
	second := &fakeEvent{panicMsg: "bad handle"}
	third := &fakeEvent{xml: levelXML("2")}
	src := &fakeSource{results: &fakeResultSet{events: []*fakeEvent{first, second, third}}}

	row, ok := newReader(src).QueryRecentEvents()

	require.True(t, ok)
	assert.Equal(t, "error detected", row.Alert)
	for _, e := range []*fakeEvent{first, second, third} {
		assert.True(t, e.closed)
	}
}

func TestQueryRecentEventsInspectsAtMostThree(t *testing.T) {
	events := []*fakeEvent{
		{xml: "<Event/>"},
		{xml: "<Event/>"},
		{xml: "<Event/>"},
		{xml: levelXML("1")},
		{xml: levelXML("1")},
	}
	src := &fakeSource{results: &fakeResultSet{events: events}}

	_, ok := newReader(src).QueryRecentEvents()

	assert.False(t, ok)
	assert.False(t, events[3].rendered, "fourth candidate must not be inspected")
	for i, e := range events {
		assert.True(t, e.closed, "event %d not closed", i)
	}
}

func TestQueryRecentEventsStopsAtFirstMatch(t *testing.T) {
	events := []*fakeEvent{
		{xml: levelXML("3")},
		{xml: levelXML("1")},
	}
	src := &fakeSource{results: &fakeResultSet{events: events}}

	row, ok := newReader(src).QueryRecentEvents()

	require.True(t, ok)
	assert.Equal(t, "warning detected", row.Alert)
	assert.False(t, events[1].rendered)
	assert.True(t, events[1].closed)
}

func TestSystemSourceOffWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("event log is available on windows")
	}

	_, ok := New(nil).QueryRecentEvents()

	assert.False(t, ok)
}
