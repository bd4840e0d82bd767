//go:build windows

package eventlog

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	evtQueryChannelPath      = 0x1
	evtQueryReverseDirection = 0x200
	evtRenderEventXML        = 1
	infinite                 = 0xFFFFFFFF
)

var (
	modwevtapi = windows.NewLazySystemDLL("wevtapi.dll")

	procEvtQuery  = modwevtapi.NewProc("EvtQuery")
	procEvtNext   = modwevtapi.NewProc("EvtNext")
	procEvtRender = modwevtapi.NewProc("EvtRender")
	procEvtClose  = modwevtapi.NewProc("EvtClose")
)

type wevtSource struct{}

// SystemSource returns the Windows Event Log source.
func SystemSource() Source { return wevtSource{} }

func (wevtSource) Query(channel, query string) (ResultSet, error) {
	if err := modwevtapi.Load(); err != nil {
		return nil, fmt.Errorf("loading wevtapi.dll: %w", errors.Join(ErrUnsupported, err))
	}

	path, err := windows.UTF16PtrFromString(channel)
	if err != nil {
		return nil, err
	}
	q, err := windows.UTF16PtrFromString(query)
	if err != nil {
		return nil, err
	}

	h, _, callErr := procEvtQuery.Call(
		0,
		uintptr(unsafe.Pointer(path)),
		uintptr(unsafe.Pointer(q)),
		evtQueryChannelPath|evtQueryReverseDirection,
	)
	if h == 0 {
		return nil, fmt.Errorf("EvtQuery %s: %w", channel, callErr)
	}
	return &wevtResultSet{handle: h}, nil
}

type wevtResultSet struct {
	handle uintptr
}

func (rs *wevtResultSet) Next(max int) ([]Event, error) {
	if max <= 0 {
		return nil, nil
	}
	handles := make([]uintptr, max)
	var returned uint32

	ok, _, callErr := procEvtNext.Call(
		rs.handle,
		uintptr(max),
		uintptr(unsafe.Pointer(&handles[0])),
		infinite,
		0,
		uintptr(unsafe.Pointer(&returned)),
	)
	if ok == 0 {
		if errors.Is(callErr, windows.ERROR_NO_MORE_ITEMS) {
			return nil, nil
		}
		return nil, fmt.Errorf("EvtNext: %w", callErr)
	}

	events := make([]Event, 0, returned)
	for _, h := range handles[:returned] {
		events = append(events, &wevtEvent{handle: h})
	}
	return events, nil
}

func (rs *wevtResultSet) Close() error { return evtClose(&rs.handle) }

type wevtEvent struct {
	handle uintptr
}

func (e *wevtEvent) RenderXML() (string, error) {
	var used, props uint32
	ok, _, callErr := procEvtRender.Call(
		0, e.handle, evtRenderEventXML,
		0, 0,
		uintptr(unsafe.Pointer(&used)),
		uintptr(unsafe.Pointer(&props)),
	)
	if ok != 0 {
		return "", nil
	}
	if !errors.Is(callErr, windows.ERROR_INSUFFICIENT_BUFFER) {
		return "", fmt.Errorf("EvtRender: %w", callErr)
	}

	// used is a byte count of UTF-16 text.
	buf := make([]uint16, used/2+1)
	ok, _, callErr = procEvtRender.Call(
		0, e.handle, evtRenderEventXML,
		uintptr(len(buf)*2),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&used)),
		uintptr(unsafe.Pointer(&props)),
	)
	if ok == 0 {
		return "", fmt.Errorf("EvtRender: %w", callErr)
	}
	return windows.UTF16ToString(buf), nil
}

func (e *wevtEvent) Close() error { return evtClose(&e.handle) }

func evtClose(handle *uintptr) error {
	if *handle == 0 {
		return nil
	}
	ok, _, callErr := procEvtClose.Call(*handle)
	*handle = 0
	if ok == 0 {
		return fmt.Errorf("EvtClose: %w", callErr)
	}
	return nil
}
