//go:build windows

package procprobe

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

type systemTable struct{}

// SystemTable returns the toolhelp-backed process table.
func SystemTable() Table { return systemTable{} }

func (systemTable) Processes() ([]Process, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("creating process snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot) //nolint:errcheck

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var procs []Process
	err = windows.Process32First(snapshot, &entry)
	for err == nil {
		procs = append(procs, Process{
			PID:  entry.ProcessID,
			Name: windows.UTF16ToString(entry.ExeFile[:]),
		})
		err = windows.Process32Next(snapshot, &entry)
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return procs, fmt.Errorf("walking process snapshot: %w", err)
	}
	return procs, nil
}

func (systemTable) ExecutablePath(pid uint32) (string, error) {
	// PROCESS_QUERY_LIMITED_INFORMATION is enough for the image name and works
	// for most service processes without elevation.
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", err
	}
	defer windows.CloseHandle(handle) //nolint:errcheck

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:size]), nil
}
