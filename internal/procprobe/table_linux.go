//go:build linux

package procprobe

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/procfs"
)

// commLen is the kernel's comm limit; longer names are cut to this length.
const commLen = 15

type procfsTable struct {
	fs procfs.FS
	ok bool
}

// SystemTable returns the /proc-backed process table.
func SystemTable() Table {
	fs, err := procfs.NewDefaultFS()
	return procfsTable{fs: fs, ok: err == nil}
}

func (t procfsTable) Processes() ([]Process, error) {
	if !t.ok {
		return nil, fmt.Errorf("opening %s: %w", procfs.DefaultMountPoint, ErrUnsupported)
	}
	all, err := t.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	procs := make([]Process, 0, len(all))
	for _, p := range all {
		name, err := p.Comm()
		if err != nil {
			// exited between listing and reading
			continue
		}
		if len(name) >= commLen {
			if exe, err := p.Executable(); err == nil && exe != "" {
				name = filepath.Base(exe)
			}
		}
		procs = append(procs, Process{PID: uint32(p.PID), Name: name}) //nolint:gosec // G115: PIDs are positive
	}
	return procs, nil
}

func (t procfsTable) ExecutablePath(pid uint32) (string, error) {
	if !t.ok {
		return "", ErrUnsupported
	}
	p, err := t.fs.Proc(int(pid))
	if err != nil {
		return "", err
	}
	return p.Executable()
}
