//go:build !windows && !linux

package procprobe

type unsupportedTable struct{}

// SystemTable returns a table that reports ErrUnsupported.
func SystemTable() Table { return unsupportedTable{} }

func (unsupportedTable) Processes() ([]Process, error) { return nil, ErrUnsupported }

func (unsupportedTable) ExecutablePath(uint32) (string, error) { return "", ErrUnsupported }
