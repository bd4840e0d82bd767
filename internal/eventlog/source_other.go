//go:build !windows

package eventlog

type unsupportedSource struct{}

// SystemSource returns a source that reports ErrUnsupported.
func SystemSource() Source { return unsupportedSource{} }

func (unsupportedSource) Query(string, string) (ResultSet, error) { return nil, ErrUnsupported }
