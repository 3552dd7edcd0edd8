package transport

import (
	"errors"
	"fmt"
)

// ErrDanglingSentinel indicates escaped data containing an unpaired
// sentinel byte, which no Escape output can produce.
var ErrDanglingSentinel = errors.New("dangling sentinel")

// Escaper doubles a reserved byte so data can cross a channel that assigns
// the byte its own meaning. Unlike the general codec it restores only what
// Escape produced: text containing ambiguous pre-doubled runs is the
// caller's problem.
type Escaper struct {
	Sentinel byte
}

// Escape doubles every occurrence of the sentinel.
func (e Escaper) Escape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		out = append(out, b)
		if b == e.Sentinel {
			out = append(out, b)
		}
	}
	return out
}

// Unescape collapses doubled sentinels back to single occurrences. An
// unpaired sentinel fails with ErrDanglingSentinel.
func (e Escaper) Unescape(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == e.Sentinel {
			if i+1 >= len(data) || data[i+1] != e.Sentinel {
				return nil, fmt.Errorf("%w at offset %d", ErrDanglingSentinel, i)
			}
			i++
		}
		out = append(out, b)
	}
	return out, nil
}
