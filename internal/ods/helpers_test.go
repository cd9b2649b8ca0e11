package ods

import (
	"sync"

	"github.com/roach88/odskit/internal/standard"
)

var stdCache struct {
	once sync.Once
	std  *standard.Standard
	err  error
}

// defaultStdOnce loads the latest standard once for the whole package's
// tests; CUE compilation is not free.
func defaultStdOnce() (*standard.Standard, error) {
	stdCache.once.Do(func() {
		stdCache.std, stdCache.err = standard.Load(standard.Latest)
	})
	return stdCache.std, stdCache.err
}
