package loader

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	"github.com/yndnr/confkit-go/pkg/logger"
)

func newBufferLogger(t *testing.T) (logger.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return l, &buf
}

// countingLoader is a MapLoader whose backend counts load calls.
type countingLoader struct {
	*MapLoader
	calls atomic.Int32
	data  map[string]string
	err   error
}

func newCountingLoader(data map[string]string, opts ...Option) *countingLoader {
	c := &countingLoader{data: data}
	c.MapLoader = NewMapLoader("counting", c.loadData, append([]Option{WithLogger(logger.Nop())}, opts...)...)
	return c
}

func (c *countingLoader) loadData(context.Context) (bool, error) {
	c.calls.Add(1)
	if c.err != nil {
		return false, c.err
	}
	c.InitData(c.data)
	return true, nil
}

func nopLogger() logger.Logger { return logger.Nop() }
