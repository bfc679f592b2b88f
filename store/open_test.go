package store

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/stock_backend/config"
	"bitbucket.org/mmdatafocus/stock_backend/store/memory"
)

func TestOpenMemory(t *testing.T) {
	for _, driver := range []string{"", config.StoreDriverMemory} {
		s, err := Open(context.Background(), driver)
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if _, ok := s.(*memory.Store); !ok {
			t.Fatalf("Open(%q) returned %T", driver, s)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "postgres"); err == nil {
		t.Fatalf("expected an error for an unknown driver")
	}
}
