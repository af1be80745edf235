package store_test

import (
	"testing"

	"github.com/effective-security/tripcrew/store"
)

func Test_MemoryStore(t *testing.T) {
	testRunStore(t, store.NewMemoryStore())
}
