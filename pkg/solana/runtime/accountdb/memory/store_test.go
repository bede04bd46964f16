package memory

import (
	"testing"

	"github.com/code-payments/code-escrow/pkg/solana/runtime/accountdb/tests"
)

func TestAccountDbMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
