package memory_test

import (
	"testing"

	"github.com/aretw0/pergola/internal/adapters/memory"
	"github.com/aretw0/pergola/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunRestartStoreContract(t, store)
}
