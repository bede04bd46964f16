package memory

import (
	"context"
	"sync"
	"time"

	"github.com/code-payments/code-escrow/pkg/solana/runtime/accountdb"
)

type store struct {
	mu      sync.Mutex
	last    uint64
	records map[string]*accountdb.Record
}

// New returns a new in memory accountdb.Store
func New() accountdb.Store {
	return &store{
		records: make(map[string]*accountdb.Record),
	}
}

// Get implements accountdb.Store.Get
func (s *store) Get(_ context.Context, address string) (*accountdb.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.records[address]
	if !ok {
		return nil, accountdb.ErrAccountNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// Save implements accountdb.Store.Save
func (s *store) Save(_ context.Context, updates []*accountdb.Record, deletes []string) error {
	for _, record := range updates {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, record := range updates {
		if item, ok := s.records[record.Address]; ok {
			record.Id = item.Id
		} else {
			s.last++
			record.Id = s.last
		}
		record.LastUpdatedAt = now

		cloned := record.Clone()
		s.records[record.Address] = &cloned
	}

	for _, address := range deletes {
		delete(s.records, address)
	}

	return nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = 0
	s.records = make(map[string]*accountdb.Record)
}
