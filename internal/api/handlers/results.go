package handlers

import (
	"sync"

	"github.com/google/uuid"

	"equity-backtest/internal/backtest"
)

// ResultStore keeps completed run results in memory, keyed by the id
// returned to the client.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*backtest.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]*backtest.Result)}
}

// Put stores a result and returns its id.
func (s *ResultStore) Put(res *backtest.Result) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.results[id] = res
	s.mu.Unlock()
	return id
}

func (s *ResultStore) Get(id string) (*backtest.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[id]
	return res, ok
}
