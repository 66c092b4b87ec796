package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/a2a"
)

var ErrAgentExists = errors.New("agent already exists")

const agentPrefix = "agents:"

// AgentRecord is an imported remote agent: the card URL it was imported from
// and the card fetched at import time.
type AgentRecord struct {
	URL       string        `json:"url"`
	Card      a2a.AgentCard `json:"card"`
	Timestamp time.Time     `json:"timestamp"`
}

// AgentStore persists imported agent records keyed by card URL.
type AgentStore interface {
	SaveAgent(rec AgentRecord) error
	ListAgents() ([]AgentRecord, error)
	GetAgent(url string) (AgentRecord, error)
	DeleteAgent(url string) error
	Close() error
}

func agentKey(url string) string {
	return agentPrefix + base64.StdEncoding.EncodeToString([]byte(url))
}

func newestFirst(recs []AgentRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.After(recs[j].Timestamp)
	})
}

// BadgerAgentStore keeps agent records in a DBStorage.
type BadgerAgentStore struct {
	db *DBStorage
	mu sync.Mutex // serialises check-then-put in SaveAgent
}

func NewBadgerAgentStore(db *DBStorage) *BadgerAgentStore {
	return &BadgerAgentStore{db: db}
}

func (s *BadgerAgentStore) SaveAgent(rec AgentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := agentKey(rec.URL)
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, rec.URL)
	}
	return s.db.PutObject(key, rec)
}

func (s *BadgerAgentStore) ListAgents() ([]AgentRecord, error) {
	raw, err := s.db.GetByPrefix(agentPrefix)
	if err != nil {
		return nil, err
	}
	recs := make([]AgentRecord, 0, len(raw))
	for key := range raw {
		var rec AgentRecord
		if err := s.db.GetObject(key, &rec); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	newestFirst(recs)
	return recs, nil
}

func (s *BadgerAgentStore) GetAgent(url string) (AgentRecord, error) {
	var rec AgentRecord
	if err := s.db.GetObject(agentKey(url), &rec); err != nil {
		return AgentRecord{}, err
	}
	return rec, nil
}

func (s *BadgerAgentStore) DeleteAgent(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := agentKey(url)
	exists, err := s.db.Has(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return s.db.Delete(key)
}

func (s *BadgerAgentStore) Close() error {
	return s.db.Close()
}

// MemoryStore is the fallback used when no database can be opened.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]AgentRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]AgentRecord)}
}

func (m *MemoryStore) SaveAgent(rec AgentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.URL]; ok {
		return fmt.Errorf("%w: %s", ErrAgentExists, rec.URL)
	}
	m.recs[rec.URL] = rec
	return nil
}

func (m *MemoryStore) ListAgents() ([]AgentRecord, error) {
	m.mu.RLock()
	recs := make([]AgentRecord, 0, len(m.recs))
	for _, rec := range m.recs {
		recs = append(recs, rec)
	}
	m.mu.RUnlock()
	newestFirst(recs)
	return recs, nil
}

func (m *MemoryStore) GetAgent(url string) (AgentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[url]
	if !ok {
		return AgentRecord{}, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return rec, nil
}

func (m *MemoryStore) DeleteAgent(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[url]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	delete(m.recs, url)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// OpenAgentStore opens a badger-backed store under dataDir. An empty dataDir
// or a failed open yields an in-memory store instead.
func OpenAgentStore(dataDir string, logger *zap.Logger) AgentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dataDir == "" {
		logger.Info("No data dir configured, keeping agents in memory")
		return NewMemoryStore()
	}
	db, err := Open(DefaultConfig(dataDir), logger)
	if err != nil {
		logger.Warn("Falling back to in-memory agent store", zap.String("dir", dataDir), zap.Error(err))
		return NewMemoryStore()
	}
	return NewBadgerAgentStore(db)
}
