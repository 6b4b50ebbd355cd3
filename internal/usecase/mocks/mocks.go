// Package mocks provides hand-written test doubles for the usecase
// interfaces. The repository mocks implement real compare-and-set
// semantics over an in-memory map, and the transaction mock keeps an
// undo journal, so coordinator tests exercise the same conflict and
// rollback behavior the Postgres adapters provide.
package mocks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iho/bankmatch/internal/domain"
	"github.com/iho/bankmatch/internal/usecase"
)

// MockTx is an in-memory transaction carrying an undo journal.
type MockTx struct {
	mu        sync.Mutex
	undo      []func()
	committed bool
}

// Commit discards the undo journal.
func (t *MockTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	t.undo = nil
	return nil
}

// Rollback reverts every registered mutation, newest first. Rolling
// back after commit is a no-op, matching pgx semantics.
func (t *MockTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.committed {
		return nil
	}

	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil

	return nil
}

func (t *MockTx) addUndo(f func()) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.committed {
		t.undo = append(t.undo, f)
	}
}

func asMockTx(tx usecase.Transaction) *MockTx {
	if m, ok := tx.(*MockTx); ok {
		return m
	}
	return nil
}

// MockTransactionManager hands out MockTx transactions.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTx{}, nil
}

// MockBankTransactionRepository is an in-memory BankTransactionRepository.
type MockBankTransactionRepository struct {
	mu   sync.Mutex
	txns map[string]*domain.BankTransaction

	GetByIDFunc  func(ctx context.Context, id string) (*domain.BankTransaction, error)
	ListFunc     func(ctx context.Context, filter domain.ListFilter) ([]*domain.BankTransaction, error)
	SetMatchFunc func(ctx context.Context, tx usecase.Transaction, id, ledgerTxID string, matchedAt time.Time) error
}

func NewMockBankTransactionRepository() *MockBankTransactionRepository {
	return &MockBankTransactionRepository{txns: make(map[string]*domain.BankTransaction)}
}

// Seed inserts a record directly, bypassing overrides.
func (m *MockBankTransactionRepository) Seed(txn *domain.BankTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *txn
	m.txns[txn.ID] = &cp
}

// Snapshot returns copies of every stored record, sorted by id.
func (m *MockBankTransactionRepository) Snapshot() []*domain.BankTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.BankTransaction, 0, len(m.txns))
	for _, t := range m.txns {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func (m *MockBankTransactionRepository) Create(ctx context.Context, txn *domain.BankTransaction) error {
	m.Seed(txn)
	return nil
}

func (m *MockBankTransactionRepository) CreateTx(ctx context.Context, tx usecase.Transaction, txn *domain.BankTransaction) error {
	m.Seed(txn)

	id := txn.ID
	asMockTx(tx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.txns, id)
	})

	return nil
}

func (m *MockBankTransactionRepository) GetByID(ctx context.Context, id string) (*domain.BankTransaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txns[id]
	if !ok {
		return nil, domain.ErrBankTransactionNotFound
	}
	cp := *t

	return &cp, nil
}

func (m *MockBankTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.BankTransaction, error) {
	return m.GetByID(ctx, id)
}

func (m *MockBankTransactionRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.BankTransaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}

	all := m.Snapshot()

	out := make([]*domain.BankTransaction, 0, len(all))
	for _, t := range all {
		if !matchStateAccepts(filter.MatchState, t.Matched) {
			continue
		}
		if !filter.Bucket.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}

	return paginate(out, filter.Limit, filter.Offset), nil
}

func (m *MockBankTransactionRepository) Update(ctx context.Context, txn *domain.BankTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txns[txn.ID]; !ok {
		return domain.ErrBankTransactionNotFound
	}
	cp := *txn
	m.txns[txn.ID] = &cp

	return nil
}

func (m *MockBankTransactionRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txns[id]; !ok {
		return domain.ErrBankTransactionNotFound
	}
	delete(m.txns, id)

	return nil
}

func (m *MockBankTransactionRepository) SetMatch(ctx context.Context, tx usecase.Transaction, id, ledgerTxID string, matchedAt time.Time) error {
	if m.SetMatchFunc != nil {
		return m.SetMatchFunc(ctx, tx, id, ledgerTxID, matchedAt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txns[id]
	if !ok || t.Matched {
		return domain.ErrConflict
	}

	prev := *t
	t.Matched = true
	t.MatchedLedgerTxID = &ledgerTxID
	t.MatchedAt = &matchedAt

	asMockTx(tx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		restored := prev
		m.txns[id] = &restored
	})

	return nil
}

func (m *MockBankTransactionRepository) ClearMatch(ctx context.Context, tx usecase.Transaction, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txns[id]
	if !ok || !t.Matched {
		return domain.ErrConflict
	}

	prev := *t
	t.Matched = false
	t.MatchedLedgerTxID = nil
	t.MatchedAt = nil

	asMockTx(tx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		restored := prev
		m.txns[id] = &restored
	})

	return nil
}

// MockLedgerTransactionRepository is an in-memory LedgerTransactionRepository.
type MockLedgerTransactionRepository struct {
	mu   sync.Mutex
	txns map[string]*domain.LedgerTransaction

	GetByIDFunc  func(ctx context.Context, id string) (*domain.LedgerTransaction, error)
	ListFunc     func(ctx context.Context, filter domain.ListFilter) ([]*domain.LedgerTransaction, error)
	SetMatchFunc func(ctx context.Context, tx usecase.Transaction, id, bankTxID string, matchedAt time.Time) error
}

func NewMockLedgerTransactionRepository() *MockLedgerTransactionRepository {
	return &MockLedgerTransactionRepository{txns: make(map[string]*domain.LedgerTransaction)}
}

func (m *MockLedgerTransactionRepository) Seed(txn *domain.LedgerTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *txn
	m.txns[txn.ID] = &cp
}

func (m *MockLedgerTransactionRepository) Snapshot() []*domain.LedgerTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.LedgerTransaction, 0, len(m.txns))
	for _, t := range m.txns {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func (m *MockLedgerTransactionRepository) Create(ctx context.Context, txn *domain.LedgerTransaction) error {
	m.Seed(txn)
	return nil
}

func (m *MockLedgerTransactionRepository) GetByID(ctx context.Context, id string) (*domain.LedgerTransaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txns[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *t

	return &cp, nil
}

func (m *MockLedgerTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.LedgerTransaction, error) {
	return m.GetByID(ctx, id)
}

func (m *MockLedgerTransactionRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.LedgerTransaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}

	all := m.Snapshot()

	out := make([]*domain.LedgerTransaction, 0, len(all))
	for _, t := range all {
		if !matchStateAccepts(filter.MatchState, t.Matched) {
			continue
		}
		if !filter.Bucket.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}

	return paginate(out, filter.Limit, filter.Offset), nil
}

func (m *MockLedgerTransactionRepository) Update(ctx context.Context, txn *domain.LedgerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txns[txn.ID]; !ok {
		return domain.ErrTransactionNotFound
	}
	cp := *txn
	m.txns[txn.ID] = &cp

	return nil
}

func (m *MockLedgerTransactionRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txns[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(m.txns, id)

	return nil
}

func (m *MockLedgerTransactionRepository) SetMatch(ctx context.Context, tx usecase.Transaction, id, bankTxID string, matchedAt time.Time) error {
	if m.SetMatchFunc != nil {
		return m.SetMatchFunc(ctx, tx, id, bankTxID, matchedAt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txns[id]
	if !ok || t.Matched {
		return domain.ErrConflict
	}

	prev := *t
	t.Matched = true
	t.MatchedBankTxID = &bankTxID
	t.MatchedAt = &matchedAt

	asMockTx(tx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		restored := prev
		m.txns[id] = &restored
	})

	return nil
}

func (m *MockLedgerTransactionRepository) ClearMatch(ctx context.Context, tx usecase.Transaction, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txns[id]
	if !ok || !t.Matched {
		return domain.ErrConflict
	}

	prev := *t
	t.Matched = false
	t.MatchedBankTxID = nil
	t.MatchedAt = nil

	asMockTx(tx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		restored := prev
		m.txns[id] = &restored
	})

	return nil
}

// MockOutboxRepository records events in memory.
type MockOutboxRepository struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	idx := len(m.events) - 1
	m.mu.Unlock()

	asMockTx(tx).addUndo(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.events = append(m.events[:idx], m.events[idx+1:]...)
	})

	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.OutboxEvent, 0, limit)
	for _, e := range m.events {
		if e.Published {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}

	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
			return nil
		}
	}

	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	for _, e := range m.events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept

	return nil
}

// Events returns a copy of the recorded events.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.OutboxEvent, len(m.events))
	copy(out, m.events)

	return out
}

// MockIDGenerator hands out sequential ids.
type MockIDGenerator struct {
	mu   sync.Mutex
	next int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++

	return "id-" + itoa(m.next)
}

// ErrCacheMiss is returned by MockCache.Get for absent keys.
var ErrCacheMiss = errors.New("cache miss")

// MockCache is an in-memory Cache.
type MockCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (c *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	return v, nil
}

func (c *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *MockCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *MockCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}

	return nil
}

// Len reports the number of cached entries.
func (c *MockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func matchStateAccepts(state domain.MatchState, matched bool) bool {
	switch state {
	case domain.MatchStateMatched:
		return matched
	case domain.MatchStateUnmatched:
		return !matched
	default:
		return true
	}
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	return string(buf[i:])
}
