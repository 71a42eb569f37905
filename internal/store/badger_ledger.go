package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	ledgerKeyPrefix   = "ledger/"
	evidenceKeyPrefix = "evidence/"
)

// BadgerLedgerStore is an embedded belief ledger backend on BadgerDB, for
// deployments without Postgres. Entries are stored under monotonically
// increasing per-entity sequence keys; nothing in this adapter can
// overwrite or delete an existing entry, keeping the append-only contract.
type BadgerLedgerStore struct {
	db *badger.DB

	mu   sync.Mutex
	next map[uuid.UUID]uint64
}

// OpenBadgerLedger opens (or creates) a ledger at dir. An empty dir opens
// an in-memory database, used by tests.
func OpenBadgerLedger(dir string) (*BadgerLedgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts = opts.WithSyncWrites(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger ledger: %w", err)
	}
	return &BadgerLedgerStore{db: db, next: make(map[uuid.UUID]uint64)}, nil
}

func (s *BadgerLedgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerLedgerStore) Append(ctx context.Context, e *domain.LedgerEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.nextSeqLocked(e.EntityID)
	if err != nil {
		return err
	}

	key := entryKey(e.EntityID, seq)
	evKey := []byte(evidenceKeyPrefix + e.HypothesisID.String() + "/" + e.EvidenceRef)

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrAppendOnly
		}
		if err := txn.Set(key, payload); err != nil {
			return err
		}
		return txn.Set(evKey, nil)
	})
	if err != nil {
		return err
	}

	s.next[e.EntityID] = seq + 1
	return nil
}

func (s *BadgerLedgerStore) GetChain(ctx context.Context, entityID uuid.UUID) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	prefix := []byte(ledgerKeyPrefix + entityID.String() + "/")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 64})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e domain.LedgerEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

func (s *BadgerLedgerStore) LastEntry(ctx context.Context, entityID uuid.UUID) (*domain.LedgerEntry, error) {
	chain, err := s.GetChain(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, ErrNotFound
	}
	return &chain[len(chain)-1], nil
}

func (s *BadgerLedgerStore) HasEvidenceRef(ctx context.Context, hypothesisID uuid.UUID, ref string) (bool, error) {
	key := []byte(evidenceKeyPrefix + hypothesisID.String() + "/" + ref)
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			exists = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	return exists, err
}

// nextSeqLocked resolves the next sequence number for an entity, replaying
// the key range once on first touch after open.
func (s *BadgerLedgerStore) nextSeqLocked(entityID uuid.UUID) (uint64, error) {
	if seq, ok := s.next[entityID]; ok {
		return seq, nil
	}

	var count uint64
	prefix := []byte(ledgerKeyPrefix + entityID.String() + "/")
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.next[entityID] = count
	return count, nil
}

// entryKey builds "ledger/<entity>/<seq>" with a big-endian sequence so
// lexicographic iteration is append order.
func entryKey(entityID uuid.UUID, seq uint64) []byte {
	key := make([]byte, 0, len(ledgerKeyPrefix)+36+1+8)
	key = append(key, ledgerKeyPrefix...)
	key = append(key, entityID.String()...)
	key = append(key, '/')
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(key, buf[:]...)
}
