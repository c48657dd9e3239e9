package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"school_reviews/internal/adapters/observability"
	"school_reviews/internal/domain"
)

type Collection string

const (
	Pending  Collection = "pending"
	Approved Collection = "approved"
)

// Storage keys, shared with the browser build of the site.
const (
	PendingKey  = "srs_pending_reviews"
	ApprovedKey = "srs_approved_reviews"
)

func (c Collection) key() string {
	if c == Approved {
		return ApprovedKey
	}
	return PendingKey
}

// Store keeps the pending and approved collections as two JSON arrays in a KV.
type Store struct{ kv domain.KV }

func NewStore(kv domain.KV) *Store { return &Store{kv: kv} }

// ListPending returns pending reviews in submission order.
func (s *Store) ListPending(ctx context.Context) ([]domain.Review, error) {
	rs, found, err := s.load(ctx, Pending)
	if err != nil {
		return nil, err
	}
	if !found {
		return []domain.Review{}, nil
	}
	return rs, nil
}

// ListApproved returns approved reviews, or the seed set when the approved
// collection has never been written.
func (s *Store) ListApproved(ctx context.Context) ([]domain.Review, error) {
	rs, found, err := s.load(ctx, Approved)
	if err != nil {
		return nil, err
	}
	if !found {
		return domain.SeedReviews(), nil
	}
	return rs, nil
}

// Save overwrites a collection. Failures are logged here and returned
// wrapped in domain.ErrStorage.
func (s *Store) Save(ctx context.Context, c Collection, records []domain.Review) error {
	if records == nil {
		records = []domain.Review{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		log.Error().Err(err).Str("collection", string(c)).Msg("marshal reviews failed")
		observability.ObserveStoreError(string(c), "marshal")
		return fmt.Errorf("save %s: %w: %w", c, domain.ErrStorage, err)
	}
	if err := s.kv.Set(ctx, c.key(), b); err != nil {
		log.Error().Err(err).Str("collection", string(c)).Int("bytes", len(b)).Msg("write reviews failed")
		observability.ObserveStoreError(string(c), "write")
		return fmt.Errorf("save %s: %w: %w", c, domain.ErrStorage, err)
	}
	observability.SetCollectionSize(string(c), len(records))
	return nil
}

// Clear removes both collections.
func (s *Store) Clear(ctx context.Context) error {
	for _, c := range []Collection{Pending, Approved} {
		if err := s.kv.Del(ctx, c.key()); err != nil {
			log.Error().Err(err).Str("collection", string(c)).Msg("delete reviews failed")
			observability.ObserveStoreError(string(c), "delete")
			return fmt.Errorf("clear %s: %w: %w", c, domain.ErrStorage, err)
		}
	}
	return nil
}

// load decodes a collection; found=false means the key was never written.
// A corrupt payload is logged and treated as absent.
func (s *Store) load(ctx context.Context, c Collection) ([]domain.Review, bool, error) {
	raw, found, err := s.kv.Get(ctx, c.key())
	if err != nil {
		log.Error().Err(err).Str("collection", string(c)).Msg("read reviews failed")
		observability.ObserveStoreError(string(c), "read")
		return nil, false, fmt.Errorf("load %s: %w: %w", c, domain.ErrStorage, err)
	}
	if !found {
		return nil, false, nil
	}
	var rs []domain.Review
	if err := json.Unmarshal(raw, &rs); err != nil {
		log.Error().Err(err).Str("collection", string(c)).Msg("corrupt reviews payload, ignoring")
		observability.ObserveStoreError(string(c), "decode")
		return nil, false, nil
	}
	if rs == nil {
		rs = []domain.Review{}
	}
	return rs, true, nil
}

type snapshot struct {
	raw   []byte
	found bool
}

func (s *Store) snapshot(ctx context.Context, c Collection) (snapshot, error) {
	raw, found, err := s.kv.Get(ctx, c.key())
	if err != nil {
		return snapshot{}, fmt.Errorf("snapshot %s: %w: %w", c, domain.ErrStorage, err)
	}
	return snapshot{raw: raw, found: found}, nil
}

// restore puts a collection back exactly as snapshot saw it.
func (s *Store) restore(ctx context.Context, c Collection, snap snapshot) error {
	if !snap.found {
		return s.kv.Del(ctx, c.key())
	}
	return s.kv.Set(ctx, c.key(), snap.raw)
}
