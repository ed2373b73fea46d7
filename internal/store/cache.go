package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atlasgeo/placestore/internal/config"
	"github.com/atlasgeo/placestore/internal/model"
	"github.com/atlasgeo/placestore/internal/search"
	"github.com/atlasgeo/placestore/internal/storekey"
)

const (
	inventoryRecord = "actual_keys"
	levelsRecord    = "admin_levels"

	getConcurrency = 8
)

// CacheStore persists each place as one opaque record in an expiring KV
// store, plus two auxiliary records: the key inventory and the set of admin
// levels ever observed.
//
// The inventory and level records are read-modify-written under an internal
// mutex, so concurrent writers through one CacheStore cannot lose updates.
// Writers through separate CacheStore instances still race on a shared KV.
type CacheStore struct {
	kv       KV
	cfg      config.KeyConfig
	compiler *storekey.Compiler
	codec    codec

	mu       sync.Mutex
	observed map[int]bool
}

// NewCacheStore builds a cache-backed store over the given KV. A nil KV or
// invalid configuration fails fast.
func NewCacheStore(kv KV, cfg config.KeyConfig) (*CacheStore, error) {
	if kv == nil {
		return nil, eris.Wrap(model.ErrInvalidArgument, "cache store: nil kv backend")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &CacheStore{
		kv:       kv,
		cfg:      cfg,
		codec:    newCodec(cfg.Compress, cfg.CompressLevel),
		observed: make(map[int]bool),
	}
	s.compiler = storekey.New(cfg).WithObserver(s)
	return s, nil
}

// ObserveLevels implements storekey.LevelObserver. Levels are merged into
// the in-memory set here and persisted by the next Add or Update.
func (s *CacheStore) ObserveLevels(levels []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range levels {
		s.observed[l] = true
	}
}

// CompileKey implements Store.
func (s *CacheStore) CompileKey(place model.Place) string {
	return s.compiler.Compile(place, true, true, true)
}

// Config implements Store.
func (s *CacheStore) Config() config.KeyConfig { return s.cfg }

// Close implements Store.
func (s *CacheStore) Close() error { return s.kv.Close() }

// Add implements Store. The key is appended to the inventory even when
// already present; Update is the idempotent path.
func (s *CacheStore) Add(ctx context.Context, place model.Place) error {
	return s.put(ctx, place, false)
}

// Update implements Store.
func (s *CacheStore) Update(ctx context.Context, place model.Place) error {
	return s.put(ctx, place, true)
}

func (s *CacheStore) put(ctx context.Context, place model.Place, dedupe bool) error {
	key := s.CompileKey(place)

	payload, err := json.Marshal(place)
	if err != nil {
		return eris.Wrap(err, "cache store: marshal place")
	}
	encoded, err := s.codec.Encode(payload)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, key, encoded, s.cfg.TTL); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.loadInventory(ctx)
	if err != nil {
		return err
	}
	if !dedupe || !contains(keys, key) {
		keys = append(keys, key)
		if err := s.saveRecord(ctx, inventoryRecord, keys); err != nil {
			return err
		}
	}
	return s.saveLevelsLocked(ctx)
}

// Get implements Store.
func (s *CacheStore) Get(ctx context.Context, phrase string, page, maxResults int) (map[string]model.Place, error) {
	maxResults = clamp(maxResults, s.cfg.MaxResults)

	s.mu.Lock()
	keys, err := s.loadInventory(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ranked := search.Rank(keys, s.cfg.JoinedPrefix()+s.cfg.SectionGlue, phrase)
	hits := search.Paginate(ranked, page, maxResults)

	var mu sync.Mutex
	found := make(map[string]model.Place, len(hits))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(getConcurrency)
	for _, hit := range hits {
		hit := hit
		eg.Go(func() error {
			place, ok, loadErr := s.load(gCtx, hit.Key)
			if loadErr != nil {
				return loadErr
			}
			if !ok {
				return nil
			}
			mu.Lock()
			found[hit.Key] = place
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

// AllPlaces implements Store.
func (s *CacheStore) AllPlaces(ctx context.Context, offset, limit int) ([]model.Place, error) {
	if offset < 0 {
		offset = 0
	}
	limit = clamp(limit, s.cfg.PageLimit)

	s.mu.Lock()
	keys, err := s.loadInventory(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if offset >= len(keys) {
		return nil, nil
	}
	end := offset + limit
	if end > len(keys) {
		end = len(keys)
	}

	places := make([]model.Place, 0, end-offset)
	for _, key := range keys[offset:end] {
		place, ok, err := s.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			places = append(places, place)
		}
	}
	return places, nil
}

// Delete implements Store. The record is expired immediately; the admin
// level registry is intentionally left untouched, it is a history of every
// level ever stored.
func (s *CacheStore) Delete(ctx context.Context, place model.Place) error {
	key := s.CompileKey(place)
	if err := s.kv.Set(ctx, key, nil, 0); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.loadInventory(ctx)
	if err != nil {
		return err
	}
	kept := keys[:0]
	for _, k := range keys {
		if k != key {
			kept = append(kept, k)
		}
	}
	return s.saveRecord(ctx, inventoryRecord, kept)
}

// AdminLevels implements Store.
func (s *CacheStore) AdminLevels(ctx context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[int]bool, len(s.observed))
	for l := range s.observed {
		merged[l] = true
	}
	var persisted []int
	if err := s.loadRecord(ctx, levelsRecord, &persisted); err != nil {
		return nil, err
	}
	for _, l := range persisted {
		merged[l] = true
	}

	levels := make([]int, 0, len(merged))
	for l := range merged {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return levels, nil
}

// load reads and decodes one place record. Absent, expired or malformed
// records report ok=false; only backend I/O failures surface as errors.
func (s *CacheStore) load(ctx context.Context, key string) (model.Place, bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return model.Place{}, false, err
	}
	if !ok {
		return model.Place{}, false, nil
	}
	decoded, err := s.codec.Decode(raw)
	if err != nil {
		zap.L().Debug("cache store: undecodable record", zap.String("key", key), zap.Error(err))
		return model.Place{}, false, nil
	}
	var place model.Place
	if err := json.Unmarshal(decoded, &place); err != nil {
		zap.L().Debug("cache store: malformed record", zap.String("key", key), zap.Error(err))
		return model.Place{}, false, nil
	}
	return place, true, nil
}

// loadInventory must run under mu.
func (s *CacheStore) loadInventory(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.loadRecord(ctx, inventoryRecord, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *CacheStore) loadRecord(ctx context.Context, name string, dest any) error {
	raw, ok, err := s.kv.Get(ctx, s.metaKey(name))
	if err != nil || !ok {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A corrupt metadata record is treated as absent and rebuilt by
		// subsequent writes.
		zap.L().Warn("cache store: corrupt metadata record", zap.String("record", name), zap.Error(err))
	}
	return nil
}

func (s *CacheStore) saveRecord(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return eris.Wrapf(err, "cache store: marshal %s", name)
	}
	return s.kv.Set(ctx, s.metaKey(name), raw, s.cfg.TTL)
}

// saveLevelsLocked persists the observed level set. Must run under mu.
func (s *CacheStore) saveLevelsLocked(ctx context.Context) error {
	var persisted []int
	if err := s.loadRecord(ctx, levelsRecord, &persisted); err != nil {
		return err
	}
	for _, l := range persisted {
		s.observed[l] = true
	}
	levels := make([]int, 0, len(s.observed))
	for l := range s.observed {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return s.saveRecord(ctx, levelsRecord, levels)
}

func (s *CacheStore) metaKey(name string) string {
	return s.cfg.JoinedPrefix() + s.cfg.SectionGlue + name
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
