package skill

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultCacheLimit bounds the runtime-instance cache.
const DefaultCacheLimit = 256

// DefaultCacheTTL is the tick age past which unused cached instances are
// swept.
const DefaultCacheTTL = int64(3600)

// Filter narrows a Query. Zero fields are ignored.
type Filter struct {
	IDs          []int
	NameContains string
	Type         Type
	EffectKind   EffectKind
	TargetKind   TargetKind
	MinLevel     int
	MaxLevel     int
}

type cacheEntry struct {
	instance *Skill
	lastUsed int64
}

// Registry loads, validates and indexes skill definitions and issues
// per-holder runtime instances. Definitions are immutable once registered;
// runtime state never lives in the registry beyond the instance cache.
type Registry struct {
	mu     sync.RWMutex
	logger *zap.Logger

	byID   map[int]*Config
	byName map[string]int
	byType map[Type][]int
	byKind map[EffectKind][]int

	cache      map[string]*cacheEntry // holderID:skillID -> instance
	cacheLimit int
	cacheTTL   int64
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:     logger,
		byID:       make(map[int]*Config),
		byName:     make(map[string]int),
		byType:     make(map[Type][]int),
		byKind:     make(map[EffectKind][]int),
		cache:      make(map[string]*cacheEntry),
		cacheLimit: DefaultCacheLimit,
		cacheTTL:   DefaultCacheTTL,
	}
}

// SetCacheLimit overrides the instance cache bound (minimum 1).
func (r *Registry) SetCacheLimit(limit int) {
	if limit >= 1 {
		r.mu.Lock()
		r.cacheLimit = limit
		r.mu.Unlock()
	}
}

// SetCacheTTL overrides the idle-instance expiry age in ticks.
func (r *Registry) SetCacheTTL(ticks int64) {
	if ticks > 0 {
		r.mu.Lock()
		r.cacheTTL = ticks
		r.mu.Unlock()
	}
}

// Register adds one definition. Invalid records and duplicate ids are
// rejected with false, never a panic.
func (r *Registry) Register(cfg Config) bool {
	if err := cfg.Validate(); err != nil {
		r.logger.Warn("rejecting skill definition", zap.Error(err))
		return false
	}
	cfg.normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[cfg.ID]; exists {
		r.logger.Warn("duplicate skill id", zap.Int("id", cfg.ID))
		return false
	}

	def := cfg
	r.byID[def.ID] = &def
	r.byName[strings.ToLower(def.Name)] = def.ID
	r.byType[def.Type] = append(r.byType[def.Type], def.ID)
	seen := make(map[EffectKind]bool)
	for _, effect := range def.Effects {
		if !seen[effect.Kind] {
			seen[effect.Kind] = true
			r.byKind[effect.Kind] = append(r.byKind[effect.Kind], def.ID)
		}
	}
	return true
}

// Load registers a batch of definitions and returns how many were accepted.
func (r *Registry) Load(configs []Config) int {
	accepted := 0
	for _, cfg := range configs {
		if r.Register(cfg) {
			accepted++
		}
	}
	r.logger.Info("skill definitions loaded",
		zap.Int("accepted", accepted),
		zap.Int("rejected", len(configs)-accepted),
	)
	return accepted
}

// LoadFile reads a definition collection from a json/yaml file with a
// top-level "skills" array and registers it.
func (r *Registry) LoadFile(path string) (int, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return 0, fmt.Errorf("read skill definitions: %w", err)
	}
	var configs []Config
	if err := v.UnmarshalKey("skills", &configs); err != nil {
		return 0, fmt.Errorf("parse skill definitions: %w", err)
	}
	return r.Load(configs), nil
}

// Definition returns the shared immutable definition, or nil when unknown.
func (r *Registry) Definition(id int) *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// DefinitionByName looks a definition up by exact (case-insensitive) name.
func (r *Registry) DefinitionByName(name string) *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byName[strings.ToLower(name)]; ok {
		return r.byID[id]
	}
	return nil
}

// Count returns the number of registered definitions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Instance returns the holder's runtime instance of the skill, creating and
// caching one on first use. Instances are keyed per holder so cooldown and
// use-count state is never aliased across holders. Unknown ids return nil.
func (r *Registry) Instance(holderID string, skillID int, nowTick int64) *Skill {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.byID[skillID]
	if !ok {
		return nil
	}

	key := fmt.Sprintf("%s:%d", holderID, skillID)
	if entry, hit := r.cache[key]; hit {
		entry.lastUsed = nowTick
		return entry.instance
	}

	if len(r.cache) >= r.cacheLimit {
		r.evictOldest()
	}
	instance := New(def, holderID, r.logger)
	r.cache[key] = &cacheEntry{instance: instance, lastUsed: nowTick}
	return instance
}

// evictOldest drops the least-recently-used cache entry; ties on last use
// break on the cache key so eviction stays deterministic. Caller holds the
// lock.
func (r *Registry) evictOldest() {
	var oldestKey string
	var oldestTick int64
	first := true
	for key, entry := range r.cache {
		if first || entry.lastUsed < oldestTick ||
			(entry.lastUsed == oldestTick && key < oldestKey) {
			first = false
			oldestKey = key
			oldestTick = entry.lastUsed
		}
	}
	if oldestKey != "" {
		delete(r.cache, oldestKey)
	}
}

// SweepExpired removes cached instances unused for longer than the TTL and
// returns how many were dropped. Driven by the external tick loop.
func (r *Registry) SweepExpired(nowTick int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, entry := range r.cache {
		if nowTick-entry.lastUsed > r.cacheTTL {
			delete(r.cache, key)
			removed++
		}
	}
	return removed
}

// CacheLen returns the number of cached runtime instances.
func (r *Registry) CacheLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Query returns definitions matching the filter. Pure read; results are the
// shared definitions and must not be mutated.
func (r *Registry) Query(filter Filter) []*Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idSet := map[int]bool{}
	for _, id := range filter.IDs {
		idSet[id] = true
	}

	var matches []*Config
	for id, def := range r.byID {
		if len(idSet) > 0 && !idSet[id] {
			continue
		}
		if filter.NameContains != "" &&
			!strings.Contains(strings.ToLower(def.Name), strings.ToLower(filter.NameContains)) {
			continue
		}
		if filter.Type != "" && def.Type != filter.Type {
			continue
		}
		if filter.EffectKind != "" && !defHasKind(def, filter.EffectKind) {
			continue
		}
		if filter.TargetKind != "" && !defHasTarget(def, filter.TargetKind) {
			continue
		}
		if filter.MinLevel > 0 && def.Level < filter.MinLevel {
			continue
		}
		if filter.MaxLevel > 0 && def.Level > filter.MaxLevel {
			continue
		}
		matches = append(matches, def)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches
}

func defHasKind(def *Config, kind EffectKind) bool {
	for _, effect := range def.Effects {
		if effect.Kind == kind {
			return true
		}
	}
	return false
}

func defHasTarget(def *Config, target TargetKind) bool {
	for _, effect := range def.Effects {
		if effect.Target == target {
			return true
		}
	}
	return false
}
