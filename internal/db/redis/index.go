package redis

import (
	"context"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/venuedex/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	cmd := s.b().Arbitrary("FT.CREATE").Args(def.Args()...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return opErr(db.OpCreateIndex, err)
	}
	return nil
}

// DropIndex removes an FT index by name. Documents are kept.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return db.ErrIndexNotFound
		}
		return opErr(db.OpDropIndex, err)
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return false, nil
		}
		return false, opErr(db.OpIndexInfo, err)
	}
	return true, nil
}

// IndexInfo returns document counts and memory figures from FT.INFO.
func (s *Store) IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, opErr(db.OpIndexInfo, err)
	}
	return parseIndexInfo(name, raw), nil
}

func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index")
}

// memoryKeys are the FT.INFO size attributes (in MB) summed into MemoryBytes.
var memoryKeys = map[string]bool{
	"inverted_sz_mb":          true,
	"offset_vectors_sz_mb":    true,
	"doc_table_size_mb":       true,
	"sortable_values_size_mb": true,
	"key_table_size_mb":       true,
	"geoshapes_sz_mb":         true,
}

// parseIndexInfo reads the flat [key, value, ...] FT.INFO reply.
func parseIndexInfo(name string, raw []rueidis.RedisMessage) *db.IndexInfo {
	info := &db.IndexInfo{Name: name}
	var mb float64
	for i := 0; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		switch {
		case key == "num_docs":
			info.NumDocs = int(asFloat(raw[i+1]))
		case key == "num_records":
			info.NumRecords = int(asFloat(raw[i+1]))
		case key == "indexing":
			info.Indexing = asFloat(raw[i+1]) != 0
		case key == "hash_indexing_failures":
			info.Failures = int(asFloat(raw[i+1]))
		case memoryKeys[key]:
			mb += asFloat(raw[i+1])
		}
	}
	info.MemoryBytes = int64(mb * 1024 * 1024)
	return info
}

// asFloat reads a numeric reply that servers return either as an integer,
// a double or a bulk string.
func asFloat(m rueidis.RedisMessage) float64 {
	if n, err := m.AsInt64(); err == nil {
		return float64(n)
	}
	if f, err := m.AsFloat64(); err == nil {
		return f
	}
	if s, err := m.ToString(); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}
