// Package page holds the typed result page shared by both listing backends
// and the pagination cursor codec.
package page

import (
	"encoding/base64"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Meta describes where a page sits in the full result set.
// Offset is set in offset mode, Cursor in cursor mode.
type Meta struct {
	Limit      int     `json:"limit"`
	Offset     *int    `json:"offset,omitempty"`
	Cursor     *string `json:"cursor,omitempty"`
	HasMore    bool    `json:"hasMore"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

// ResultPage is one page of typed results.
type ResultPage[T any] struct {
	Data     []T      `json:"data"`
	Total    int      `json:"total"`
	MaxScore *float64 `json:"maxScore,omitempty"`
	Meta     Meta     `json:"meta"`
}

// Hit is a ranked search result.
type Hit[T any] struct {
	Document       T        `json:"document"`
	Score          float64  `json:"score"`
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
}

// Offset builds an offset-mode page. HasMore holds iff offset+len(data) < total.
func Offset[T any](data []T, total, offset, limit int) ResultPage[T] {
	hasMore, next := Next(offset, len(data), total)
	off := offset
	return ResultPage[T]{
		Data:  nonNil(data),
		Total: total,
		Meta:  Meta{Limit: limit, Offset: &off, HasMore: hasMore, NextCursor: next},
	}
}

// Cursor builds a cursor-mode page. HasMore holds iff next is non-nil.
func Cursor[T any](data []T, total int, cursor string, limit int, next *string) ResultPage[T] {
	var cur *string
	if cursor != "" {
		cur = &cursor
	}
	return ResultPage[T]{
		Data:  nonNil(data),
		Total: total,
		Meta:  Meta{Limit: limit, Cursor: cur, HasMore: next != nil, NextCursor: next},
	}
}

// Map converts the page data, keeping totals and meta.
func Map[T, U any](p ResultPage[T], fn func(T) U) ResultPage[U] {
	out := make([]U, len(p.Data))
	for i, v := range p.Data {
		out[i] = fn(v)
	}
	return ResultPage[U]{Data: out, Total: p.Total, MaxScore: p.MaxScore, Meta: p.Meta}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Next derives hasMore and the next offset cursor from one page.
// nextCursor is nil, not empty, when there is nothing more.
func Next(offset, n, total int) (hasMore bool, nextCursor *string) {
	if offset+n >= total || n == 0 {
		return false, nil
	}
	c := EncodeOffset(offset + n)
	return true, &c
}

// EncodeOffset renders the next offset as a cursor.
//
// This cursor is the decimal offset itself. It is neither opaque nor
// tamper-resistant: clients may forge any value, which only moves their
// position in the result set.
func EncodeOffset(offset int) string {
	if offset < 0 {
		offset = 0
	}
	return strconv.Itoa(offset)
}

// DecodeOffset parses an offset cursor. Malformed, negative or overflowing
// input yields 0 so infinite scroll restarts instead of failing.
func DecodeOffset(cursor string) int {
	n, err := strconv.Atoi(strings.TrimSpace(cursor))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// EncodeKey renders a keyset anchor (the last row id) as a cursor.
func EncodeKey(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// DecodeKey parses a keyset cursor. ok is false for anything that does not
// decode to a non-empty UTF-8 id; callers then start from the first page.
func DecodeKey(cursor string) (id string, ok bool) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cursor))
	if err != nil || len(b) == 0 || !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}
