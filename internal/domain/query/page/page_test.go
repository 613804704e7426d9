package page

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeOffset_Garbage(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "-999", "1e3", "99999999999999999999999", "  ", "12abc"} {
		if got := DecodeOffset(in); got != 0 {
			t.Errorf("DecodeOffset(%q) = %d, want 0", in, got)
		}
	}
}

func TestOffsetCursor_RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 10, 12345} {
		if got := DecodeOffset(EncodeOffset(n)); got != n {
			t.Errorf("round trip %d -> %d", n, got)
		}
	}
	if EncodeOffset(-5) != "0" {
		t.Error("negative offset should encode as 0")
	}
}

func TestDecodeKey(t *testing.T) {
	id, ok := DecodeKey(EncodeKey("venue-42"))
	if !ok || id != "venue-42" {
		t.Fatalf("DecodeKey = %q, %v", id, ok)
	}
	for _, in := range []string{"", "!!!", EncodeKey(""), "\xff"} {
		if _, ok := DecodeKey(in); ok {
			t.Errorf("DecodeKey(%q) should fail", in)
		}
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name           string
		offset, n, tot int
		hasMore        bool
		next           string
	}{
		{"first of many", 0, 10, 25, true, "10"},
		{"middle", 10, 10, 25, true, "20"},
		{"last partial", 20, 5, 25, false, ""},
		{"exact end", 15, 10, 25, false, ""},
		{"empty", 0, 0, 0, false, ""},
		{"past end", 40, 0, 25, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasMore, next := Next(tt.offset, tt.n, tt.tot)
			if hasMore != tt.hasMore {
				t.Errorf("hasMore = %v, want %v", hasMore, tt.hasMore)
			}
			if tt.next == "" {
				if next != nil {
					t.Errorf("next = %q, want nil", *next)
				}
				return
			}
			if next == nil || *next != tt.next {
				t.Errorf("next = %v, want %q", next, tt.next)
			}
		})
	}
}

// Walks every page through the cursor until hasMore is false.
func TestPaginationConservation(t *testing.T) {
	for total := 0; total <= 53; total++ {
		for _, limit := range []int{1, 3, 10, 100} {
			seen := 0
			cursor := ""
			for i := 0; ; i++ {
				if i > total+1 {
					t.Fatalf("total=%d limit=%d: did not terminate", total, limit)
				}
				offset := DecodeOffset(cursor)
				n := min(limit, max(total-offset, 0))
				p := Offset(make([]int, n), total, offset, limit)
				seen += len(p.Data)
				if p.Meta.HasMore != (p.Meta.NextCursor != nil) {
					t.Fatalf("hasMore and nextCursor disagree")
				}
				if !p.Meta.HasMore {
					break
				}
				cursor = *p.Meta.NextCursor
			}
			if seen != total {
				t.Errorf("total=%d limit=%d: saw %d", total, limit, seen)
			}
		}
	}
}

func TestOffset_JSONOmitsNextCursor(t *testing.T) {
	p := Offset([]string{"a"}, 1, 0, 10)
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "nextCursor") {
		t.Errorf("nextCursor should be omitted: %s", b)
	}
	if !strings.Contains(string(b), `"offset":0`) {
		t.Errorf("offset 0 should be present: %s", b)
	}
}

func TestCursor(t *testing.T) {
	next := "abc"
	p := Cursor([]int{1, 2}, 5, "", 2, &next)
	if !p.Meta.HasMore || p.Meta.Cursor != nil || *p.Meta.NextCursor != "abc" {
		t.Errorf("meta = %+v", p.Meta)
	}
	last := Cursor[int](nil, 5, "xyz", 2, nil)
	if last.Meta.HasMore || last.Data == nil || *last.Meta.Cursor != "xyz" {
		t.Errorf("meta = %+v data=%v", last.Meta, last.Data)
	}
}

func TestMap(t *testing.T) {
	score := 1.5
	p := Offset([]int{1, 2}, 2, 0, 10)
	p.MaxScore = &score
	out := Map(p, func(i int) string { return strings.Repeat("x", i) })
	if out.Data[1] != "xx" || out.MaxScore != &score || out.Total != 2 {
		t.Errorf("Map = %+v", out)
	}
}
