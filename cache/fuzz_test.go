//go:build go1.18

package cache

import (
	"strings"
	"testing"
)

// Fuzz basic Put/Get/Remove semantics of the eager map under arbitrary
// string keys. The value is derived from the key, so every read can be
// checked.
func FuzzEager_PutGetRemove(f *testing.F) {
	f.Add("")
	f.Add("a")
	f.Add("αβγ")
	f.Add("emoji🙂")
	f.Add(strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k string) {
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}

		m := NewEager(func(k string) (string, error) {
			return strings.ToUpper(k), nil
		}, Options[string, string]{Shards: 8})

		if fresh, err := m.Put(k); err != nil || !fresh {
			t.Fatalf("first Put: fresh=%v err=%v", fresh, err)
		}
		if fresh, _ := m.Put(k); fresh {
			t.Fatalf("second Put must be a no-op")
		}
		if got, ok, _ := m.Get(k); !ok || got != strings.ToUpper(k) {
			t.Fatalf("Get: want %q, got %q ok=%v", strings.ToUpper(k), got, ok)
		}
		if !m.Remove(k) {
			t.Fatalf("Remove must return true")
		}
		if _, ok, _ := m.Get(k); ok {
			t.Fatalf("key must be absent after Remove")
		}
		if m.Len() != 0 {
			t.Fatalf("Len after Remove: %d", m.Len())
		}
	})
}

// Fuzz the bounded map with a byte-coded operation stream; after every
// step the bound must hold and the ring must agree with the index.
func FuzzLRU_Ops(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	f.Add([]byte{0x10, 0x20, 0x30, 0x11, 0x21, 0x31})
	f.Add([]byte(strings.Repeat("\x03\x83\x43", 20)))

	f.Fuzz(func(t *testing.T, ops []byte) {
		const max = 4
		compute, _ := boxFunc()
		fc := newFakeCollector[box]()
		m := NewLRU(compute, LRUOptions[string, box]{
			SoftOptions: SoftOptions[string, box]{Collector: fc},
			MaximumSize: max,
		})

		for _, op := range ops {
			k := string(rune('a' + op&0x0f))
			switch op >> 6 {
			case 0:
				_, _ = m.Put(k)
			case 1:
				_, _, _ = m.Get(k)
			case 2:
				m.Remove(k)
			case 3:
				if v, ok, _ := m.Get(k); ok {
					fc.reclaim(v)
				}
			}

			rec := m.Recency()
			if len(rec) > max {
				t.Fatalf("ring holds %d > %d keys", len(rec), max)
			}
			if len(rec) != m.Len() {
				t.Fatalf("ring %v disagrees with Len %d", rec, m.Len())
			}
			for _, rk := range rec {
				if !m.Keys().Contains(rk) {
					t.Fatalf("ring key %q missing from index", rk)
				}
			}
		}
	})
}
