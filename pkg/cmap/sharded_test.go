package cmap

import (
	"fmt"
	"slices"
	"sync"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{2, 2},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[int](tt.input)
			if m.ShardCount() != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d", tt.input, m.ShardCount(), tt.expected)
			}
		})
	}
}

func TestSetGetDelete(t *testing.T) {
	m := New[int]()

	m.Set("key1", 100)
	m.Set("key2", 200)
	m.Set("key1", 101)

	if v, ok := m.Get("key1"); !ok || v != 101 {
		t.Errorf("Get(key1) = (%d, %v), want (101, true)", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) should report absent")
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}

	m.Delete("key1")
	if m.Has("key1") {
		t.Error("Has(key1) after Delete() = true")
	}

	if v, ok := m.Pop("key2"); !ok || v != 200 {
		t.Errorf("Pop(key2) = (%d, %v), want (200, true)", v, ok)
	}
	if _, ok := m.Pop("key2"); ok {
		t.Error("second Pop(key2) should report absent")
	}
}

func TestClear(t *testing.T) {
	m := New[string]()
	for i := 0; i < 50; i++ {
		m.Set(fmt.Sprintf("k%d", i), "v")
	}
	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", m.Count())
	}
}

func TestAllAndKeys(t *testing.T) {
	m := NewWithShards[int](4)
	want := []string{"a", "b", "c", "d", "e"}
	for i, k := range want {
		m.Set(k, i)
	}

	keys := m.Keys()
	slices.Sort(keys)
	if !slices.Equal(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}

	seen := 0
	for range m.All() {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("All() early stop visited %d entries, want 2", seen)
	}
}

func TestUpdate(t *testing.T) {
	m := New[int]()

	inc := func(v int, exists bool) int {
		if !exists {
			return 1
		}
		return v + 1
	}
	m.Update("n", inc)
	if got := m.Update("n", inc); got != 2 {
		t.Errorf("Update() = %d, want 2", got)
	}
}

func TestDeleteFunc(t *testing.T) {
	m := New[int]()
	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}

	n := m.DeleteFunc(func(_ string, v int) bool { return v%2 == 0 })
	if n != 5 {
		t.Errorf("DeleteFunc() removed %d, want 5", n)
	}
	if m.Count() != 5 {
		t.Errorf("Count() = %d, want 5", m.Count())
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int]()
	var wg sync.WaitGroup
	const goroutines, ops = 50, 200

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				key := fmt.Sprintf("%d-%d", base, j)
				m.Set(key, j)
				m.Get(key)
				m.Update("shared", func(v int, _ bool) int { return v + 1 })
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != goroutines*ops+1 {
		t.Errorf("Count() = %d, want %d", m.Count(), goroutines*ops+1)
	}
	if v, _ := m.Get("shared"); v != goroutines*ops {
		t.Errorf("shared = %d, want %d", v, goroutines*ops)
	}
}
