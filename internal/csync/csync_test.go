// Copyright 2026 Oxbow Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package csync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapBasicOperations(t *testing.T) {
	m := NewMap[string, int]()

	_, ok := m.Get("a")
	assert.False(t, ok)

	m.Set("a", 1)
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, m.Len())

	m.Delete("a")
	assert.Equal(t, 0, m.Len())
}

func TestMapGetOrSet(t *testing.T) {
	m := NewMap[string, int]()

	v, existed := m.GetOrSet("k", func() int { return 42 })
	assert.False(t, existed)
	assert.Equal(t, 42, v)

	v, existed = m.GetOrSet("k", func() int { return 99 })
	assert.True(t, existed)
	assert.Equal(t, 42, v)
}

func TestMapSeq2AndKeys(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	seen := map[string]int{}
	for k, v := range m.Seq2() {
		seen[k] = v
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
	assert.ElementsMatch(t, []string{"a", "b"}, m.Keys())

	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestMapConcurrentAccess(t *testing.T) {
	m := NewMap[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Set(i, i)
			m.Get(i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, m.Len())
}

func TestSetTryAdd(t *testing.T) {
	s := NewSet[string]()

	assert.True(t, s.TryAdd("job"))
	assert.False(t, s.TryAdd("job"), "second add must report already present")
	assert.True(t, s.Contains("job"))
	assert.Equal(t, 1, s.Len())

	s.Remove("job")
	assert.False(t, s.Contains("job"))
	assert.True(t, s.TryAdd("job"), "re-add after remove succeeds")
}

func TestSetTryAddConcurrent(t *testing.T) {
	s := NewSet[string]()

	var wg sync.WaitGroup
	wins := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- s.TryAdd("singleton")
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one goroutine wins the in-flight slot")
}
