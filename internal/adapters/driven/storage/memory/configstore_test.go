package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.values)
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	err := store.Set("key1", "value1")
	require.NoError(t, err)

	val, ok := store.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", val)
}

func TestConfigStore_Set_Update(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("key1", "original"))
	require.NoError(t, store.Set("key1", "updated"))

	val, ok := store.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "updated", val)
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := NewConfigStore()

	val, ok := store.Get("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_GetString(t *testing.T) {
	store := NewConfigStore()

	_ = store.Set("key1", "string_value")
	assert.Equal(t, "string_value", store.GetString("key1"))

	// Missing and wrong-typed keys fall back to the zero value
	assert.Equal(t, "", store.GetString("nonexistent"))

	_ = store.Set("key2", 123)
	assert.Equal(t, "", store.GetString("key2"))
}

func TestConfigStore_GetInt(t *testing.T) {
	store := NewConfigStore()

	_ = store.Set("int", 42)
	assert.Equal(t, 42, store.GetInt("int"))

	_ = store.Set("int64", int64(43))
	assert.Equal(t, 43, store.GetInt("int64"))

	// TOML decodes numbers as float64
	_ = store.Set("float", float64(123.7))
	assert.Equal(t, 123, store.GetInt("float"))

	assert.Equal(t, 0, store.GetInt("nonexistent"))

	_ = store.Set("string", "not_a_number")
	assert.Equal(t, 0, store.GetInt("string"))
}

func TestConfigStore_GetBool(t *testing.T) {
	store := NewConfigStore()

	_ = store.Set("on", true)
	assert.True(t, store.GetBool("on"))

	_ = store.Set("off", false)
	assert.False(t, store.GetBool("off"))

	assert.False(t, store.GetBool("nonexistent"))

	_ = store.Set("string", "true")
	assert.False(t, store.GetBool("string"))
}

func TestConfigStore_Keys_Sorted(t *testing.T) {
	store := NewConfigStore()

	_ = store.Set("source.type", "ckan")
	_ = store.Set("classifier.provider", "gemini")
	_ = store.Set("enrich.workers", 4)

	keys := store.Keys()
	assert.Equal(t, []string{"classifier.provider", "enrich.workers", "source.type"}, keys)
}

func TestConfigStore_Keys_Empty(t *testing.T) {
	store := NewConfigStore()

	assert.Empty(t, store.Keys())
}

func TestConfigStore_SaveAndLoad_NoOp(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Save())
	require.NoError(t, store.Load())

	// Data survives both
	_ = store.Set("key1", "value1")
	require.NoError(t, store.Save())
	assert.Equal(t, "value1", store.GetString("key1"))
}

func TestConfigStore_Path(t *testing.T) {
	store := NewConfigStore()
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_MultipleInstances(t *testing.T) {
	store1 := NewConfigStore()
	store2 := NewConfigStore()

	_ = store1.Set("key1", "value1")
	_ = store2.Set("key2", "value2")

	// Each store should be independent
	_, ok := store1.Get("key2")
	assert.False(t, ok)

	_, ok = store2.Get("key1")
	assert.False(t, ok)
}

func TestConfigStore_Concurrency_ReadWriteMix(t *testing.T) {
	store := NewConfigStore()

	for i := 0; i < 10; i++ {
		_ = store.Set(fmt.Sprintf("key-%d", i), i)
	}

	var wg sync.WaitGroup
	numReaders := 50
	numWriters := 25

	wg.Add(numReaders)
	for i := 0; i < numReaders; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = store.Get(fmt.Sprintf("key-%d", j))
				_ = store.Keys()
			}
		}()
	}

	wg.Add(numWriters)
	for i := 0; i < numWriters; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = store.Set(fmt.Sprintf("key-%d", j), id*10+j)
			}
		}(i)
	}

	wg.Wait()

	// Should not panic or deadlock
	for i := 0; i < 10; i++ {
		val, ok := store.Get(fmt.Sprintf("key-%d", i))
		assert.True(t, ok)
		assert.NotNil(t, val)
	}
}
