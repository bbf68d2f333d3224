package mesh

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// StateTracker
// ---------------------------------------------------------------------------

func TestNewStateTracker(t *testing.T) {
	st := NewStateTracker()
	assert.False(t, st.HasResult())
	assert.Nil(t, st.Result())

	status := st.Status()
	assert.False(t, status.Ready)
	assert.Zero(t, status.Solves)
	assert.Empty(t, status.RunID)
}

func TestStateTracker_SetResultAndError(t *testing.T) {
	st := NewStateTracker()
	result := &Result{RunID: "abc", UniqueBeacons: 79}

	st.SetError(errors.New("stalled"))
	assert.Equal(t, "stalled", st.Status().LastError)

	st.SetResult(result)
	assert.Same(t, result, st.Result())
	status := st.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, "abc", status.RunID)
	assert.Equal(t, 1, status.Solves)
	assert.Empty(t, status.LastError)
	assert.False(t, status.UpdatedAt.IsZero())

	// a later failure keeps the last good result
	st.SetError(errors.New("bad report"))
	assert.Same(t, result, st.Result())
	assert.Equal(t, "bad report", st.Status().LastError)
}

func TestStateTracker_Concurrent(t *testing.T) {
	st := NewStateTracker()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			st.SetResult(&Result{UniqueBeacons: i})
		}()
		go func() {
			defer wg.Done()
			_ = st.Status()
			_ = st.Result()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, st.Status().Solves)
}

// ---------------------------------------------------------------------------
// Result cache
// ---------------------------------------------------------------------------

func TestStateTracker_Cache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "result.json")

	st := NewStateTrackerWithCache(path)
	assert.False(t, st.HasResult())

	st.SetResult(solvedFixture(t))
	_, err := os.Stat(path)
	require.NoError(t, err)

	reloaded := NewStateTrackerWithCache(path)
	require.True(t, reloaded.HasResult())
	assert.Equal(t, st.Result().RunID, reloaded.Result().RunID)
	assert.Equal(t, fixtureUniqueBeacons, reloaded.Result().UniqueBeacons)
	assert.Equal(t, st.Result().Scanners, reloaded.Result().Scanners)
}

func TestStateTracker_CorruptCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	st := NewStateTrackerWithCache(path)
	assert.False(t, st.HasResult())
}

func TestLoadResult_Missing(t *testing.T) {
	_, err := LoadResult(filepath.Join(t.TempDir(), "none.json"))
	assert.True(t, os.IsNotExist(err))
}
