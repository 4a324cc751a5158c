package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fibsussy/keymux/internal/keycode"
)

func TestStore_FastTapIsRecorded(t *testing.T) {
	s := NewStore()
	s.RecordKeyPress(keycode.KC_A)
	s.RecordKeyRelease(keycode.KC_A, false)

	snap := s.Snapshot()
	entry, ok := snap[keycode.KC_A]
	assert.True(t, ok)
	assert.Equal(t, uint32(1), entry.TapSampleCount)
}

func TestStore_SlowTapIsIgnored(t *testing.T) {
	s := NewStore()
	s.RecordKeyPress(keycode.KC_A)
	time.Sleep(135 * time.Millisecond)
	s.RecordKeyRelease(keycode.KC_A, false)

	assert.Empty(t, s.Snapshot())
}

func TestStore_GameModeSuppressesRecording(t *testing.T) {
	s := NewStore()
	s.RecordKeyPress(keycode.KC_A)
	s.RecordKeyRelease(keycode.KC_A, true)

	assert.Empty(t, s.Snapshot())
}

func TestStore_ReleaseWithoutMatchingPressIsNoop(t *testing.T) {
	s := NewStore()
	s.RecordKeyRelease(keycode.KC_A, false)
	assert.Empty(t, s.Snapshot())
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.RecordKeyPress(keycode.KC_A)
	s.RecordKeyRelease(keycode.KC_A, false)
	assert.NotEmpty(t, s.Snapshot())

	s.Clear()
	assert.Empty(t, s.Snapshot())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_key_stats.json")

	s := NewStore()
	s.RecordKeyPress(keycode.KC_A)
	s.RecordKeyRelease(keycode.KC_A, false)
	assert.NoError(t, s.Save(path))

	loaded := NewStore()
	assert.NoError(t, loaded.Load(path))

	snap := loaded.Snapshot()
	entry, ok := snap[keycode.KC_A]
	assert.True(t, ok)
	assert.Equal(t, uint32(1), entry.TapSampleCount)
}

func TestStore_LoadMissingFileIsSuccess(t *testing.T) {
	s := NewStore()
	err := s.Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.NoError(t, err)
	assert.Empty(t, s.Snapshot())
}

func TestStore_SaveMergesWithExistingFileOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_key_stats.json")

	first := NewStore()
	first.RecordKeyPress(keycode.KC_A)
	first.RecordKeyRelease(keycode.KC_A, false)
	assert.NoError(t, first.Save(path))

	second := NewStore()
	second.RecordKeyPress(keycode.KC_S)
	second.RecordKeyRelease(keycode.KC_S, false)
	assert.NoError(t, second.Save(path))

	merged := NewStore()
	assert.NoError(t, merged.Load(path))
	snap := merged.Snapshot()
	_, hasA := snap[keycode.KC_A]
	_, hasS := snap[keycode.KC_S]
	assert.True(t, hasA, "saving a second store's stats should not clobber the first's entries")
	assert.True(t, hasS)
}
