package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/cvindex/internal/remote"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), true, DefaultTTLSeconds)
	require.NoError(t, err)
	return s
}

func TestFileStore_SetGetDelete(t *testing.T) {
	s := newStore(t)

	_, err := s.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Set("k1", "apple", json.RawMessage(`{"a":1}`)))
	e, err := s.Get("k1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(e.Data))
	assert.Equal(t, "apple", e.Label)
	assert.Equal(t, DefaultTTLSeconds, e.TTLSeconds)

	require.NoError(t, s.Delete("k1"))
	require.NoError(t, s.Delete("k1"))
	_, err = s.Get("k1")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.True(t, errors.Is(s.Set("", "", nil), ErrInvalidKey))
}

func TestFileStore_Expiry(t *testing.T) {
	s := newStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	require.NoError(t, s.Set("k", "", json.RawMessage(`1`)))
	require.NoError(t, s.Set("k2", "", json.RawMessage(`2`)))

	s.now = func() time.Time { return base.Add(time.Duration(DefaultTTLSeconds+1) * time.Second) }
	_, err := s.Get("k")
	assert.True(t, errors.Is(err, ErrExpired))

	removed, err := s.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFileStore_ClearLeavesOtherFiles(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Set("a", "", json.RawMessage(`1`)))
	require.NoError(t, s.Set("b", "", json.RawMessage(`2`)))
	other := filepath.Join(s.Dir(), "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))

	require.NoError(t, s.Clear())
	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.FileExists(t, other)
}

func TestFileStore_Disabled(t *testing.T) {
	s, err := NewFileStore("", false, 0)
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	_, err = s.Get("k")
	assert.True(t, errors.Is(err, ErrDisabled))
	assert.True(t, errors.Is(s.Set("k", "", nil), ErrDisabled))
	assert.True(t, errors.Is(s.Clear(), ErrDisabled))
}

func TestNewFileStore_Validation(t *testing.T) {
	_, err := NewFileStore("", true, DefaultTTLSeconds)
	assert.Error(t, err)

	_, err = NewFileStore(t.TempDir(), true, 5)
	assert.True(t, errors.Is(err, ErrInvalidTTL))
}

func TestLookupKey(t *testing.T) {
	assert.Equal(t, LookupKey("Banana"), LookupKey("  banana "))
	assert.Equal(t, LookupKey("Greek   Yogurt"), LookupKey("greek yogurt"))
	assert.Equal(t, LookupKey("CRÈME brûlée"), LookupKey("crème BRÛLÉE"))
	assert.NotEqual(t, LookupKey("banana"), LookupKey("bananas"))
	assert.Len(t, LookupKey("x"), 64)
	assert.Equal(t, "greek yogurt", NormalizeName(" Greek\tYogurt "))
}

func TestLookupKey_Concurrent(t *testing.T) {
	want := LookupKey("Crème Brûlée")
	names := []string{"CRÈME BRÛLÉE", "crème  brûlée", " Crème Brûlée "}

	var wg sync.WaitGroup
	got := make([]string, 64)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = LookupKey(names[i%len(names)])
		}(i)
	}
	wg.Wait()

	for _, k := range got {
		assert.Equal(t, want, k)
	}
}

func TestLookupCache_RoundTrip(t *testing.T) {
	c := NewLookupCache(newStore(t), zerolog.Nop())

	_, ok := c.GetLookup("apple")
	assert.False(t, ok)

	c.PutLookup("Apple", &remote.LookupResponse{
		Protein:    remote.FlexFloat{Value: 0.5, Set: true},
		TotalCarbs: remote.FlexFloat{Value: 25, Set: true},
	})
	got, ok := c.GetLookup("apple")
	require.True(t, ok)
	assert.Equal(t, 25.0, got.TotalCarbs.Value)
	assert.False(t, got.Fat.Set)
	assert.Equal(t, 0.0, got.Vector().Fat)
}

func TestLookupCache_Disabled(t *testing.T) {
	s, err := NewFileStore("", false, 0)
	require.NoError(t, err)
	c := NewLookupCache(s, zerolog.Nop())
	c.PutLookup("apple", &remote.LookupResponse{})
	_, ok := c.GetLookup("apple")
	assert.False(t, ok)
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"3600", 3600, false},
		{"12h", 43200, false},
		{"90m", 5400, false},
		{"10", 10, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTTL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvTTLSeconds, "2h")
	assert.Equal(t, 7200, TTLFromEnv(DefaultTTLSeconds))
	t.Setenv(EnvTTLSeconds, "bogus")
	assert.Equal(t, DefaultTTLSeconds, TTLFromEnv(DefaultTTLSeconds))

	t.Setenv(EnvCacheEnabled, "false")
	assert.False(t, EnabledFromEnv(true))
	t.Setenv(EnvCacheEnabled, "maybe")
	assert.True(t, EnabledFromEnv(true))

	t.Setenv(EnvCacheDir, "/tmp/cv")
	assert.Equal(t, "/tmp/cv", DirFromEnv())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "30m", FormatDuration(30*time.Minute))
	assert.Equal(t, "2h", FormatDuration(2*time.Hour))
	assert.Equal(t, "2h15m", FormatDuration(135*time.Minute))
	assert.Equal(t, "1d", FormatDuration(24*time.Hour))
	assert.Equal(t, "3d4h", FormatDuration(76*time.Hour))
}
