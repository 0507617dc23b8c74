package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id, err := New()
		require.NoError(t, err)
		require.Len(t, id, RecordLength)
		for _, c := range id {
			assert.True(t, strings.ContainsRune(alphabet, c), "unexpected %q in %s", c, id)
		}
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerate_Prefix(t *testing.T) {
	for _, prefix := range []string{"usr", "ntf", "rpl"} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(id, prefix+"-"))
			assert.Len(t, id, len(prefix)+1+RecordLength)
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, strings.HasPrefix(MustGenerate("usr"), "usr-"))
	})
}

func BenchmarkNew(b *testing.B) {
	for b.Loop() {
		_, _ = New()
	}
}
