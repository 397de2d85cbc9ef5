package relate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}

	first := gen.Generate()
	second := gen.Generate()

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("group-1", "group-2")

	assert.Equal(t, "group-1", gen.Generate())
	assert.Equal(t, "group-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
