package memory

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestType(t *testing.T) {
	var typ Type
	assert.False(t, typ.HasCode())
	assert.False(t, typ.HasData())

	typ.Set(Code)
	assert.True(t, typ.HasCode())
	assert.False(t, typ.HasData())

	typ.Set(Accessed | LabelTarget)
	assert.True(t, typ.HasAccessed())
	assert.True(t, typ.HasLabelTarget())
	assert.True(t, typ.Is(Data|Code))

	typ.Clear(Code)
	assert.False(t, typ.HasCode())
	assert.True(t, typ.HasAccessed())
}
