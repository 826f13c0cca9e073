package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat(t *testing.T) {
	assert.Equal(t, 34980.47, Float("34980.47"))
	assert.Equal(t, 0.0001, Float("0.00010000"))
	assert.Equal(t, -0.000125, Float("-0.000125"))
	assert.Equal(t, 0.0, Float(""))
	assert.Equal(t, 0.0, Float("not a number"))
}

func TestPtr(t *testing.T) {
	v := Ptr(42.5)
	require.NotNil(t, v)
	assert.Equal(t, 42.5, *v)
}
