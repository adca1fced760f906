package meterutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKwToW(t *testing.T) {
	assert.Equal(t, 423.0, KwToW(0.4231))
	assert.Equal(t, 0.0, KwToW(-1.5))
}

func TestNormalizeCumulativeKwh(t *testing.T) {
	assert.Nil(t, NormalizeCumulativeKwh(nil))
	assert.Nil(t, NormalizeCumulativeKwh(Float64Ptr(0)))

	v := NormalizeCumulativeKwh(Float64Ptr(104.5))
	assert.NotNil(t, v)
	assert.Equal(t, 104.5, *v)
}
