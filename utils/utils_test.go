package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsString(t *testing.T) {
	assert.True(t, ContainsString([]string{"sda", "sdb"}, "sdb"))
	assert.False(t, ContainsString([]string{"sda", "sdb"}, "sdc"))
	assert.False(t, ContainsString(nil, "sda"))
}

func TestSliceRemoveString(t *testing.T) {
	assert.Equal(t, []string{"sda", "sdc"}, SliceRemoveString([]string{"sda", "sdb", "sdc"}, "sdb"))
	assert.Nil(t, SliceRemoveString([]string{"sda"}, "sda"))
}

func TestSliceSubSlice(t *testing.T) {
	assert.Equal(t, []string{"sda", "sdc"}, SliceSubSlice([]string{"sda", "sdb", "sdc"}, []string{"sdb"}))
	assert.Equal(t, []string{}, SliceSubSlice([]string{"sda"}, []string{"sda"}))
}

func TestSliceEqualSlice(t *testing.T) {
	assert.True(t, SliceEqualSlice([]string{"sda", "sdb"}, []string{"sdb", "sda"}))
	assert.False(t, SliceEqualSlice([]string{"sda"}, []string{"sda", "sdb"}))
}
