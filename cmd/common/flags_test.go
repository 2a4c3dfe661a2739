package common

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagValidator(t *testing.T) {
	v := NewFlagValidator().
		ValidateFloat("risk", 0.01, 0, 0.1).
		ValidateInt("workers", 4, 0, 64).
		ValidateChoice("mode", "long_only", []string{"long_only", "long_short"})
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.GetError())

	v.ValidateFloat("risk", 0.5, 0, 0.1)
	require.Error(t, v.GetError())
	assert.Contains(t, v.GetError().Error(), "risk must be between")

	v.ValidateFile("data", filepath.Join(t.TempDir(), "missing.csv"), true).
		ValidateChoice("mode", "grid", []string{"long_only"})
	assert.Contains(t, v.GetError().Error(), "validation errors:")
	assert.Contains(t, v.GetError().Error(), "missing.csv")
}

func TestValidateRange(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.AddDate(0, 1, 0)
	assert.False(t, NewFlagValidator().ValidateRange(a, b).HasErrors())
	assert.False(t, NewFlagValidator().ValidateRange(time.Time{}, b).HasErrors())
	assert.True(t, NewFlagValidator().ValidateRange(b, a).HasErrors())
	assert.True(t, NewFlagValidator().ValidateRange(a, a).HasErrors())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-03-15T08:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 6, 30, 0, 0, time.UTC), d)

	d, err = ParseDate(" ")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("15/03/2024")
	assert.Error(t, err)
}

func TestVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, ProjectName, info.ProjectName)
	assert.Contains(t, GetFullVersion(), ProjectVersion)
	assert.True(t, IsDevBuild())
}
