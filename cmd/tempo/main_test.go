package main

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myorg/tempo/internal/config"
	"github.com/myorg/tempo/internal/profile"
)

func TestParseReadings(t *testing.T) {
	readings, err := parseReadings([]string{"0", "5", "-3.5"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, -3.5}, readings)

	readings, err = parseReadings([]string{"10"}, 0.5, 1.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 0, 0.5, 1, 1.5}, readings)

	_, err = parseReadings([]string{"soon"}, 0, 0)
	assert.Error(t, err)

	_, err = parseReadings(nil, 0, 0)
	assert.Error(t, err)

	_, err = parseReadings(nil, -1, 3)
	assert.Error(t, err)
}

func TestManualReadings(t *testing.T) {
	readings := manualReadings(250*time.Millisecond, time.Second)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, readings)
}

func TestResolveProfile(t *testing.T) {
	speed := -2.0
	p, err := resolveProfile(config.TimelineConfig{
		Profile:    "pingpong",
		Duration:   10,
		Iterations: math.Inf(1),
		Speed:      &speed,
	})
	require.NoError(t, err)
	assert.Equal(t, "pingpong", p.Name)
	assert.Equal(t, 10.0, p.Duration)
	assert.True(t, math.IsInf(p.Iterations, 1))
	assert.Equal(t, -2.0, p.Speed)
	assert.True(t, p.Pingpong)

	p, err = resolveProfile(config.TimelineConfig{Duration: 3})
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Name)
	assert.Equal(t, 3.0, p.Duration)
	assert.Equal(t, 1.0, p.Speed)

	_, err = resolveProfile(config.TimelineConfig{Profile: "no-such-profile"})
	assert.ErrorIs(t, err, profile.ErrUnknownProfile)
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "WARN", "error"} {
		_, err := parseLevel(s)
		assert.NoError(t, err, s)
	}
	_, err := parseLevel("chatty")
	assert.Error(t, err)
}
