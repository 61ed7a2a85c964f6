package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("GALAXY_TEST_VALUE", "spiral")
	assert.Equal(t, "spiral", GetEnv("GALAXY_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", GetEnv("GALAXY_TEST_MISSING", "fallback"))

	t.Setenv("GALAXY_TEST_EMPTY", "")
	assert.Equal(t, "fallback", GetEnv("GALAXY_TEST_EMPTY", "fallback"))
}

func TestGetEnvTyped(t *testing.T) {
	t.Setenv("GALAXY_TEST_INT", "42")
	t.Setenv("GALAXY_TEST_FLOAT", "0.25")
	t.Setenv("GALAXY_TEST_DURATION", "150ms")
	t.Setenv("GALAXY_TEST_BROKEN", "not-a-number")

	assert.Equal(t, 42, GetEnvInt("GALAXY_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("GALAXY_TEST_BROKEN", 1))
	assert.InDelta(t, 0.25, GetEnvFloat("GALAXY_TEST_FLOAT", 1), 1e-12)
	assert.InDelta(t, 3.5, GetEnvFloat("GALAXY_TEST_BROKEN", 3.5), 1e-12)
	assert.Equal(t, 150*time.Millisecond, GetEnvDuration("GALAXY_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("GALAXY_TEST_BROKEN", time.Second))
}
