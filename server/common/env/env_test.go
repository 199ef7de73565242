package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	t.Setenv("PORTAL_TEST_STR", "  value  ")
	assert.Equal(t, "value", String("PORTAL_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", String("PORTAL_TEST_MISSING", "fallback"))
}

func TestInt(t *testing.T) {
	t.Setenv("PORTAL_TEST_INT", "42")
	assert.Equal(t, 42, Int("PORTAL_TEST_INT", 7))

	t.Setenv("PORTAL_TEST_INT_BAD", "not-a-number")
	assert.Equal(t, 7, Int("PORTAL_TEST_INT_BAD", 7))

	t.Setenv("PORTAL_TEST_INT_NEG", "-3")
	assert.Equal(t, 7, Int("PORTAL_TEST_INT_NEG", 7))
}

func TestBool(t *testing.T) {
	t.Setenv("PORTAL_TEST_BOOL", "true")
	assert.True(t, Bool("PORTAL_TEST_BOOL", false))

	t.Setenv("PORTAL_TEST_BOOL_BAD", "yep")
	assert.True(t, Bool("PORTAL_TEST_BOOL_BAD", true))
}

func TestDuration(t *testing.T) {
	t.Setenv("PORTAL_TEST_DUR", "45s")
	assert.Equal(t, 45*time.Second, Duration("PORTAL_TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, Duration("PORTAL_TEST_DUR_MISSING", time.Minute))
}
