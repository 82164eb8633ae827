package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPurgeInterval_NeverBelowAMinute(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 6*time.Hour, purgeInterval(24*time.Hour))
	assert.Equal(t, time.Minute, purgeInterval(4*time.Minute))
	assert.Equal(t, time.Minute, purgeInterval(2*time.Minute))
	assert.Equal(t, time.Minute, purgeInterval(0))
}
