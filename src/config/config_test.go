package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestStripePlans(t *testing.T) {
	plans := stripePlans([]string{
		"PATH=/usr/bin",
		"STRIPE_PLAN_pro_monthly=pro",
		"STRIPE_PLAN_team_yearly=team",
		"STRIPE_PLAN_=nameless",
		"STRIPE_PLAN_broken",
	})
	assert.Equal(t, map[string]string{
		"pro_monthly": "pro",
		"team_yearly": "team",
	}, plans)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, loglevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, loglevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, loglevel("not a level"))
}

func TestGetInt64(t *testing.T) {
	t.Setenv("ASSETGATE_TEST_SIZE", "2048")
	assert.EqualValues(t, 2048, getint64("ASSETGATE_TEST_SIZE", 99))
	assert.EqualValues(t, 99, getint64("ASSETGATE_TEST_SIZE_UNSET", 99))
}
