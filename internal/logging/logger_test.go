package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerUsesEnvLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logger := NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok, "expected JSON formatter")
}

func TestNewLoggerWithServiceTagsEntries(t *testing.T) {
	logger := NewLoggerWithService("neutron-agent")
	entry, ok := logger.(*logrus.Entry)
	if !assert.True(t, ok) {
		return
	}

	hook := test.NewLocal(entry.Logger)
	logger.Info("hello")

	last := hook.LastEntry()
	if assert.NotNil(t, last) {
		assert.Equal(t, "neutron-agent", last.Data["service"])
	}
}
