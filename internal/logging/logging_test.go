package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewSetsLevel(t *testing.T) {
	l := New(Config{Level: LevelDebug, Format: "text"})
	assert.Equal(t, logrus.DebugLevel, l.Level)
}

func TestRunLoggerCarriesInstanceID(t *testing.T) {
	base := New(DefaultConfig())
	rl := NewRunLogger(base, "inst-1")
	entry := rl.WithScan(7)
	assert.Equal(t, "inst-1", entry.Data["instance_id"])
	assert.Equal(t, uint64(7), entry.Data["scan_id"])
}
