package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNopSinks(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Debugf("dropped %s", "x")
		OrNop(nil).Debugf("dropped %d", 1)
		FromZap(nil).Debugf("dropped")
	})
}

func TestFromZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := FromZap(zap.New(core).Sugar())

	sink.Debugf("class '%s' not mapped", "bicycle")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.Equal(t, "class 'bicycle' not mapped", entries[0].Message)
	}
}

func TestOrNopKeepsSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := OrNop(FromZap(zap.New(core).Sugar()))
	sink.Debugf("kept")
	assert.Equal(t, 1, logs.Len())
}
