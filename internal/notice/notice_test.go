package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecorderKeepsMostRecent(t *testing.T) {
	r := NewRecorder(2)
	r.Notify(Notice{Level: LevelInfo, Message: "one"})
	r.Notify(Notice{Level: LevelError, Message: "two"})
	r.Notify(Notice{Level: LevelSuccess, Message: "three"})

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "two", all[0].Message)
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "three", last.Message)
	assert.Equal(t, 1, r.Count(LevelError))

	r.Reset()
	_, ok = r.Last()
	assert.False(t, ok)
}

func TestMultiAndLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := NewRecorder(0)
	n := Multi(rec, nil, NewLogNotifier(zap.New(core)))

	n.Notify(Notice{Level: LevelError, Message: "save failed", Detail: "boom", At: time.Now()})
	n.Notify(Notice{Level: LevelWarning, Message: "careful"})
	n.Notify(Notice{Level: LevelSuccess, Message: "saved"})

	assert.Len(t, rec.All(), 3)
	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "boom", entries[0].ContextMap()["detail"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
}

func TestNoticeString(t *testing.T) {
	assert.Equal(t, "error: save failed (boom)", Notice{Level: LevelError, Message: "save failed", Detail: "boom"}.String())
	assert.Equal(t, "success: saved", Notice{Level: LevelSuccess, Message: "saved"}.String())
	Discard.Notify(Notice{})
	NewLogNotifier(nil).Notify(Notice{Level: LevelInfo, Message: "quiet"})
}
