package domforge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConsoleEmitOrdering(t *testing.T) {
	vc := NewVirtualConsole()
	var order []string
	vc.On("error", func(args ...any) { order = append(order, "first") })
	vc.On("error", func(args ...any) { order = append(order, "second") })

	vc.Emit("error", "x")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestConsoleEmitNoListenersIsNoOp(t *testing.T) {
	vc := NewVirtualConsole()
	assert.NotPanics(t, func() {
		vc.Emit("warn", "nobody listening")
		vc.Emit("made-up-channel", 1, 2, 3)
	})
}

func TestConsoleListenerReceivesArgs(t *testing.T) {
	vc := NewVirtualConsole()
	var got []any
	vc.On("info", func(args ...any) { got = args })

	vc.Emit("info", "a", 1, true)
	assert.Equal(t, []any{"a", 1, true}, got)
}

func TestSendToForwardsChannels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	vc := NewVirtualConsole().SendTo(zap.New(core), nil)

	vc.Emit("error", "broke")
	vc.Emit("warn", "careful")
	vc.Emit("log", "note", 7)
	vc.Emit("debug", "detail")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "broke", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
	assert.Equal(t, "note 7", entries[2].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[3].Level)
}

func TestSendToSynthesizesJSDOMErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	vc := NewVirtualConsole().SendTo(zap.New(core), nil)

	vc.Emit(ChannelJSDOMError, "resource failed")
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "jsdomError: resource failed", entries[0].Message)
}

func TestSendToOmitJSDOMErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	vc := NewVirtualConsole().SendTo(zap.New(core), &SendToOptions{OmitJSDOMErrors: true})

	vc.Emit(ChannelJSDOMError, "dropped")
	vc.Emit("error", "kept")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
}
