package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tgscenario/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestActorIDs(t *testing.T) {
	user := logger.UserID(123)
	require.Equal(t, "user_id", user.Key)
	assert.Equal(t, int64(123), user.Value.Int64())

	chat := logger.ChatID(-100)
	require.Equal(t, "chat_id", chat.Key)
	assert.Equal(t, int64(-100), chat.Value.Int64())

	assert.True(t, logger.UserID(0).Equal(slog.Attr{}))
	assert.True(t, logger.ChatID(0).Equal(slog.Attr{}))
}

func TestTransition(t *testing.T) {
	attr := logger.Transition("menu", "ask_name")
	require.Equal(t, "transition", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "menu", g[0].Value.String())
	assert.Equal(t, "ask_name", g[1].Value.String())
}

func TestStateAndSignal(t *testing.T) {
	assert.Equal(t, "state", logger.State("menu").Key)
	assert.Equal(t, "signal", logger.Signal("start").Key)
	assert.Equal(t, "component", logger.Component("fsm").Key)
}
