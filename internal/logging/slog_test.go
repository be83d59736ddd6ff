package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func TestJSONLogger_LevelsAndAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, slog.LevelDebug)
	ctx := context.Background()

	log.Debug(ctx, "token decoded", "jti", "abc")
	log.Info(ctx, "login succeeded", "event", "LoginSuccess")
	log.Warn(ctx, "login failed", "event", "LoginFailedInvalidPassword")
	log.Error(ctx, "refresh failed", "event", "TokenRefreshError")

	recs := records(t, &buf)
	require.Len(t, recs, 4)

	want := []struct{ level, msg, key, val string }{
		{"DEBUG", "token decoded", "jti", "abc"},
		{"INFO", "login succeeded", "event", "LoginSuccess"},
		{"WARN", "login failed", "event", "LoginFailedInvalidPassword"},
		{"ERROR", "refresh failed", "event", "TokenRefreshError"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, recs[i]["level"])
		assert.Equal(t, w.msg, recs[i]["msg"])
		assert.Equal(t, w.val, recs[i][w.key])
	}
}

func TestJSONLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, slog.LevelWarn)

	log.Info(context.Background(), "login attempt", "event", "LoginAttempt")
	log.Warn(context.Background(), "unknown user", "event", "LoginFailedInvalidUser")

	recs := records(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "LoginFailedInvalidUser", recs[0]["event"])
}

func TestWith_ChildCarriesModule(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, slog.LevelInfo)
	child := parent.With("module", "session")

	child.Info(context.Background(), "logout", "user_id", "7")
	parent.Info(context.Background(), "startup")

	recs := records(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "session", recs[0]["module"])
	assert.Equal(t, "7", recs[0]["user_id"])
	assert.NotContains(t, recs[1], "module", "parent must stay untouched")
}

func TestDiscard_ImplementsLogger(t *testing.T) {
	var l Logger = Discard()
	l.With("module", "test").Error(context.Background(), "dropped")
}
