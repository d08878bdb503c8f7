package fifo

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/oabot/internal/application"
	"github.com/bnema/oabot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestChannelEnsureCreatesNamedPipe(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "oabot")
	channel := NewChannel(path)

	require.NoError(t, channel.Ensure())
	require.NoError(t, channel.Ensure())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.ModeNamedPipe, info.Mode().Type())
}

func TestChannelRejectsRegularFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "oabot")
	require.NoError(t, os.WriteFile(path, []byte("afk\n"), 0o600))
	channel := NewChannel(path)

	require.ErrorIs(t, channel.Ensure(), errNotFIFO)
	_, err := channel.Open(context.Background())
	require.ErrorIs(t, err, errNotFIFO)
}

func TestChannelOpenFailsWhenMissing(t *testing.T) {
	t.Parallel()

	channel := NewChannel(filepath.Join(t.TempDir(), "missing"))

	_, err := channel.Open(context.Background())
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestNewChannelDefaultsPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultPath, NewChannel(" ").Path())
}

func TestSendDeliversLineToOpenReader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "oabot")
	channel := NewChannel(path)
	require.NoError(t, channel.Ensure())

	reader, err := channel.Open(context.Background())
	require.NoError(t, err)
	defer reader.Close()

	require.NoError(t, Send(path, " afk "))
	require.NoError(t, Send(path, "core"))

	scanner := bufio.NewScanner(reader)
	require.True(t, scanner.Scan())
	assert.Equal(t, "afk", scanner.Text())
	require.True(t, scanner.Scan())
	assert.Equal(t, "core", scanner.Text())
}

func TestSendFailsWithoutListener(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "oabot")
	require.NoError(t, NewChannel(path).Ensure())

	err := Send(path, "afk")
	require.ErrorIs(t, err, domain.ErrChannelIO)
	assert.ErrorContains(t, err, "no listener")

	err = Send(filepath.Join(t.TempDir(), "missing"), "afk")
	require.ErrorIs(t, err, domain.ErrChannelIO)

	require.ErrorIs(t, Send(path, ""), domain.ErrChannelIO)
	require.ErrorIs(t, Send(path, "afk\ncore"), domain.ErrChannelIO)
}

func TestOpenReaderUnblocksOnCancel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "oabot")
	channel := NewChannel(path)
	require.NoError(t, channel.Ensure())

	ctx, cancel := context.WithCancel(context.Background())
	reader, err := channel.Open(ctx)
	require.NoError(t, err)
	defer reader.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(io.Discard, reader)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("read did not unblock after cancel")
	}
}

func startPipeListener(t *testing.T, path string, cfg application.ListenerConfig) (*application.Listener, *recordingActions) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	actions := &recordingActions{}
	executor := application.NewExecutor(staticDirectory{}, actions, logger)
	cfg.Guild = "guild-1"
	cfg.Identity = "oabot"
	cfg.IdleDelay = time.Millisecond
	listener := application.NewListener(NewChannel(path), domain.DefaultVocabulary(), executor, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, listener.Start(ctx))
	t.Cleanup(func() {
		cancel()
		select {
		case <-listener.Done():
		case <-time.After(5 * time.Second):
			t.Error("listener did not stop")
		}
	})

	return listener, actions
}

func TestListenerCreatesPipeAndExecutesAppendedLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "oabot")
	_, actions := startPipeListener(t, path, application.ListenerConfig{})

	require.Eventually(t, func() bool {
		return Send(path, "afk") == nil
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return len(actions.calls()) == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	calls := actions.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "oabot", calls[0].member.Name)
	assert.Equal(t, "AFK", calls[0].room.Name)
}

func TestListenerSkipsOversizedLinesWithoutEscalating(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "oabot")
	listener, actions := startPipeListener(t, path, application.ListenerConfig{MaxFailures: 2})
	fatal := make(chan error, 1)
	listener.OnFatal(func(err error) { fatal <- err })

	require.Eventually(t, func() bool {
		return Send(path, "afk") == nil
	}, 5*time.Second, 10*time.Millisecond)

	oversized := strings.Repeat("x", 70*1024) + "\n"
	for i := 0; i < 3; i++ {
		writeRaw(t, path, oversized+"afk"+oversized)
		require.NoError(t, Send(path, "afk"))
	}
	writeRaw(t, path, "core\n")

	require.Eventually(t, func() bool { return len(actions.calls()) == 5 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Core", actions.calls()[4].room.Name)
	assert.Empty(t, fatal)
	assert.True(t, listener.Running())
	select {
	case <-listener.Done():
		t.Fatal("listener stopped")
	default:
	}
}

func TestListenerRecreatesRemovedPipe(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "oabot")
	_, actions := startPipeListener(t, path, application.ListenerConfig{})

	require.Eventually(t, func() bool {
		return Send(path, "afk") == nil
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(actions.calls()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		return Send(path, "core") == nil
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(actions.calls()) == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Core", actions.calls()[1].room.Name)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.ModeNamedPipe, info.Mode().Type())
}

func TestOpenReaderEndsWhenPathChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		change func(t *testing.T, path string)
	}{
		{
			name: "removed",
			change: func(t *testing.T, path string) {
				require.NoError(t, os.Remove(path))
			},
		},
		{
			name: "replaced by regular file",
			change: func(t *testing.T, path string) {
				tmp := path + ".tmp"
				require.NoError(t, os.WriteFile(tmp, []byte("afk\n"), 0o600))
				require.NoError(t, os.Rename(tmp, path))
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "oabot")
			channel := NewChannel(path)
			require.NoError(t, channel.Ensure())

			reader, err := channel.Open(context.Background())
			require.NoError(t, err)
			defer reader.Close()

			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = io.Copy(io.Discard, reader)
			}()

			tt.change(t, path)
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("read did not end after the path changed")
			}
		})
	}
}

func writeRaw(t *testing.T, path, data string) {
	t.Helper()

	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer file.Close()

	_, err = io.WriteString(file, data)
	require.NoError(t, err)
}

type staticDirectory struct{}

func (staticDirectory) ResolveRoom(_ context.Context, _ domain.GuildID, name string) (domain.RoomRef, error) {
	switch name {
	case "AFK", "Core":
		return domain.RoomRef{ID: domain.RoomID("room-" + name), Name: name}, nil
	}
	return domain.RoomRef{}, domain.ErrRoomNotFound
}

func (staticDirectory) ResolveMember(_ context.Context, _ domain.GuildID, name string) (domain.MemberRef, error) {
	if name != "oabot" {
		return domain.MemberRef{}, domain.ErrMemberNotFound
	}
	return domain.MemberRef{ID: "9", Name: name}, nil
}

func (staticDirectory) MembersInRoom(context.Context, domain.GuildID, domain.RoomRef) ([]domain.MemberRef, error) {
	return nil, nil
}

type recordedMove struct {
	member domain.MemberRef
	room   domain.RoomRef
}

type recordingActions struct {
	mu    sync.Mutex
	moves []recordedMove
}

func (a *recordingActions) MoveMember(_ context.Context, _ domain.GuildID, member domain.MemberRef, room domain.RoomRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.moves = append(a.moves, recordedMove{member: member, room: room})
	return nil
}

func (a *recordingActions) SetMemberMute(context.Context, domain.GuildID, domain.MemberRef, bool) error {
	return nil
}

func (a *recordingActions) calls() []recordedMove {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]recordedMove(nil), a.moves...)
}
