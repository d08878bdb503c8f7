package fifo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/oabot/internal/domain"
	"github.com/bnema/oabot/internal/ports"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"
)

const (
	DefaultPath = "/tmp/oabot"

	fifoMode = 0o666
)

var errNotFIFO = errors.New("path exists and is not a named pipe")

// Channel is a named pipe on the local filesystem. The listener opens it
// read-write, so the pipe always has a writer and reads block instead of
// returning end-of-stream between producers.
type Channel struct {
	path string
}

var _ ports.ControlChannel = (*Channel)(nil)

func NewChannel(path string) *Channel {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}

	return &Channel{path: filepath.Clean(path)}
}

func (c *Channel) Path() string {
	return c.path
}

// Ensure creates the pipe if nothing exists at the path.
func (c *Channel) Ensure() error {
	info, err := os.Stat(c.path)
	if err == nil {
		if info.Mode().Type() != fs.ModeNamedPipe {
			return fmt.Errorf("%w: %s", errNotFIFO, c.path)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat control channel: %w", err)
	}

	if err := unix.Mkfifo(c.path, fifoMode); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("create control channel: %w", err)
	}

	return nil
}

// Open returns a reader over the pipe. The reader reports end-of-stream when
// ctx is cancelled or when the path is removed or no longer names the opened
// pipe, so the caller can recreate and reopen it.
func (c *Channel) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(c.path)
	if err != nil {
		return nil, fmt.Errorf("stat control channel: %w", err)
	}
	if info.Mode().Type() != fs.ModeNamedPipe {
		return nil, fmt.Errorf("%w: %s", errNotFIFO, c.path)
	}

	file, err := os.OpenFile(c.path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open control channel: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("watch control channel: %w", err)
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		_ = watcher.Close()
		_ = file.Close()
		return nil, fmt.Errorf("watch control channel: %w", err)
	}

	r := &reader{file: file, watcher: watcher, watching: make(chan struct{})}
	r.stop = context.AfterFunc(ctx, r.closeFile)
	go r.watch(c.path)

	// The path may have changed between the open and the watch.
	if !samePipe(file, c.path) {
		r.closeFile()
	}

	return r, nil
}

type reader struct {
	file     *os.File
	watcher  *fsnotify.Watcher
	stop     func() bool
	watching chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.file.Read(p)
	if errors.Is(err, os.ErrClosed) {
		return n, io.EOF
	}
	return n, err
}

func (r *reader) Close() error {
	r.stop()
	_ = r.watcher.Close()
	<-r.watching
	r.closeFile()
	return r.closeErr
}

func (r *reader) closeFile() {
	r.closeOnce.Do(func() {
		r.closeErr = r.file.Close()
	})
}

// watch closes the file once path stops naming it. Watcher errors, including
// queue overflows, trigger the same check since events may have been lost.
func (r *reader) watch(path string) {
	defer close(r.watching)

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Remove|fsnotify.Rename|fsnotify.Create) == 0 {
				continue
			}
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
		}

		if !samePipe(r.file, path) {
			r.closeFile()
			return
		}
	}
}

func samePipe(file *os.File, path string) bool {
	opened, err := file.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(opened, current)
}

// Send writes one command line to the pipe at path. It fails with
// domain.ErrChannelIO when the pipe is missing or no listener has it open.
func Send(path, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return fmt.Errorf("%w: empty command", domain.ErrChannelIO)
	}
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("%w: command must be a single line", domain.ErrChannelIO)
	}

	file, err := os.OpenFile(NewChannel(path).Path(), os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return fmt.Errorf("%w: no listener on %s", domain.ErrChannelIO, path)
		}
		return fmt.Errorf("%w: open %s: %w", domain.ErrChannelIO, path, err)
	}
	defer file.Close()

	if _, err := io.WriteString(file, line+"\n"); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrChannelIO, path, err)
	}

	return nil
}
