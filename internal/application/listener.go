package application

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bnema/oabot/internal/domain"
	"github.com/bnema/oabot/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultIdleDelay     = 250 * time.Millisecond
	DefaultRetryDelay    = time.Second
	DefaultMaxRetryDelay = 30 * time.Second
	DefaultMaxFailures   = 20

	failureLogInterval = 30 * time.Second

	// maxLineLength bounds a control line, newline included. Longer lines are
	// discarded up to the next newline.
	maxLineLength = 4096
)

type ListenerConfig struct {
	Guild    domain.GuildID
	Identity string

	// IdleDelay separates an end-of-stream from the next open. Zero or
	// negative delays fall back to the package defaults.
	IdleDelay     time.Duration
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// MaxFailures consecutive create/open failures trigger the fatal hook.
	// Zero retries forever.
	MaxFailures int
}

func (c *ListenerConfig) applyDefaults() {
	if c.IdleDelay <= 0 {
		c.IdleDelay = DefaultIdleDelay
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxRetryDelay < c.RetryDelay {
		c.MaxRetryDelay = max(DefaultMaxRetryDelay, c.RetryDelay)
	}
	if c.MaxFailures < 0 {
		c.MaxFailures = 0
	}
}

// Listener drains the control channel in a single background loop. Start may
// be called any number of times from any goroutine; only the first call
// spawns the loop.
type Listener struct {
	channel    ports.ControlChannel
	vocabulary ports.Vocabulary
	executor   *Executor
	cfg        ListenerConfig
	logger     *zap.Logger
	onFatal    func(error)

	running   atomic.Bool
	done      chan struct{}
	ensureLog rate.Sometimes
	openLog   rate.Sometimes
	readLog   rate.Sometimes
}

func NewListener(channel ports.ControlChannel, vocabulary ports.Vocabulary, executor *Executor, cfg ListenerConfig, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	return &Listener{
		channel:    channel,
		vocabulary: vocabulary,
		executor:   executor,
		cfg:        cfg,
		logger:     logger.With(zap.String("path", channel.Path())),
		onFatal:    func(error) {},
		done:       make(chan struct{}),
		ensureLog:  rate.Sometimes{First: 1, Interval: failureLogInterval},
		openLog:    rate.Sometimes{First: 1, Interval: failureLogInterval},
		readLog:    rate.Sometimes{First: 1, Interval: failureLogInterval},
	}
}

// OnFatal registers the escalation hook invoked when the channel cannot be
// opened MaxFailures times in a row. It must be set before Start.
func (l *Listener) OnFatal(fn func(error)) {
	if fn != nil {
		l.onFatal = fn
	}
}

// Start spawns the read loop unless it is already running and reports whether
// this call started it. The loop stops only when ctx is cancelled or the
// fatal hook fires.
func (l *Listener) Start(ctx context.Context) bool {
	if !l.running.CompareAndSwap(false, true) {
		return false
	}

	l.logger.Info("control channel listener started")
	go l.run(ctx)
	return true
}

func (l *Listener) Running() bool {
	return l.running.Load()
}

// Done is closed when a started loop has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	failures := 0
	for {
		opened, err := l.drain(ctx)
		if ctx.Err() != nil {
			l.logger.Info("control channel listener stopped")
			return
		}

		delay := l.cfg.IdleDelay
		switch {
		case !opened:
			failures++
			l.openLog.Do(func() {
				l.logger.Warn("control channel unavailable", zap.Int("failures", failures), zap.Error(err))
			})
			if l.cfg.MaxFailures > 0 && failures >= l.cfg.MaxFailures {
				l.logger.Error("control channel listener giving up", zap.Int("failures", failures), zap.Error(err))
				l.onFatal(fmt.Errorf("control channel %s could not be opened %d times in a row: %w", l.channel.Path(), failures, err))
				return
			}
			delay = retryDelay(l.cfg.RetryDelay, l.cfg.MaxRetryDelay, failures)
		case err != nil:
			failures = 0
			l.readLog.Do(func() {
				l.logger.Warn("control channel read failed", zap.Error(err))
			})
		default:
			failures = 0
		}

		if !sleepContext(ctx, delay) {
			l.logger.Info("control channel listener stopped")
			return
		}
	}
}

// drain runs one ensure/open/read cycle and reports whether the channel was
// opened. Only failures before the open count toward escalation.
func (l *Listener) drain(ctx context.Context) (bool, error) {
	if err := l.channel.Ensure(); err != nil {
		l.ensureLog.Do(func() {
			l.logger.Warn("create control channel failed", zap.Error(err))
		})
	}

	reader, err := l.channel.Open(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: open %s: %w", domain.ErrChannelIO, l.channel.Path(), err)
	}
	defer reader.Close()

	if err := l.readLines(ctx, reader); err != nil && ctx.Err() == nil {
		return true, fmt.Errorf("%w: read %s: %w", domain.ErrChannelIO, l.channel.Path(), err)
	}

	return true, nil
}

// readLines dispatches newline-terminated lines until end-of-stream. Lines
// longer than maxLineLength are dropped whole.
func (l *Listener) readLines(ctx context.Context, r io.Reader) error {
	buffered := bufio.NewReaderSize(r, maxLineLength)
	oversized := false
	for {
		chunk, err := buffered.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if !oversized {
				l.logger.Debug("ignoring oversized control line")
			}
			oversized = true
			continue
		}
		if len(chunk) > 0 && !oversized && ctx.Err() == nil {
			l.handleLine(ctx, string(bytes.TrimRight(chunk, "\r\n")))
		}
		oversized = false

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (l *Listener) handleLine(ctx context.Context, line string) {
	command, ok := ParseControlLine(l.vocabulary, line)
	if !ok {
		if strings.TrimSpace(line) != "" {
			l.logger.Debug("ignoring control line", zap.String("line", line))
		}
		return
	}

	if err := l.executor.Execute(ctx, l.cfg.Guild, l.cfg.Identity, command); err != nil {
		l.logger.Warn("control command failed",
			zap.String("line", line),
			zap.Stringer("command", command),
			zap.Error(err),
		)
		return
	}

	l.logger.Info("control command applied", zap.Stringer("command", command))
}

func retryDelay(base, limit time.Duration, failures int) time.Duration {
	delay := base
	for i := 1; i < failures && delay < limit; i++ {
		delay *= 2
	}
	return min(delay, limit)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
