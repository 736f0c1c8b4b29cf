// Package poller runs the poll, validate, translate and notify cycle.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"homeworkbot/internal/homework"
	logx "homeworkbot/pkg/logx"
)

// ErrorReportPrefix starts every error report sent to the chat.
const ErrorReportPrefix = "Bot failure: "

// Fetcher returns the raw API answer for changes since a unix timestamp.
type Fetcher interface {
	Fetch(ctx context.Context, since int64) (any, error)
}

// Sender delivers one message to the chat.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Ticker blocks until the next cycle is due.
type Ticker interface {
	Wait(ctx context.Context) error
}

type Option func(*Loop)

// WithClock overrides the clock used for the initial cursor.
func WithClock(now func() time.Time) Option { return func(l *Loop) { l.now = now } }

// WithCycleHook registers fn to be called after every cycle run by Run.
func WithCycleHook(fn func(Outcome)) Option {
	return func(l *Loop) { l.hooks = append(l.hooks, fn) }
}

// Loop owns the cursor and the two dedup slots.
// It is not safe for concurrent use: exactly one goroutine drives it.
type Loop struct {
	log   logx.Logger
	fetch Fetcher
	send  Sender
	tick  Ticker
	now   func() time.Time
	hooks []func(Outcome)

	cursor int64
	status slot
	errs   slot
}

func New(fetch Fetcher, send Sender, tick Ticker, log logx.Logger, opts ...Option) *Loop {
	if log.IsZero() {
		log = logx.Nop()
	}
	l := &Loop{log: log, fetch: fetch, send: send, tick: tick, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	l.cursor = l.now().Unix()
	return l
}

// Cursor returns the timestamp the next fetch will ask from.
func (l *Loop) Cursor() int64 { return l.cursor }

// Run polls until ctx is cancelled, waiting on the ticker between cycles.
// It returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("poll loop started", logx.Int64("cursor", l.cursor))
	defer func() { l.log.Info("poll loop stopped", logx.Int64("cursor", l.cursor)) }()

	for {
		out := l.RunOnce(ctx)
		for _, fn := range l.hooks {
			fn(out)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.tick.Wait(ctx); err != nil {
			return err
		}
	}
}

// RunOnce runs one cycle. Any failure is folded into the returned Outcome;
// the cursor only moves when the whole cycle succeeded.
func (l *Loop) RunOnce(ctx context.Context) Outcome {
	log := l.log.With(logx.String("cycle", xid.New().String()))
	start := time.Now()

	out, err := l.poll(ctx, log)
	if err != nil {
		out = l.fail(ctx, log, err)
	}
	out.Cursor = l.cursor
	out.Took = time.Since(start)
	return out
}

func (l *Loop) poll(ctx context.Context, log logx.Logger) (Outcome, error) {
	since := l.cursor
	if since <= 0 {
		since = l.now().Unix()
	}
	log.Debug("cycle started", logx.Int64("from_date", since))

	raw, err := l.fetch.Fetch(ctx, since)
	if err != nil {
		return Outcome{}, err
	}

	batch, err := homework.Check(raw)
	if err != nil {
		log.Error("API answer rejected", logx.Err(err))
		return Outcome{}, err
	}
	if len(batch.Homeworks) == 0 {
		log.Warn("no new homework under review")
		return Outcome{}, homework.ErrNoNewHomework
	}

	msg, err := homework.Translate(batch.Homeworks[0])
	if err != nil {
		log.Error("homework record rejected", logx.Err(err))
		return Outcome{}, err
	}

	out := Outcome{Kind: NoChange, Message: msg}
	if l.status.changed(msg) {
		if err := l.send.Send(ctx, msg); err != nil {
			return Outcome{}, err
		}
		l.status.commit(msg)
		out.Kind = Delivered
		out.Notified = true
		log.Info("status update delivered")
	} else {
		log.Debug("homework status unchanged")
	}

	l.cursor = batch.CurrentDate
	log.Debug("cursor advanced", logx.Int64("cursor", l.cursor))
	return out, nil
}

func (l *Loop) fail(ctx context.Context, log logx.Logger, err error) Outcome {
	out := Outcome{
		Kind:    Failed,
		Message: fmt.Sprintf("%s%v", ErrorReportPrefix, err),
		Err:     err,
		Cursor:  l.cursor,
	}
	if errors.Is(err, homework.ErrNoNewHomework) {
		out.Kind = NoNewAssignment
	}

	if ctx.Err() != nil {
		log.Warn("cycle interrupted", logx.Err(err))
		return out
	}
	log.Error("poll cycle failed", logx.String("kind", FailureKind(err)), logx.Err(err))

	if !l.errs.changed(out.Message) {
		log.Debug("error report unchanged; not sending")
		return out
	}
	if serr := l.send.Send(ctx, out.Message); serr != nil {
		log.Error("error report delivery failed", logx.Err(serr))
		out.NotifyErr = serr
		return out
	}
	l.errs.commit(out.Message)
	out.Notified = true
	log.Info("error report delivered")
	return out
}
