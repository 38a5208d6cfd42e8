package backends

import (
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/intentor/anlog/internal/metrics"
	"github.com/intentor/anlog/pkg/types"
)

// DefaultNATSSubject is the subject lines are published on when none is set.
const DefaultNATSSubject = "anlog.events"

// natsTarget publishes each line as one message.
type natsTarget struct {
	conn    *nats.Conn
	subject string
}

func (t *natsTarget) WriteLine(line string) (int, error) {
	if err := t.conn.Publish(t.subject, []byte(line)); err != nil {
		return 0, errors.Wrap(err, "publish")
	}
	return len(line), nil
}

// Path returns <server>/<subject>, or the subject alone while disconnected.
func (t *natsTarget) Path() string {
	if url := t.conn.ConnectedUrlRedacted(); url != "" {
		return url + "/" + t.subject
	}
	return t.subject
}

// Close flushes pending messages and closes the connection.
func (t *natsTarget) Close() error {
	if t.conn.IsClosed() {
		return nil
	}
	defer t.conn.Close()
	if err := t.conn.FlushTimeout(5 * time.Second); err != nil {
		return errors.Wrap(err, "flush")
	}
	return nil
}

// NATSSink publishes rendered lines to a NATS subject. Publishing is
// buffered by the client; wrap the sink in an AsyncSink to keep slow
// networks off the caller's goroutine.
type NATSSink struct {
	*sinkBase

	mu      sync.Mutex
	target  *natsTarget
	closed  bool
	subject string
}

// NewNATSSink connects to url and returns a sink publishing on subject.
// The client reconnects forever; lines published while disconnected are
// buffered by the client.
func NewNATSSink(url, subject string, opts ...Option) (*NATSSink, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if subject == "" {
		subject = DefaultNATSSubject
	}

	s := &NATSSink{
		sinkBase: newSinkBase("nats", opts, nil),
		subject:  subject,
	}

	conn, err := nats.Connect(url,
		nats.Name("anlog-"+s.name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				s.report("connect", url, "Disconnected from NATS", err, types.ErrorLevelMedium)
			}
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			s.report("publish", url, "NATS async error", err, types.ErrorLevelMedium)
		}))
	if err != nil {
		return nil, errors.Wrapf(err, "connect to NATS at %s", url)
	}

	s.target = &natsTarget{conn: conn, subject: subject}
	return s, nil
}

// Write renders ev and publishes it.
func (s *NATSSink) Write(ev types.Event) {
	if !s.Allows(ev.Level) {
		return
	}
	defer s.recoverWrite(s.subject)

	line := s.formatter.Format(ev)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.metrics.TrackDropped(metrics.DropClosed)
		return
	}
	s.writeLine(s.target, line)
}

// Subject returns the subject lines are published on.
func (s *NATSSink) Subject() string {
	return s.subject
}

// Close flushes pending messages and closes the connection.
func (s *NATSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.target.Close()
}
