package backends

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/intentor/anlog/internal/testing"
	"github.com/intentor/anlog/pkg/types"
)

func TestNATSSinkConnectFailure(t *testing.T) {
	_, err := NewNATSSink("nats://127.0.0.1:1", "")
	assert.Error(t, err, "an unreachable server is a configuration error")
}

func TestNATSSinkPublishes(t *testing.T) {
	testhelpers.SkipIfUnit(t, "NATS integration test requires ANLOG_RUN_INTEGRATION_TESTS=true and a server at NATS_URL")

	url := testhelpers.NATSURL()
	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	const subject = "anlog.test.publish"
	msgs := make(chan *nats.Msg, 16)
	subscription, err := sub.ChanSubscribe(subject, msgs)
	require.NoError(t, err)
	defer subscription.Unsubscribe()
	require.NoError(t, sub.Flush())

	sink, err := NewNATSSink(url, subject, WithMinimumLevel(types.LevelPtr(types.LevelInfo)))
	require.NoError(t, err)
	assert.Equal(t, subject, sink.Subject())

	sink.Write(event(types.LevelDebug, testTime, "k", "dropped"))
	ev := event(types.LevelWarn, testTime, "k", "v")
	sink.Write(ev)
	require.NoError(t, sink.Close())

	select {
	case msg := <-msgs:
		assert.Equal(t, render(ev), string(msg.Data))
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}

	select {
	case msg := <-msgs:
		t.Fatalf("unexpected message %q", msg.Data)
	case <-time.After(100 * time.Millisecond):
	}
}
