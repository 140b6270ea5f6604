package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/sim800l/modem"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	payload []byte
}

// recordingClient captures publications. Methods the bridge does not use
// panic through the nil embedded interface.
type recordingClient struct {
	mqtt.Client
	mu        sync.Mutex
	sent      []published
	onPublish func()
}

func (c *recordingClient) Publish(topic string, _ byte, _ bool, payload any) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{topic: topic, payload: payload.([]byte)})
	if c.onPublish != nil {
		c.onPublish()
	}
	return doneToken{}
}

func (c *recordingClient) published() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.sent...)
}

type message struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m message) Topic() string   { return m.topic }
func (m message) Payload() []byte { return m.payload }

func newTestBridge(t *testing.T, transport *modem.TestTransport) *MQTTBridge {
	t.Helper()
	return &MQTTBridge{
		Logger:  slog.New(slog.DiscardHandler),
		Gateway: newTestGateway(t, transport),
		Config:  MQTTConfig{Topic: "sim800l", Interval: time.Hour},
	}
}

func TestMQTTHandleSMS(t *testing.T) {
	ctx := context.Background()

	t.Run("Publishes the result of a sent message", func(t *testing.T) {
		transport := modem.NewTestTransport().Reply("OK\r\n", "> ", "", "+CMGS: 9\r\nOK\r\n")
		b := newTestBridge(t, transport)
		client := &recordingClient{}

		b.handleSMS(ctx, client, message{
			topic:   "sim800l/sms",
			payload: []byte(`{"to":"+48501501501","message":"Hi","id":"m-1"}`),
		})

		sent := client.published()
		require.Len(t, sent, 1)
		assert.Equal(t, "sim800l/sms/result", sent[0].topic)
		assert.JSONEq(t, `{"id":"m-1"}`, string(sent[0].payload))
	})

	t.Run("Reports modem errors", func(t *testing.T) {
		b := newTestBridge(t, modem.NewTestTransport().Reply("ERROR\r\n"))
		client := &recordingClient{}

		b.handleSMS(ctx, client, message{
			topic:   "sim800l/sms",
			payload: []byte(`{"to":"+48501501501","message":"Hi","id":"m-2"}`),
		})

		sent := client.published()
		require.Len(t, sent, 1)
		var result SMSResult
		require.NoError(t, json.Unmarshal(sent[0].payload, &result))
		assert.Equal(t, "m-2", result.ID)
		assert.NotEmpty(t, result.Error)
	})

	t.Run("Rejects requests without a recipient", func(t *testing.T) {
		transport := modem.NewTestTransport()
		b := newTestBridge(t, transport)
		client := &recordingClient{}

		b.handleSMS(ctx, client, message{payload: []byte(`{"message":"Hi"}`)})

		sent := client.published()
		require.Len(t, sent, 1)
		assert.Contains(t, string(sent[0].payload), errMissingFields.Error())
		assert.Empty(t, transport.Writes())
	})

	t.Run("Ignores malformed payloads", func(t *testing.T) {
		b := newTestBridge(t, modem.NewTestTransport())
		client := &recordingClient{}

		b.handleSMS(ctx, client, message{payload: []byte("not json")})

		assert.Empty(t, client.published())
	})
}

func TestMQTTPublishLoop(t *testing.T) {
	transport := modem.NewTestTransport().Reply(
		"+CSQ: 15,2\r\nOK\r\n",
		"+CBC: 0,87,4012\r\nOK\r\n",
		"+CREG: 0,1\r\nOK\r\n",
		"+COPS: 0,0,\"Orange PL\"\r\nOK\r\n",
		"+CFUN: 1\r\nOK\r\n",
		"+CSCLK: 0\r\nOK\r\n",
	)
	b := newTestBridge(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &recordingClient{onPublish: cancel}
	require.NoError(t, b.publishLoop(ctx, client))

	sent := client.published()
	require.Len(t, sent, 1)
	assert.Equal(t, "sim800l/status", sent[0].topic)

	var status Status
	require.NoError(t, json.Unmarshal(sent[0].payload, &status))
	assert.Equal(t, 15, status.Signal)
	assert.Equal(t, "0,1", status.Registration)
}

func TestMQTTOptions(t *testing.T) {
	b := &MQTTBridge{
		Logger: slog.New(slog.DiscardHandler),
		Config: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "gw-1",
			Username: "user",
			Password: "secret",
		},
	}

	opts := b.options(context.Background())
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "localhost:1883", opts.Servers[0].Host)
	assert.Equal(t, "gw-1", opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.True(t, opts.AutoReconnect)
}
