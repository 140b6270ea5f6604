package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/sim800l/modem"
)

func newTestGateway(t *testing.T, transport *modem.TestTransport) *Gateway {
	t.Helper()

	config, err := modem.NewConfigBuilder().
		WithDialer(transport.Dialer()).
		WithClock(modem.NewTestClock()).
		WithLogger(slog.New(slog.DiscardHandler)).
		Build()
	require.NoError(t, err)

	m, err := modem.New(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	return NewGateway(m, slog.New(slog.DiscardHandler))
}

func TestGatewayStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Collects every reading", func(t *testing.T) {
		transport := modem.NewTestTransport().Reply(
			"+CSQ: 15,2\r\nOK\r\n",
			"+CBC: 0,87,4012\r\nOK\r\n",
			"+CREG: 0,1\r\nOK\r\n",
			"+COPS: 0,0,\"Orange PL\"\r\nOK\r\n",
			"+CFUN: 1\r\nOK\r\n",
			"+CSCLK: 0\r\nOK\r\n",
		)
		g := newTestGateway(t, transport)

		s := g.Status(ctx)
		assert.Equal(t, Status{
			Signal:         15,
			SignalPercent:  2,
			BatteryPercent: 87,
			BatteryVoltage: 4012,
			Registration:   "0,1",
			Network:        `Orange PL"`,
			Functionality:  1,
			Sleep:          0,
		}, s)
	})

	t.Run("Failed readings are reported by field", func(t *testing.T) {
		transport := modem.NewTestTransport().Reply(
			"ERROR\r\n",
			"+CBC: 0,87,4012\r\nOK\r\n",
			"+CREG: 0,1\r\nOK\r\n",
			"+COPS: 0,0,\"Orange PL\"\r\nOK\r\n",
			"+CFUN: 1\r\nOK\r\n",
			"+CSCLK: 0\r\nOK\r\n",
		)
		g := newTestGateway(t, transport)

		s := g.Status(ctx)
		assert.Zero(t, s.Signal)
		assert.Equal(t, 87, s.BatteryPercent)
		assert.Len(t, s.Errors, 1)
		assert.Contains(t, s.Errors, "signal")
	})
}

func TestGatewayInfo(t *testing.T) {
	transport := modem.NewTestTransport().Reply(
		"SIM800 R14.18\r\nOK\r\n",
		"89480000000000000000\r\nOK\r\n",
		"+CNUM: \"Home\",\"+48501501501\",145\r\nOK\r\n",
	)
	g := newTestGateway(t, transport)

	info := g.Info(context.Background())
	assert.Equal(t, Info{
		Module:      "SIM800 R14.18",
		CCID:        "89480000000000000000",
		PhoneNumber: "Home",
	}, info)
	assert.Equal(t, []string{"ATI\r\n", "AT+CCID\r\n", "AT+CNUM\r\n"}, transport.Writes())
}

func TestGatewaySendSMS(t *testing.T) {
	ctx := context.Background()

	t.Run("Generates an id when none is given", func(t *testing.T) {
		transport := modem.NewTestTransport().Reply("OK\r\n", "> ", "", "+CMGS: 7\r\nOK\r\n")
		g := newTestGateway(t, transport)

		id, err := g.SendSMS(ctx, SMSRequest{To: "+48501501501", Message: "Hello"})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	})

	t.Run("Keeps the caller's id on failure", func(t *testing.T) {
		transport := modem.NewTestTransport().Reply("ERROR\r\n")
		g := newTestGateway(t, transport)

		id, err := g.SendSMS(ctx, SMSRequest{To: "+48501501501", Message: "Hello", ID: "req-1"})
		assert.ErrorIs(t, err, modem.ErrProtocol)
		assert.Equal(t, "req-1", id)
	})
}
