package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/sim800l/modem"
)

func newTestServer(t *testing.T, transport *modem.TestTransport) *Server {
	t.Helper()
	return &Server{
		Logger:  slog.New(slog.DiscardHandler),
		Gateway: newTestGateway(t, transport),
	}
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServerStatus(t *testing.T) {
	transport := modem.NewTestTransport().Reply(
		"+CSQ: 20,0\r\nOK\r\n",
		"+CBC: 0,50,3900\r\nOK\r\n",
		"+CREG: 0,5\r\nOK\r\n",
		"+COPS: 0,0,\"Play\"\r\nOK\r\n",
		"+CFUN: 1\r\nOK\r\n",
		"+CSCLK: 2\r\nOK\r\n",
	)
	s := newTestServer(t, transport)

	rec := serve(s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 20, got.Signal)
	assert.Equal(t, 3900, got.BatteryVoltage)
	assert.Equal(t, "0,5", got.Registration)
	assert.Equal(t, 2, got.Sleep)
	assert.Empty(t, got.Errors)
}

func TestServerSMS(t *testing.T) {
	t.Run("Invalid JSON is rejected", func(t *testing.T) {
		s := newTestServer(t, modem.NewTestTransport())

		rec := serve(s, http.MethodPost, "/sms", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Missing fields are rejected", func(t *testing.T) {
		transport := modem.NewTestTransport()
		s := newTestServer(t, transport)

		rec := serve(s, http.MethodPost, "/sms", `{"to":"+48501501501"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), errMissingFields.Error())
		assert.Empty(t, transport.Writes())
	})

	t.Run("Sends the message and returns its id", func(t *testing.T) {
		transport := modem.NewTestTransport().Reply("OK\r\n", "> ", "", "+CMGS: 3\r\nOK\r\n")
		s := newTestServer(t, transport)

		rec := serve(s, http.MethodPost, "/sms", `{"to":"+48501501501","message":"Hi","id":"abc"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":"abc"}`, rec.Body.String())
		assert.Equal(t, []string{
			"AT+CMGF=1\r\n",
			`AT+CMGS="+48501501501"` + "\r\n",
			"Hi",
			"\x1a",
		}, transport.Writes())
	})

	t.Run("Modem failure is a server error", func(t *testing.T) {
		s := newTestServer(t, modem.NewTestTransport().Reply("ERROR\r\n"))

		rec := serve(s, http.MethodPost, "/sms", `{"to":"+48501501501","message":"Hi"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("GET is not routed", func(t *testing.T) {
		s := newTestServer(t, modem.NewTestTransport())

		rec := serve(s, http.MethodGet, "/sms", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestServerControl(t *testing.T) {
	t.Run("Functionality requires a mode", func(t *testing.T) {
		transport := modem.NewTestTransport()
		s := newTestServer(t, transport)

		rec := serve(s, http.MethodPost, "/functionality", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, transport.Writes())
	})

	t.Run("Functionality sets the level", func(t *testing.T) {
		transport := modem.NewTestTransport().Reply("OK\r\n")
		s := newTestServer(t, transport)

		rec := serve(s, http.MethodPost, "/functionality", `{"mode":0}`)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"AT+CFUN=0\r\n"}, transport.Writes())
	})

	t.Run("Sleep enables the slow clock", func(t *testing.T) {
		transport := modem.NewTestTransport().Reply("OK\r\n")
		s := newTestServer(t, transport)

		rec := serve(s, http.MethodPost, "/sleep", `{"enabled":true}`)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"AT+CSCLK=2\r\n"}, transport.Writes())
	})

	t.Run("Power off accepts the power down notice", func(t *testing.T) {
		transport := modem.NewTestTransport().Reply("NORMAL POWER DOWN\r\n")
		s := newTestServer(t, transport)

		rec := serve(s, http.MethodPost, "/power-off", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"AT+CPOWD=1\r\n"}, transport.Writes())
	})

	t.Run("Silent modem is a server error", func(t *testing.T) {
		s := newTestServer(t, modem.NewTestTransport())

		rec := serve(s, http.MethodPost, "/sleep", `{"enabled":false}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), modem.ErrTimeout.Error())
	})
}
