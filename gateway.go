package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"i4.energy/across/sim800l/modem"
)

// Gateway owns the modem on behalf of the HTTP and MQTT front ends. The
// driver is not safe for concurrent use, so every exchange goes through
// the gateway's lock.
type Gateway struct {
	mu     sync.Mutex
	modem  *modem.Modem
	logger *slog.Logger
}

func NewGateway(m *modem.Modem, logger *slog.Logger) *Gateway {
	return &Gateway{modem: m, logger: logger}
}

// Status is a snapshot of the modem's radio and power state. Fields whose
// query failed keep their zero value and are listed in Errors.
type Status struct {
	Signal         int               `json:"signal"`
	SignalPercent  int               `json:"signal_percent"`
	BatteryPercent int               `json:"battery_percent"`
	BatteryVoltage int               `json:"battery_voltage"`
	Registration   string            `json:"registration"`
	Network        string            `json:"network"`
	Functionality  int               `json:"functionality"`
	Sleep          int               `json:"sleep"`
	Errors         map[string]string `json:"errors,omitempty"`
}

// Info identifies the module and SIM.
type Info struct {
	Module      string            `json:"module"`
	CCID        string            `json:"ccid"`
	PhoneNumber string            `json:"phone_number"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// SMSRequest is the payload accepted over HTTP and MQTT.
type SMSRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

var errMissingFields = errors.New("both 'to' and 'message' fields are required")

func record(errs map[string]string, field string, err error) map[string]string {
	if err == nil {
		return errs
	}
	if errs == nil {
		errs = make(map[string]string)
	}
	errs[field] = err.Error()
	return errs
}

func (g *Gateway) Status(ctx context.Context) Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	var s Status

	signal, err := g.modem.SignalQuality(ctx)
	s.Signal, s.SignalPercent = signal.Raw, signal.Percent
	s.Errors = record(s.Errors, "signal", err)

	battery, err := g.modem.Battery(ctx)
	s.BatteryPercent, s.BatteryVoltage = battery.Percent, battery.Voltage
	s.Errors = record(s.Errors, "battery", err)

	s.Registration, err = g.modem.RegistrationStatus(ctx)
	s.Errors = record(s.Errors, "registration", err)

	s.Network, err = g.modem.NetworkName(ctx)
	s.Errors = record(s.Errors, "network", err)

	s.Functionality, err = g.modem.Functionality(ctx)
	s.Errors = record(s.Errors, "functionality", err)

	s.Sleep, err = g.modem.Sleep(ctx)
	s.Errors = record(s.Errors, "sleep", err)

	return s
}

func (g *Gateway) Info(ctx context.Context) Info {
	g.mu.Lock()
	defer g.mu.Unlock()

	var i Info
	var err error

	i.Module, err = g.modem.ModuleInfo(ctx)
	i.Errors = record(i.Errors, "module", err)

	i.CCID, err = g.modem.CCID(ctx)
	i.Errors = record(i.Errors, "ccid", err)

	i.PhoneNumber, err = g.modem.PhoneNumber(ctx)
	i.Errors = record(i.Errors, "phone_number", err)

	return i
}

// SendSMS sends the message and returns the request id, generating one
// when the caller supplied none.
func (g *Gateway) SendSMS(ctx context.Context, req SMSRequest) (string, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.modem.SendSMS(ctx, req.To, req.Message); err != nil {
		g.logger.Error("Failed to send SMS", "id", req.ID, "to", req.To, "error", err)
		return req.ID, err
	}
	g.logger.Info("SMS sent successfully", "id", req.ID, "to", req.To, "message_length", len(req.Message))
	return req.ID, nil
}

func (g *Gateway) SetFunctionality(ctx context.Context, mode int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modem.SetFunctionality(ctx, mode)
}

func (g *Gateway) SetSleep(ctx context.Context, sleep bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modem.SetSleep(ctx, sleep)
}

func (g *Gateway) PowerOff(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modem.PowerOff(ctx)
}

// Ping checks the modem answers, used once at startup.
func (g *Gateway) Ping(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modem.Begin(ctx)
}
