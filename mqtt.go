package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	statusTopic    = "/status"
	smsTopic       = "/sms"
	smsResultTopic = "/sms/result"

	mqttQoS             = 0
	mqttDisconnectQuiet = 500 // milliseconds
)

// MQTTBridge subscribes to SMS requests and periodically publishes the
// modem status on the configured broker.
type MQTTBridge struct {
	Logger  *slog.Logger
	Gateway *Gateway
	Config  MQTTConfig
}

// SMSResult is published on "<topic>/sms/result" after every request.
type SMSResult struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

func (b *MQTTBridge) options(ctx context.Context) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.Config.Broker)
	opts.SetClientID(b.Config.ClientID)
	if b.Config.Username != "" {
		opts.SetUsername(b.Config.Username)
		opts.SetPassword(b.Config.Password)
	}
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.Logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		topic := b.Config.Topic + smsTopic
		b.Logger.Info("MQTT connected", "subscribe", topic)
		token := c.Subscribe(topic, mqttQoS, func(c mqtt.Client, msg mqtt.Message) {
			b.handleSMS(ctx, c, msg)
		})
		if token.Wait() && token.Error() != nil {
			b.Logger.Error("MQTT subscribe failed", "topic", topic, "error", token.Error())
		}
	})
	return opts
}

// Run connects to the broker and publishes status until ctx is done.
func (b *MQTTBridge) Run(ctx context.Context) error {
	client := mqtt.NewClient(b.options(ctx))
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer client.Disconnect(mqttDisconnectQuiet)

	return b.publishLoop(ctx, client)
}

func (b *MQTTBridge) publishLoop(ctx context.Context, client mqtt.Client) error {
	interval := b.Config.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := b.publishStatus(ctx, client); err != nil {
			b.Logger.Warn("Failed to publish status", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (b *MQTTBridge) publishStatus(ctx context.Context, client mqtt.Client) error {
	return b.publish(client, b.Config.Topic+statusTopic, b.Gateway.Status(ctx))
}

func (b *MQTTBridge) publish(client mqtt.Client, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := client.Publish(topic, mqttQoS, false, payload)
	token.Wait()
	return token.Error()
}

func (b *MQTTBridge) handleSMS(ctx context.Context, client mqtt.Client, msg mqtt.Message) {
	var req SMSRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		b.Logger.Warn("Invalid MQTT SMS payload", "topic", msg.Topic(), "error", err)
		return
	}

	var result SMSResult
	if req.To == "" || req.Message == "" {
		result = SMSResult{ID: req.ID, Error: errMissingFields.Error()}
	} else {
		id, err := b.Gateway.SendSMS(ctx, req)
		result.ID = id
		if err != nil {
			result.Error = err.Error()
		}
	}

	if err := b.publish(client, b.Config.Topic+smsResultTopic, result); err != nil {
		b.Logger.Warn("Failed to publish SMS result", "id", result.ID, "error", err)
	}
}
