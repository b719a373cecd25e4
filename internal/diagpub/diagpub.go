// Package diagpub publishes VS10x3 diagnostics to an MQTT broker.
package diagpub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	mqtt "github.com/soypat/natiu-mqtt"
	"github.com/soypat/vs10x3"
)

// Payload is the JSON document published for each diagnostics snapshot.
type Payload struct {
	State   string `json:"state"`
	Chip    string `json:"chip"`
	Version uint8  `json:"version"`
	Mode    uint16 `json:"mode"`
	Status  uint16 `json:"status"`
	ClockF  uint16 `json:"clockf"`
	XtaliHz uint32 `json:"xtali_hz"`
	ClkiHz  uint32 `json:"clki_hz"`
	Resets  int    `json:"resets"`
	Err     string `json:"err,omitempty"`
}

// NewPayload converts diagnostics to their published form.
func NewPayload(diag vs10x3.Diagnostics) Payload {
	p := Payload{
		State:   diag.State.String(),
		Chip:    diag.Chip,
		Version: uint8(diag.Version),
		Mode:    uint16(diag.Mode),
		Status:  uint16(diag.Status),
		ClockF:  uint16(diag.ClockF),
		XtaliHz: diag.XtaliHz,
		ClkiHz:  diag.ClkiHz,
		Resets:  diag.ResetAttempts,
	}
	if diag.Err != nil {
		p.Err = diag.Err.Error()
	}
	return p
}

// Publisher sends diagnostics over a single MQTT connection with QoS0.
type Publisher struct {
	client *mqtt.Client
	flags  mqtt.PacketFlags
	vars   mqtt.VariablesPublish
	connv  mqtt.VariablesConnect
	logger *slog.Logger
}

// New returns a Publisher that publishes to topic. logger may be nil.
func New(clientID, topic string, logger *slog.Logger) (*Publisher, error) {
	if topic == "" {
		return nil, errors.New("diagpub: empty topic")
	}
	flags, err := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err != nil {
		return nil, err
	}
	p := &Publisher{
		flags:  flags,
		vars:   mqtt.VariablesPublish{TopicName: []byte(topic)},
		logger: logger,
	}
	p.connv.SetDefaultMQTT([]byte(clientID))
	p.client = mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1024)},
		OnPub: func(_ mqtt.Header, varPub mqtt.VariablesPublish, _ io.Reader) error {
			p.log("ignoring message", slog.String("topic", string(varPub.TopicName)))
			return nil
		},
	})
	return p, nil
}

// Connect performs the MQTT handshake over rwc, usually a TCP connection.
func (p *Publisher) Connect(ctx context.Context, rwc io.ReadWriteCloser) error {
	err := p.client.Connect(ctx, rwc, &p.connv)
	if err != nil {
		return err
	}
	p.log("connected", slog.String("topic", string(p.vars.TopicName)))
	return nil
}

// Publish sends a diagnostics snapshot.
func (p *Publisher) Publish(diag vs10x3.Diagnostics) error {
	if !p.client.IsConnected() {
		return errors.New("diagpub: not connected")
	}
	payload, err := json.Marshal(NewPayload(diag))
	if err != nil {
		return err
	}
	p.vars.PacketIdentifier++
	err = p.client.PublishPayload(p.flags, p.vars, payload)
	if err != nil {
		return err
	}
	p.log("published", slog.Uint64("packetID", uint64(p.vars.PacketIdentifier)), slog.Int("len", len(payload)))
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	if !p.client.IsConnected() {
		return nil
	}
	return p.client.Disconnect(errors.New("diagpub: closed"))
}

func (p *Publisher) log(msg string, attrs ...slog.Attr) {
	if p.logger != nil {
		p.logger.LogAttrs(context.Background(), slog.LevelDebug, "diagpub:"+msg, attrs...)
	}
}
