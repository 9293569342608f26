package meter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dratek/powerplan-go/database"
)

type CounterConfig struct {
	Name  string
	Topic string
	Kind  database.SourceKind
}

type BatteryConfig struct {
	Name     string
	SocTopic string
}

// Meter subscribes to the household's MQTT counter topics and keeps the
// latest value of every counter in memory. Counters are cumulative kWh
// readings; battery topics report state of charge in percent.
type Meter struct {
	mqttClient      mqtt.Client
	logger          *slog.Logger
	counters        []CounterConfig
	batteries       []BatteryConfig
	readings        *Readings
	lastMessageTime ConcurrentTimer
	stopMonitorCh   chan struct{}
}

func New(broker string, port int16, username, password string, counters []CounterConfig, batteries []BatteryConfig, readings *Readings) *Meter {
	logger := slog.Default().With("module", "meter")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID("powerplan")
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("meter MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("meter MQTT connection lost", slog.Any("error", err))
	}

	mqttLogger := slog.Default().With("module", "mqtt")
	mqtt.CRITICAL = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.WARN = newMqttLogger(mqttLogger, slog.LevelWarn)

	return &Meter{
		mqttClient: mqtt.NewClient(opts),
		logger:     logger,
		counters:   counters,
		batteries:  batteries,
		readings:   readings,
	}
}

func (m *Meter) Connect() error {
	m.logger.Debug("connecting meter MQTT client")

	if token := m.mqttClient.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	m.inactivityWatchdog()

	counterByTopic := make(map[string]CounterConfig, len(m.counters))
	batteryByTopic := make(map[string]BatteryConfig, len(m.batteries))
	topics := make(map[string]byte, len(m.counters)+len(m.batteries))
	for _, c := range m.counters {
		counterByTopic[c.Topic] = c
		topics[c.Topic] = 0
	}
	for _, b := range m.batteries {
		batteryByTopic[b.SocTopic] = b
		topics[b.SocTopic] = 0
	}

	token := m.mqttClient.SubscribeMultiple(topics, func(client mqtt.Client, msg mqtt.Message) {
		m.lastMessageTime.Reset()

		value, err := parseReading(msg.Payload())
		if err != nil {
			m.logger.Error("unreadable meter payload",
				slog.String("topic", msg.Topic()),
				slog.Any("error", err))
			return
		}

		if c, ok := counterByTopic[msg.Topic()]; ok {
			m.readings.SetCounter(c.Name, value)
			return
		}
		if b, ok := batteryByTopic[msg.Topic()]; ok {
			m.readings.SetSoc(b.Name, value, time.Now())
			return
		}
		m.logger.Warn("unknown topic", "topic", msg.Topic())
	})

	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	return nil
}

func (m *Meter) Disconnect() {
	m.logger.Info("disconnecting meter mqtt client")
	if m.stopMonitorCh != nil {
		close(m.stopMonitorCh)
		m.stopMonitorCh = nil
	}

	keys := make([]string, 0, len(m.counters)+len(m.batteries))
	for _, c := range m.counters {
		keys = append(keys, c.Topic)
	}
	for _, b := range m.batteries {
		keys = append(keys, b.SocTopic)
	}
	token := m.mqttClient.Unsubscribe(keys...)
	token.WaitTimeout(1 * time.Second)
	if token.Error() != nil {
		m.logger.Error("error unsubscribing from topics", slog.Any("error", token.Error()))
	}

	m.mqttClient.Disconnect(250)
}

// parseReading accepts either a bare decimal payload or a JSON object
// with a numeric "value" field.
func parseReading(payload []byte) (float64, error) {
	text := strings.TrimSpace(string(payload))
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v, nil
	}

	var obj struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return 0, fmt.Errorf("payload is neither a number nor a value object: %q", text)
	}
	if obj.Value == nil {
		return 0, fmt.Errorf("value field missing in payload: %q", text)
	}
	return *obj.Value, nil
}

func (m *Meter) inactivityWatchdog() {
	trafficOk := true
	maxElapsed := 5 * time.Minute
	m.lastMessageTime.Reset()
	m.stopMonitorCh = make(chan struct{})

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if m.lastMessageTime.Elapsed() >= maxElapsed {
					if trafficOk {
						m.logger.Warn(fmt.Sprintf("no incoming mqtt traffic for the last %.0f seconds", maxElapsed.Seconds()))
						trafficOk = false
					}
				} else {
					if !trafficOk {
						m.logger.Info("mqtt traffic is restored")
						trafficOk = true
					}
				}

			case <-m.stopMonitorCh:
				m.logger.Debug("stopping meter monitor routine")
				return
			}
		}
	}()
}
