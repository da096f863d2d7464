package trigger

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/rs/zerolog"
)

// mqttDriver receives triggers as messages on an MQTT topic, for scanner
// suites where the sync pulse is bridged onto the console network. Every
// message on the topic counts as one trigger.
type mqttDriver struct {
	cfg    MQTTConfig
	logger zerolog.Logger

	conn   *autopaho.ConnectionManager
	cancel context.CancelFunc
	once   sync.Once
}

const mqttConnectTimeout = 10 * time.Second

func newMQTTDriver(cfg MQTTConfig, logger zerolog.Logger) *mqttDriver {
	if cfg.ClientID == "" {
		cfg.ClientID = "scantrig"
	}
	return &mqttDriver{cfg: cfg, logger: logger}
}

func (d *mqttDriver) start(emit func(time.Time), _ func()) error {
	if d.cfg.Broker == "" {
		return fmt.Errorf("mqtt: no broker configured")
	}
	if d.cfg.Topic == "" {
		return fmt.Errorf("mqtt: no topic configured")
	}

	broker, err := url.Parse(d.cfg.Broker)
	if err != nil {
		return fmt.Errorf("mqtt: parse broker url: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{broker},
		KeepAlive:                     30,
		CleanStartOnInitialConnection: true,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			_, err := cm.Subscribe(ctx, &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{
					{Topic: d.cfg.Topic, QoS: d.cfg.QoS},
				},
			})
			if err != nil {
				d.logger.Error().Err(err).Str("topic", d.cfg.Topic).Msg("mqtt subscribe failed")
				return
			}
			d.logger.Debug().Str("topic", d.cfg.Topic).Msg("mqtt subscribed")
		},
		OnConnectError: func(err error) {
			d.logger.Error().Err(err).Msg("mqtt connect failed")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: d.cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					emit(time.Now())
					return true, nil
				},
			},
		},
	}

	conn, err := autopaho.NewConnection(ctx, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("mqtt: connect %s: %w", d.cfg.Broker, err)
	}
	d.conn = conn

	waitCtx, waitCancel := context.WithTimeout(ctx, mqttConnectTimeout)
	defer waitCancel()
	if err := conn.AwaitConnection(waitCtx); err != nil {
		cancel()
		return fmt.Errorf("mqtt: connect %s: %w", d.cfg.Broker, err)
	}
	return nil
}

func (d *mqttDriver) stop() error {
	var err error
	d.once.Do(func() {
		if d.conn != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err = d.conn.Disconnect(ctx)
		}
		if d.cancel != nil {
			d.cancel()
		}
	})
	return err
}
