// Package embeddednats runs an in-process NATS server with JetStream and
// carries the directory's event stream.
package embeddednats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"org-directory/pkg/logging"
	"org-directory/pkg/shared"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

type Config struct {
	Port         int // server.RANDOM_PORT picks a free port
	DataDir      string
	MaxMemory    int64
	MaxFileStore int64
	Logger       *logrus.Logger
}

type EmbeddedNATS struct {
	server  *server.Server
	nc      *nats.Conn
	js      nats.JetStreamContext
	config  *Config
	logger  *logrus.Logger
	streams map[string]*StreamConfig
}

type StreamConfig struct {
	Name            string
	Subjects        []string
	Retention       nats.RetentionPolicy
	MaxMsgs         int64
	MaxBytes        int64
	MaxAge          time.Duration
	MaxMsgSize      int32
	DuplicateWindow time.Duration
	DiscardPolicy   nats.DiscardPolicy
}

func DefaultConfig() *Config {
	return &Config{
		Port:         4222,
		DataDir:      "./data/nats",
		MaxMemory:    64 * 1024 * 1024,  // 64MB
		MaxFileStore: 512 * 1024 * 1024, // 512MB
	}
}

func New(cfg *Config) (*EmbeddedNATS, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("NATS data directory is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &EmbeddedNATS{
		config:  cfg,
		logger:  logger,
		streams: make(map[string]*StreamConfig),
	}, nil
}

func (en *EmbeddedNATS) Start() error {
	opts := &server.Options{
		Host:               "127.0.0.1",
		Port:               en.config.Port,
		JetStream:          true,
		StoreDir:           en.config.DataDir,
		JetStreamMaxMemory: en.config.MaxMemory,
		JetStreamMaxStore:  en.config.MaxFileStore,
		NoSigs:             true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return fmt.Errorf("NATS server not ready for connections")
	}

	en.server = ns

	if err := en.connect(); err != nil {
		ns.Shutdown()
		return fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	en.logger.WithField("url", ns.ClientURL()).Info("Embedded NATS server started")
	return nil
}

func (en *EmbeddedNATS) connect() error {
	nc, err := nats.Connect(en.server.ClientURL(),
		nats.Name(shared.ServiceName),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			en.logger.WithError(err).Error("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				en.logger.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			en.logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	en.nc = nc
	en.js = js
	return nil
}

// AddStream creates the stream or updates it in place when it already
// exists from a previous run.
func (en *EmbeddedNATS) AddStream(streamConfig *StreamConfig) error {
	if en.js == nil {
		return fmt.Errorf("JetStream not initialized")
	}

	config := &nats.StreamConfig{
		Name:       streamConfig.Name,
		Subjects:   streamConfig.Subjects,
		Retention:  streamConfig.Retention,
		MaxMsgs:    streamConfig.MaxMsgs,
		MaxBytes:   streamConfig.MaxBytes,
		MaxAge:     streamConfig.MaxAge,
		MaxMsgSize: streamConfig.MaxMsgSize,
		Replicas:   1,
		Duplicates: streamConfig.DuplicateWindow,
		Discard:    streamConfig.DiscardPolicy,
		Storage:    nats.FileStorage,
	}

	var (
		info *nats.StreamInfo
		err  error
	)
	if _, lookupErr := en.js.StreamInfo(streamConfig.Name); lookupErr == nil {
		info, err = en.js.UpdateStream(config)
		if err != nil {
			return fmt.Errorf("failed to update stream %s: %w", streamConfig.Name, err)
		}
	} else {
		info, err = en.js.AddStream(config)
		if err != nil {
			return fmt.Errorf("failed to add stream %s: %w", streamConfig.Name, err)
		}
	}

	en.streams[streamConfig.Name] = streamConfig
	en.logger.WithFields(logrus.Fields{
		"stream":   info.Config.Name,
		"subjects": info.Config.Subjects,
	}).Info("Stream ready")
	return nil
}

// CreateDirectoryStreams sets up the event stream and the audit consumer.
func (en *EmbeddedNATS) CreateDirectoryStreams() error {
	stream := &StreamConfig{
		Name:            shared.StreamDirectory,
		Subjects:        []string{shared.SubjectAll},
		Retention:       nats.LimitsPolicy,
		MaxMsgs:         100000,
		MaxBytes:        128 * 1024 * 1024, // 128MB
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgSize:      256 * 1024, // 256KB
		DuplicateWindow: 2 * time.Minute,
		DiscardPolicy:   nats.DiscardOld,
	}
	if err := en.AddStream(stream); err != nil {
		return err
	}
	return en.CreateDurableConsumer(shared.StreamDirectory, shared.ConsumerAudit, shared.SubjectAll)
}

// Publish sends a directory event on its subject. The event id doubles
// as the JetStream dedup id.
func (en *EmbeddedNATS) Publish(ctx context.Context, event *shared.Event) error {
	if en.js == nil {
		return fmt.Errorf("JetStream not initialized")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return en.PublishWithDedup(ctx, event.Subject, data, event.ID)
}

func (en *EmbeddedNATS) PublishWithDedup(ctx context.Context, subject string, data []byte, msgID string) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, msgID)

	if _, err := en.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (en *EmbeddedNATS) CreateDurableConsumer(streamName, consumerName, filterSubject string) error {
	if _, err := en.js.ConsumerInfo(streamName, consumerName); err == nil {
		en.logger.WithFields(logrus.Fields{
			"stream":   streamName,
			"consumer": consumerName,
		}).Debug("Durable consumer already exists")
		return nil
	}

	_, err := en.js.AddConsumer(streamName, &nats.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: filterSubject,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		MaxAckPending: 1000,
		DeliverPolicy: nats.DeliverAllPolicy,
		ReplayPolicy:  nats.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", consumerName, err)
	}

	en.logger.WithFields(logrus.Fields{
		"stream":   streamName,
		"consumer": consumerName,
	}).Info("Created durable consumer")
	return nil
}

func (en *EmbeddedNATS) Connection() *nats.Conn {
	return en.nc
}

func (en *EmbeddedNATS) JetStream() nats.JetStreamContext {
	return en.js
}

func (en *EmbeddedNATS) Shutdown(ctx context.Context) error {
	if en.nc != nil {
		en.nc.Close()
	}

	if en.server != nil {
		en.server.Shutdown()
		done := make(chan struct{})
		go func() {
			en.server.WaitForShutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	en.logger.Info("Embedded NATS server stopped")
	return nil
}

func (en *EmbeddedNATS) HealthCheck() error {
	if en.nc == nil {
		return fmt.Errorf("NATS connection not initialized")
	}

	if !en.nc.IsConnected() {
		return fmt.Errorf("NATS not connected")
	}

	if en.server != nil && !en.server.Running() {
		return fmt.Errorf("NATS server not running")
	}

	return nil
}
