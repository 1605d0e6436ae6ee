package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	embeddednats "org-directory/pkg/services/embedded-nats"

	"github.com/sirupsen/logrus"
)

type Manager struct {
	workers []Worker
	logger  *logrus.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewManager(natsClient *embeddednats.EmbeddedNATS, logger *logrus.Logger) (*Manager, error) {
	if natsClient.Connection() == nil {
		return nil, fmt.Errorf("NATS connection not initialized")
	}

	js := natsClient.JetStream()
	if js == nil {
		return nil, fmt.Errorf("JetStream not initialized")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		workers: []Worker{
			NewAuditWorker(js, logger),
		},
	}, nil
}

// Workers returns the managed workers.
func (m *Manager) Workers() []Worker {
	return m.workers
}

func (m *Manager) Start() error {
	for _, worker := range m.workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()

			if err := w.Start(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.WithError(err).WithField("worker", w.Name()).Error("Worker failed")
			}
			m.logger.WithField("worker", w.Name()).Info("Worker stopped")
		}(worker)
	}

	m.logger.WithField("count", len(m.workers)).Info("Started workers")
	return nil
}

func (m *Manager) Stop() error {
	m.cancel()
	m.wg.Wait()

	for _, worker := range m.workers {
		if err := worker.Stop(); err != nil {
			m.logger.WithError(err).WithField("worker", worker.Name()).Warn("Error stopping worker")
		}
	}

	m.logger.Info("All workers stopped")
	return nil
}
