package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/dd0wney/cluso-noc/pkg/backend"
	"github.com/dd0wney/cluso-noc/pkg/backend/httpclient"
	"github.com/dd0wney/cluso-noc/pkg/backend/memory"
	"github.com/dd0wney/cluso-noc/pkg/config"
	"github.com/dd0wney/cluso-noc/pkg/logging"
	"github.com/dd0wney/cluso-noc/pkg/metrics"
	"github.com/dd0wney/cluso-noc/pkg/session"
)

// console is a controller together with the backend it was built over.
type console struct {
	*session.Controller
	demo *memory.Backend
}

// newBackend returns the configured backend. Without a URL the in-memory
// demo backend is used.
func newBackend(c config.Config, logger logging.Logger) (backend.Backend, *memory.Backend, error) {
	if c.Backend.URL != "" {
		logger.Info("using HTTP backend", logging.String("url", c.Backend.URL))
		return httpclient.New(c.Backend.URL,
			httpclient.WithTimeout(c.Backend.Timeout),
			httpclient.WithLogger(logger)), nil, nil
	}

	var (
		mem *memory.Backend
		err error
	)
	if c.Backend.FixturePath != "" {
		var f *memory.Fixture
		if f, err = memory.LoadFixture(c.Backend.FixturePath); err != nil {
			return nil, nil, err
		}
		mem, err = memory.New(f, memory.WithLogger(logger))
	} else {
		mem, err = memory.NewDefault(memory.WithLogger(logger))
	}
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using in-memory demo backend", logging.String("fixture", c.Backend.FixturePath))
	return mem, mem, nil
}

func newConsole(ctx context.Context, c config.Config, logger logging.Logger, reg *metrics.Registry) (*console, error) {
	b, demo, err := newBackend(c, logger)
	if err != nil {
		return nil, err
	}
	ctrl := session.New(b,
		session.WithLogger(logger),
		session.WithMetrics(reg),
		session.WithPolling(c.Polling))

	if err := ctrl.LoadTree(ctx); err != nil {
		// The tree can be reloaded later; the console still starts.
		logger.Warn("initial device tree load failed", logging.Error(err))
	}
	return &console{Controller: ctrl, demo: demo}, nil
}

// churn perturbs the demo backend's fault counts every interval until ctx
// ends. It does nothing for a real backend.
func (c *console) churn(ctx context.Context, every time.Duration) {
	if c.demo == nil || every <= 0 {
		return
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.demo.Churn(r)
		}
	}
}
