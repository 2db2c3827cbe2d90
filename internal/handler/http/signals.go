package http

import (
	"context"

	"github.com/luxemarket/storefront/internal/domain"
)

// signalCollector records host-frame instructions during a request so they
// can be returned to the embedding frontend, which forwards them with
// window.parent.postMessage.
type signalCollector struct {
	signals []domain.HostSignal
}

func newSignalCollector() *signalCollector {
	return &signalCollector{signals: []domain.HostSignal{}}
}

// OpenExternalURL records an OPEN_EXTERNAL_URL signal.
func (c *signalCollector) OpenExternalURL(_ context.Context, url string) error {
	c.signals = append(c.signals, domain.OpenExternalURLSignal(url))
	return nil
}
