package cli

import (
	"github.com/biodiversity-atlas/publishing-ui/internal/appconfig"
	"github.com/biodiversity-atlas/publishing-ui/internal/event"
	"github.com/biodiversity-atlas/publishing-ui/internal/health"
)

// NewEventPublishers builds the workflow audit fan-out: an in-memory bus
// feeding the metrics listener plus an optional file-based trail. The bus is
// returned separately so listeners can subscribe to it.
func NewEventPublishers(appConfig appconfig.AppConfig) (event.Publishers[*event.StepChanged], *event.MemoryBus[*event.StepChanged]) {
	bus := event.NewMemoryBus[*event.StepChanged]()
	health.Register(bus)
	publishers := event.Publishers[*event.StepChanged]{bus}

	if appConfig.LocalEventsFolder != "" {
		fp := &event.FilePublisher[*event.StepChanged]{Dir: appConfig.LocalEventsFolder}
		health.Register(fp)
		publishers = append(publishers, fp)
	}

	return publishers, bus
}
