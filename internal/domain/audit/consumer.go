package audit

import (
	"context"

	"github.com/phuslu/log"

	"github.com/matiasleandrokruk/fenixmcp/internal/infra/eventbus"
)

// Publisher records invocations on the event bus. Record never blocks.
type Publisher struct {
	bus eventbus.EventBus
}

func NewPublisher(bus eventbus.EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) Record(inv ToolInvocation) {
	p.bus.Publish(TopicToolInvoked, inv)
}

// Consumer persists ToolInvocation events from the bus.
type Consumer struct {
	svc    *AuditService
	logger *log.Logger
}

func NewConsumer(svc *AuditService, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Consumer{svc: svc, logger: logger}
}

// Start subscribes to TopicToolInvoked and persists events in a goroutine until ctx is done
// or the bus is closed. The returned channel is closed when the goroutine exits.
func (c *Consumer) Start(ctx context.Context, bus eventbus.EventBus) <-chan struct{} {
	events := bus.Subscribe(TopicToolInvoked)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, events)
	}()
	return done
}

// Run blocks, persisting events until ctx is done or events is closed.
// Events still buffered when the bus closes are persisted before returning.
func (c *Consumer) Run(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.handle(ctx, evt)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, evt eventbus.Event) {
	inv, ok := evt.Payload.(ToolInvocation)
	if !ok {
		c.logger.Warn().Str("topic", evt.Topic).Msg("audit: unexpected payload type")
		return
	}
	if err := c.svc.Log(context.WithoutCancel(ctx), &inv); err != nil {
		c.logger.Error().Err(err).Str("tool", inv.ToolName).Str("org", inv.OrganizationID).Msg("audit: persist tool invocation")
	}
}
