package publisher

import (
	"context"
	"log"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/checkout"
	"github.com/segmentio/kafka-go"
)

// OutboxPoller drains the checkout outbox into Kafka so vendor-side
// consumers learn about placed orders, and sweeps sessions the process
// died in the middle of.
type OutboxPoller struct {
	timeout      time.Duration
	eventTick    time.Duration
	recoveryTick time.Duration
	abandonAfter time.Duration
	repo         checkout.RepoInterface
	writer       *kafka.Writer
}

func NewOutboxPoller(repo checkout.RepoInterface, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "order-events",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		timeout:      time.Second * 5,
		eventTick:    time.Second,
		recoveryTick: time.Second * 5,
		abandonAfter: time.Minute * 5,
		repo:         repo,
		writer:       w,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.sweepAbandonedSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, 100)
	if err != nil {
		log.Printf("failed to fetch events %v", err)
		return
	}

	for _, event := range events {
		errPublish := p.publishToKafka(ctx, event)
		if errPublish != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, errPublish)
			continue
		}

		errMark := p.repo.MarkEventAsProcessed(ctx, event.ID)
		if errMark != nil {
			log.Printf("failed to mark event as processed id = %v with error %v", event.ID, errMark)
			continue
		}
	}
}

// sweepAbandonedSessions fails checkout sessions stuck in a non-terminal
// status. These are crashes between payment and completion; the failure
// reason flags them for manual reconciliation rather than silently
// re-driving writes the dead process may have half-applied.
func (p *OutboxPoller) sweepAbandonedSessions(ctx context.Context) {
	sessions, err := p.repo.GetAbandonedSessions(ctx, p.abandonAfter)
	if err != nil {
		log.Printf("failed to get abandoned sessions: %v", err)
		return
	}
	for _, session := range sessions {
		log.Printf("sweeping abandoned session %v stuck in %v since %v",
			session.ID, session.Status, session.UpdatedAt)

		reason := "abandoned in status " + session.Status.String()
		if err := p.repo.FailSession(ctx, session.ID, reason); err != nil {
			log.Printf("failed to fail abandoned session %v: %v", session.ID, err)
		}
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *checkout.OutboxEvent) error {
	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // checkout id for ordering
		Value: event.Payload,             // already JSON from the outbox
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(writeCtx, msg)
}
