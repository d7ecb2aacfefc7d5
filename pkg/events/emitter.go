// Package events publishes match lifecycle events so downstream consumers
// (dashboards, notification services) can react without polling the matches
// table.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	EventMatchCompleted = "match.completed"
	EventBatchCompleted = "match.batch_completed"
)

// matchCompletedPayload is the body of a match.completed event.
type matchCompletedPayload struct {
	IncentiveID int64          `json:"incentive_id"`
	MatchCount  int            `json:"match_count"`
	TopScore    float64        `json:"top_score"`
	Matches     []models.Match `json:"matches"`
}

// Emitter publishes match events through the Kafka producer.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// MatchCompleted publishes the ranked results for one incentive.
func (e *Emitter) MatchCompleted(ctx context.Context, incentiveID int64, matches []models.Match) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.MatchCompleted")
	defer span.End()

	payload := matchCompletedPayload{
		IncentiveID: incentiveID,
		MatchCount:  len(matches),
		Matches:     matches,
	}
	if len(matches) > 0 {
		payload.TopScore = matches[0].Score
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return e.producer.PublishMatchEvent(ctx, &kafka.MatchEvent{
		EventType:   EventMatchCompleted,
		Key:         fmt.Sprintf("incentive-%d", incentiveID),
		IncentiveID: incentiveID,
		Payload:     data,
	})
}

// BatchCompleted publishes the summary of a whole-catalog run.
func (e *Emitter) BatchCompleted(ctx context.Context, summary *models.BatchSummary) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.BatchCompleted")
	defer span.End()

	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	return e.producer.PublishMatchEvent(ctx, &kafka.MatchEvent{
		EventType: EventBatchCompleted,
		Key:       summary.RunID,
		Payload:   data,
	})
}
