package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Projector writes match results as (:Incentive)-[:MATCHED_TO]->(:Company)
// relationships. MERGE keeps projection idempotent: re-running a match
// updates the relationship properties instead of duplicating edges.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{
		client: client,
		logger: logger,
	}
}

// ProjectMatches upserts the incentive node, the company nodes, and one
// MATCHED_TO edge per match carrying score and rank. Stale edges for the
// incentive (companies no longer in the result set) are removed first.
func (p *Projector) ProjectMatches(ctx context.Context, incentiveID int64, matches []models.Match) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectMatches")
	defer span.End()

	if len(matches) == 0 {
		return nil
	}

	rows := make([]map[string]any, len(matches))
	for idx, m := range matches {
		rows[idx] = map[string]any{
			"company_id": m.CompanyID,
			"score":      m.Score,
			"rank":       m.RankPosition,
		}
	}

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MATCH (i:Incentive {id: $incentive_id})-[r:MATCHED_TO]->(c:Company)
			WHERE NOT c.id IN $company_ids
			DELETE r
		`, map[string]any{
			"incentive_id": incentiveID,
			"company_ids":  companyIDs(matches),
		}); err != nil {
			return nil, err
		}

		return tx.Run(ctx, `
			MERGE (i:Incentive {id: $incentive_id})
			WITH i
			UNWIND $matches AS m
			MERGE (c:Company {id: m.company_id})
			MERGE (i)-[r:MATCHED_TO]->(c)
			SET r.score = m.score, r.rank = m.rank
		`, map[string]any{
			"incentive_id": incentiveID,
			"matches":      rows,
		})
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"incentive_id": incentiveID}).Error("Failed to project matches into graph")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"incentive_id": incentiveID,
		"count":        len(matches),
	}).Debug("Projected matches into graph")
	return nil
}

func companyIDs(matches []models.Match) []int64 {
	ids := make([]int64, len(matches))
	for idx, m := range matches {
		ids[idx] = m.CompanyID
	}
	return ids
}
