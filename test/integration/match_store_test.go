// Package integration exercises the repositories and the vector index
// against a real Postgres. Point TEST_DATABASE_DSN at a database where the
// pgvector extension can be created; the suite applies the migrations
// itself and skips entirely when the variable is unset.
package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/repositories/match"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/vector"
)

// testContext holds shared test wiring
type testContext struct {
	db      database.DB
	sqlxDB  *sqlx.DB
	matches *match.Repository
	index   *vector.Index
	ctx     context.Context
}

// setupTestContext connects, migrates and builds the repositories
func setupTestContext(t *testing.T) *testContext {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	sqlxDB, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqlxDB.Close() })

	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	require.NoError(t, err)
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: "../../db/pg",
	})
	require.NoError(t, migrations.Migrate("fern_test", driver))

	db := database.NewDatabaseInstance(sqlxDB, logger)
	return &testContext{
		db:      db,
		sqlxDB:  sqlxDB,
		matches: match.NewRepository(db, logger),
		index:   vector.NewIndex(db, nil, logger),
		ctx:     context.Background(),
	}
}

func (tc *testContext) seedIncentive(t *testing.T, title string) int64 {
	t.Helper()
	var id int64
	err := tc.db.GetContext(tc.ctx, &id,
		"INSERT INTO incentives (title, description) VALUES ($1, $2) RETURNING id",
		title, "seeded for repository tests")
	require.NoError(t, err)
	t.Cleanup(func() { tc.sqlxDB.Exec("DELETE FROM incentives WHERE id = $1", id) })
	return id
}

func (tc *testContext) seedCompanies(t *testing.T, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Empresa %s-%d", uuid.New().String()[:8], i)
		var id int64
		err := tc.db.GetContext(tc.ctx, &id,
			"INSERT INTO companies (company_name) VALUES ($1) RETURNING id", name)
		require.NoError(t, err)
		t.Cleanup(func() { tc.sqlxDB.Exec("DELETE FROM companies WHERE id = $1", id) })
		ids = append(ids, id)
	}
	return ids
}

type storedMatch struct {
	CompanyID    int64   `db:"company_id"`
	RankPosition int     `db:"rank_position"`
	Score        float64 `db:"score"`
}

func (tc *testContext) storedMatches(t *testing.T, incentiveID int64) []storedMatch {
	t.Helper()
	var rows []storedMatch
	err := tc.db.SelectContext(tc.ctx, &rows,
		"SELECT company_id, rank_position, score FROM matches WHERE incentive_id = $1 ORDER BY rank_position",
		incentiveID)
	require.NoError(t, err)
	return rows
}

func rankedMatches(incentiveID int64, companyIDs []int64, scores []float64) []models.Match {
	out := make([]models.Match, 0, len(companyIDs))
	for i, companyID := range companyIDs {
		out = append(out, models.Match{
			IncentiveID:  incentiveID,
			CompanyID:    companyID,
			Score:        scores[i],
			RankPosition: i + 1,
			Reasoning: models.NewReasoning(models.MatchReasoning{
				FinalScore:     scores[i],
				Recommendation: "seeded ranking",
			}),
		})
	}
	return out
}

func TestUpsertBatchIsIdempotent(t *testing.T) {
	tc := setupTestContext(t)
	incentiveID := tc.seedIncentive(t, "Apoio à inovação")
	companies := tc.seedCompanies(t, 3)

	matches := rankedMatches(incentiveID, companies, []float64{4.5, 3.8, 3.1})
	require.NoError(t, tc.matches.UpsertBatch(tc.ctx, incentiveID, matches))
	require.NoError(t, tc.matches.UpsertBatch(tc.ctx, incentiveID, matches))

	stored := tc.storedMatches(t, incentiveID)
	require.Len(t, stored, 3)

	seen := make(map[int64]struct{}, len(stored))
	for i, row := range stored {
		_, dup := seen[row.CompanyID]
		assert.False(t, dup, "company %d stored twice", row.CompanyID)
		seen[row.CompanyID] = struct{}{}
		assert.Equal(t, i+1, row.RankPosition)
		assert.Equal(t, companies[i], row.CompanyID)
	}
}

func TestUpsertBatchSwapsRanksOnRematch(t *testing.T) {
	tc := setupTestContext(t)
	incentiveID := tc.seedIncentive(t, "Transição digital")
	companies := tc.seedCompanies(t, 2)

	first := rankedMatches(incentiveID, companies, []float64{4.2, 3.9})
	require.NoError(t, tc.matches.UpsertBatch(tc.ctx, incentiveID, first))

	// the rematch inverts the order, both rows trade rank positions
	swapped := rankedMatches(incentiveID, []int64{companies[1], companies[0]}, []float64{4.8, 3.5})
	require.NoError(t, tc.matches.UpsertBatch(tc.ctx, incentiveID, swapped))

	stored := tc.storedMatches(t, incentiveID)
	require.Len(t, stored, 2)
	assert.Equal(t, companies[1], stored[0].CompanyID)
	assert.Equal(t, 1, stored[0].RankPosition)
	assert.InDelta(t, 4.8, stored[0].Score, 0.001)
	assert.Equal(t, companies[0], stored[1].CompanyID)
	assert.Equal(t, 2, stored[1].RankPosition)
}

func TestUpsertBatchPrunesDroppedCompanies(t *testing.T) {
	tc := setupTestContext(t)
	incentiveID := tc.seedIncentive(t, "Eficiência energética")
	companies := tc.seedCompanies(t, 4)

	first := rankedMatches(incentiveID, companies[:3], []float64{4.5, 4.0, 3.5})
	require.NoError(t, tc.matches.UpsertBatch(tc.ctx, incentiveID, first))

	// companies[0] falls out of the ranking, companies[3] enters, the old
	// third place takes rank 1
	second := rankedMatches(incentiveID,
		[]int64{companies[2], companies[1], companies[3]},
		[]float64{4.7, 4.1, 3.2})
	require.NoError(t, tc.matches.UpsertBatch(tc.ctx, incentiveID, second))

	stored := tc.storedMatches(t, incentiveID)
	require.Len(t, stored, 3)
	for _, row := range stored {
		assert.NotEqual(t, companies[0], row.CompanyID)
	}
	assert.Equal(t, companies[2], stored[0].CompanyID)
	assert.Equal(t, 1, stored[0].RankPosition)
	assert.Equal(t, companies[3], stored[2].CompanyID)
	assert.Equal(t, 3, stored[2].RankPosition)
}

func TestNearestCompaniesWithoutEmbedding(t *testing.T) {
	tc := setupTestContext(t)
	incentiveID := tc.seedIncentive(t, "Sem vetor")

	candidates, err := tc.index.NearestCompanies(tc.ctx, incentiveID, 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestNearestCompaniesUnknownIncentive(t *testing.T) {
	tc := setupTestContext(t)

	candidates, err := tc.index.NearestCompanies(tc.ctx, 987654321, 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
