package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tinypot-server/internal/database"
	"tinypot-server/internal/models"
	"tinypot-server/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const testScriptContent = `[
	{"kind": "narrative", "text": "Hi"},
	{"kind": "option", "text": "go", "then": [{"kind": "jump", "target": "END"}]}
]`

// RepositoryIntegrationSuite runs the PostgreSQL repositories against a
// real database in a container.
type RepositoryIntegrationSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	pool        *pgxpool.Pool
	scripts     repository.ScriptRepository
	plays       repository.PlaythroughRepository
}

func (s *RepositoryIntegrationSuite) SetupSuite() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("tinypot-test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(s.T(), err)
	s.pool = pool

	require.NoError(s.T(), database.NewMigrator(pool).Up())

	s.scripts = repository.NewPgScriptRepository(pool, zap.NewNop())
	s.plays = repository.NewPgPlaythroughRepository(pool, zap.NewNop())
}

func (s *RepositoryIntegrationSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(context.Background())
	}
}

func (s *RepositoryIntegrationSuite) createScript(ctx context.Context, authorID uuid.UUID) *models.Script {
	script := &models.Script{
		AuthorID: authorID,
		Title:    "Camp at night",
		Content:  json.RawMessage(testScriptContent),
	}
	require.NoError(s.T(), s.scripts.Create(ctx, script))
	return script
}

func (s *RepositoryIntegrationSuite) createPlaythrough(ctx context.Context, playerID, scriptID uuid.UUID) *models.PlaythroughRecord {
	now := time.Now().UTC()
	record := &models.PlaythroughRecord{
		ID:             uuid.New(),
		PlayerID:       playerID,
		ScriptID:       scriptID,
		ScriptVersion:  1,
		Position:       1,
		History:        json.RawMessage(`[{"kind": "narrative", "text": "Hi"}]`),
		Status:         models.PlaythroughStatusPlaying,
		StartedAt:      now,
		LastActivityAt: now,
	}
	require.NoError(s.T(), s.plays.Create(ctx, record))
	return record
}

func (s *RepositoryIntegrationSuite) TestScriptLifecycle() {
	ctx := context.Background()
	authorID := uuid.New()

	script := s.createScript(ctx, authorID)
	assert.Equal(s.T(), 1, script.Version)

	got, err := s.scripts.GetByID(ctx, script.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), script.Title, got.Title)
	assert.JSONEq(s.T(), testScriptContent, string(got.Content))

	updated, err := s.scripts.UpdateContent(ctx, script.ID, json.RawMessage(`[{"kind": "narrative", "text": "Rewritten"}]`))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, updated.Version)

	list, err := s.scripts.ListByAuthor(ctx, authorID)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)
	assert.Equal(s.T(), 2, list[0].Version)

	require.NoError(s.T(), s.scripts.Delete(ctx, script.ID))
	_, err = s.scripts.GetByID(ctx, script.ID)
	assert.ErrorIs(s.T(), err, models.ErrNotFound)
}

func (s *RepositoryIntegrationSuite) TestScriptNotFound() {
	ctx := context.Background()

	_, err := s.scripts.GetByID(ctx, uuid.New())
	assert.ErrorIs(s.T(), err, models.ErrNotFound)

	_, err = s.scripts.UpdateContent(ctx, uuid.New(), json.RawMessage(`[]`))
	assert.ErrorIs(s.T(), err, models.ErrNotFound)

	assert.ErrorIs(s.T(), s.scripts.Delete(ctx, uuid.New()), models.ErrNotFound)
}

func (s *RepositoryIntegrationSuite) TestPlaythroughLifecycle() {
	ctx := context.Background()
	playerID := uuid.New()
	script := s.createScript(ctx, uuid.New())

	record := s.createPlaythrough(ctx, playerID, script.ID)

	got, err := s.plays.GetByID(ctx, record.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), playerID, got.PlayerID)
	assert.Equal(s.T(), 1, got.Position)
	assert.Equal(s.T(), models.PlaythroughStatusPlaying, got.Status)
	assert.Nil(s.T(), got.CompletedAt)

	completedAt := time.Now().UTC()
	got.Position = 2
	got.ScriptVersion = 2
	got.Status = models.PlaythroughStatusEnded
	got.CompletedAt = &completedAt
	got.History = json.RawMessage(`[{"kind": "narrative", "text": "Hi"}, {"kind": "choice", "text": "go"}]`)
	require.NoError(s.T(), s.plays.Update(ctx, got))

	reloaded, err := s.plays.GetByID(ctx, record.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, reloaded.Position)
	assert.Equal(s.T(), models.PlaythroughStatusEnded, reloaded.Status)
	require.NotNil(s.T(), reloaded.CompletedAt)

	require.NoError(s.T(), s.plays.Delete(ctx, record.ID))
	_, err = s.plays.GetByID(ctx, record.ID)
	assert.ErrorIs(s.T(), err, models.ErrNotFound)
}

func (s *RepositoryIntegrationSuite) TestListActiveByScript() {
	ctx := context.Background()
	script := s.createScript(ctx, uuid.New())

	active := s.createPlaythrough(ctx, uuid.New(), script.ID)
	finished := s.createPlaythrough(ctx, uuid.New(), script.ID)
	finished.Status = models.PlaythroughStatusEnded
	require.NoError(s.T(), s.plays.Update(ctx, finished))

	records, err := s.plays.ListActiveByScript(ctx, script.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 1)
	assert.Equal(s.T(), active.ID, records[0].ID)
}

func (s *RepositoryIntegrationSuite) TestListByPlayer() {
	ctx := context.Background()
	playerID := uuid.New()
	first := s.createScript(ctx, uuid.New())
	second := s.createScript(ctx, uuid.New())

	s.createPlaythrough(ctx, playerID, first.ID)
	s.createPlaythrough(ctx, playerID, second.ID)
	s.createPlaythrough(ctx, uuid.New(), first.ID)

	all, err := s.plays.ListByPlayer(ctx, playerID, nil)
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 2)

	scoped, err := s.plays.ListByPlayer(ctx, playerID, &first.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), scoped, 1)
	assert.Equal(s.T(), first.ID, scoped[0].ScriptID)
}

func (s *RepositoryIntegrationSuite) TestScriptDeleteCascades() {
	ctx := context.Background()
	script := s.createScript(ctx, uuid.New())
	record := s.createPlaythrough(ctx, uuid.New(), script.ID)

	require.NoError(s.T(), s.scripts.Delete(ctx, script.ID))

	_, err := s.plays.GetByID(ctx, record.ID)
	assert.ErrorIs(s.T(), err, models.ErrNotFound)
}

func TestRepositoryIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(RepositoryIntegrationSuite))
}
