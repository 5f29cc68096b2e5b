//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"vortextau-chat/internal/models"
	"vortextau-chat/internal/store"
)

var testStore *PostgresStore

// TestMain starts a throwaway Postgres container for the package.
func TestMain(m *testing.M) {
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "vortex",
				"POSTGRES_PASSWORD": "vortex",
				"POSTGRES_DB":       "vortex",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start Postgres container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	pool, err := pgxpool.New(ctx, fmt.Sprintf("postgres://vortex:vortex@%s:%s/vortex?sslmode=disable", host, port.Port()))
	if err != nil {
		log.Fatalf("Failed to create pool: %v", err)
	}
	testStore = NewPostgresStore(pool)
	if err := testStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	code := m.Run()

	_ = testStore.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestChatRecords(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, testStore.AppendChatRecord(ctx, "0xroyce/plutus", models.ChatRecord{Timestamp: ts, Message: "hi", Response: "hello"}))
	require.NoError(t, testStore.AppendChatRecord(ctx, "0xroyce/plutus", models.ChatRecord{Timestamp: ts, Message: "again", Response: "yes"}))
	require.NoError(t, testStore.AppendChatRecord(ctx, "0xroyce/other", models.ChatRecord{Timestamp: ts, Message: "x", Response: "y"}))

	one, err := testStore.ListChatRecords(ctx, "0xroyce/plutus")
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Len(t, one["0xroyce/plutus"], 2)
	assert.Equal(t, "hi", one["0xroyce/plutus"][0].Message)
	assert.True(t, ts.Equal(one["0xroyce/plutus"][0].Timestamp))

	all, err := testStore.ListChatRecords(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSharedChats(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, testStore.SaveSharedChat(ctx, id, []byte(`{"id":"c1"}`)))
	got, err := testStore.GetSharedChat(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1"}`, string(got))

	_, err = testStore.GetSharedChat(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = testStore.GetSharedChat(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
