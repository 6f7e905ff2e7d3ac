package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/passgate/internal/identity/entity"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("passgate"),
		tcpostgres.WithUsername("passgate"),
		tcpostgres.WithPassword("passgate"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applied, err := migrate.Up(ctx, pool, Migrations())
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	// idempotent
	applied, err = migrate.Up(ctx, pool, Migrations())
	require.NoError(t, err)
	require.Zero(t, applied)

	return pool
}

func listAudits(t *testing.T, pool *pgxpool.Pool, identityHash string) []entity.Audit {
	t.Helper()

	rows, err := pool.Query(context.Background(), `
SELECT id, identity_hash, event, outcome, client_ip, created_at
FROM identity_otp_audits
WHERE identity_hash = $1
ORDER BY created_at DESC, id DESC`, identityHash)
	require.NoError(t, err)

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Audit, error) {
		var a entity.Audit
		var event int16
		err := row.Scan(&a.ID, &a.IdentityHash, &event, &a.Outcome, &a.ClientIP, &a.CreatedAt)
		a.Event = entity.AuditEvent(event)
		return a, err
	})
	require.NoError(t, err)
	return out
}

func TestDB_Audits(t *testing.T) {
	pool := newTestPool(t)
	db := NewDB(pool, instrument.NewNoop())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	audits := []entity.Audit{
		{ID: 1, IdentityHash: "fp-a", Event: entity.AuditEventIssued, ClientIP: "10.0.0.1", CreatedAt: base},
		{ID: 2, IdentityHash: "fp-a", Event: entity.AuditEventVerified, Outcome: "mismatch", ClientIP: "10.0.0.1", CreatedAt: base.Add(time.Minute)},
		{ID: 3, IdentityHash: "fp-b", Event: entity.AuditEventRateLimited, CreatedAt: base},
	}
	for _, a := range audits {
		require.NoError(t, db.CreateAudit(ctx, a))
	}

	got := listAudits(t, pool, "fp-a")
	require.Len(t, got, 2)

	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, entity.AuditEventVerified, got[0].Event)
	assert.Equal(t, "mismatch", got[0].Outcome)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(time.Minute)))
	assert.Equal(t, entity.AuditEventIssued, got[1].Event)

	assert.Len(t, listAudits(t, pool, "fp-b"), 1)
	assert.Empty(t, listAudits(t, pool, "fp-none"))
}

func TestDB_DuplicateAudit(t *testing.T) {
	pool := newTestPool(t)
	db := NewDB(pool, instrument.NewNoop())
	ctx := context.Background()

	a := entity.Audit{ID: 42, IdentityHash: "fp", Event: entity.AuditEventIssued, CreatedAt: time.Now()}
	require.NoError(t, db.CreateAudit(ctx, a))
	assert.ErrorIs(t, db.CreateAudit(ctx, a), ErrDuplicateAudit)
}

func TestAuditEvent_String(t *testing.T) {
	assert.Equal(t, "issued", entity.AuditEventIssued.String())
	assert.Equal(t, "rate_limited", entity.AuditEventRateLimited.String())
	assert.Equal(t, "delivery_failed", entity.AuditEventDeliveryFailed.String())
	assert.Equal(t, "verified", entity.AuditEventVerified.String())
	assert.Equal(t, "unknown", entity.AuditEvent(99).String())
}
