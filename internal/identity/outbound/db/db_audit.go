package db

import (
	"context"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
)

const insertAudit = `
INSERT INTO identity_otp_audits (id, identity_hash, event, outcome, client_ip, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

func (s *DB) CreateAudit(ctx context.Context, in entity.Audit) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAudit")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, insertAudit,
		in.ID, in.IdentityHash, int16(in.Event), in.Outcome, in.ClientIP, in.CreatedAt)
	err = s.mapError(err)
	return err
}
