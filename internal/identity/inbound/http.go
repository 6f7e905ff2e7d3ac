package inbound

import (
	"context"

	"github.com/shandysiswandi/passgate/internal/identity/usecase"
	"github.com/shandysiswandi/passgate/internal/pkg/router"
)

type uc interface {
	RequestPasscode(ctx context.Context, in usecase.RequestPasscodeInput) (*usecase.RequestPasscodeOutput, error)
	VerifyPasscode(ctx context.Context, in usecase.VerifyPasscodeInput) (*usecase.VerifyPasscodeOutput, error)
	Status(ctx context.Context) (*usecase.StatusOutput, error)
}

// RegisterHTTPEndpoint mounts the passcode routes. An empty statusToken
// leaves the status route open.
func RegisterHTTPEndpoint(r *router.Router, uc uc, statusToken string) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/identity/otp/generate", end.Generate)
	r.POST("/api/v1/identity/otp/verify", end.Verify)

	r.GET("/api/v1/identity/otp/status", end.Status, router.RequireToken(statusToken))
}
