package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSender struct {
	err   error
	calls []string
}

func (r *recordSender) Send(_ context.Context, identity, code string) error {
	r.calls = append(r.calls, identity+":"+code)
	return r.err
}

func TestDeliverPasscode(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		in        DeliverPasscodeInput
		sendErr   error
		wantErr   bool
		wantCalls []string
	}{
		{
			name:      "Delivered",
			in:        DeliverPasscodeInput{Identity: "a@example.com", Code: "482913", ExpiresAt: now.Add(time.Minute)},
			wantCalls: []string{"a@example.com:482913"},
		},
		{
			name:      "NoExpiryStamp",
			in:        DeliverPasscodeInput{Identity: "a@example.com", Code: "482913"},
			wantCalls: []string{"a@example.com:482913"},
		},
		{
			name: "Expired",
			in:   DeliverPasscodeInput{Identity: "a@example.com", Code: "482913", ExpiresAt: now},
		},
		{
			name: "InvalidIdentity",
			in:   DeliverPasscodeInput{Identity: "nope", Code: "482913"},
		},
		{
			name: "NonDigitCode",
			in:   DeliverPasscodeInput{Identity: "a@example.com", Code: "48a913"},
		},
		{
			name:      "SendFailureIsReturned",
			in:        DeliverPasscodeInput{Identity: "a@example.com", Code: "482913", ExpiresAt: now.Add(time.Minute)},
			sendErr:   errors.New("smtp down"),
			wantErr:   true,
			wantCalls: []string{"a@example.com:482913"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := validator.NewV10Validator()
			require.NoError(t, err)

			snd := &recordSender{err: tt.sendErr}
			uc := New(Dependency{
				Sender:     snd,
				Clock:      clock.NewManual(now),
				Validator:  v,
				Instrument: instrument.NewNoop(),
			})

			err = uc.DeliverPasscode(context.Background(), tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, snd.calls)
		})
	}
}
