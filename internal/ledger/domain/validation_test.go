package domain

import (
	"errors"
	"testing"
	"time"
)

func validReq() ApplyRequest {
	return ApplyRequest{
		EventKey:   "ev-1",
		ItemID:     1,
		Kind:       MovementKindDelivery,
		Quantity:   10,
		OccurredAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Actor:      "tester",
	}
}

func TestValidateApply(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ApplyRequest)
		wantErr error
	}{
		{"valid delivery", func(r *ApplyRequest) {}, nil},
		{"missing event key", func(r *ApplyRequest) { r.EventKey = "  " }, ErrInvalidEventKey},
		{"missing item", func(r *ApplyRequest) { r.ItemID = 0 }, ErrUnknownItem},
		{"unknown kind", func(r *ApplyRequest) { r.Kind = "transfer" }, ErrInvalidKind},
		{"missing actor", func(r *ApplyRequest) { r.Actor = "" }, ErrInvalidActor},
		{"missing occurred_at", func(r *ApplyRequest) { r.OccurredAt = time.Time{} }, ErrInvalidOccurredAt},
		{"zero delta", func(r *ApplyRequest) { r.Quantity = 0 }, ErrInvalidQuantity},
		{"negative delivery", func(r *ApplyRequest) { r.Quantity = -4 }, ErrInvalidQuantity},
		{"positive issuance", func(r *ApplyRequest) {
			r.Kind = MovementKindIssuance
			r.Quantity = 4
		}, ErrInvalidQuantity},
		{"negative return", func(r *ApplyRequest) {
			r.Kind = MovementKindReturn
			r.Quantity = -4
		}, ErrInvalidQuantity},
		{"negative adjustment", func(r *ApplyRequest) {
			r.Kind = MovementKindAdjustment
			r.Quantity = -4
		}, nil},
		{"correcting non-adjustment", func(r *ApplyRequest) { r.Correcting = true }, ErrInvalidKind},
		{"reserve-only movement", func(r *ApplyRequest) {
			r.Kind = MovementKindAdjustment
			r.Quantity = 0
			r.ReserveDelta = 5
		}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validReq()
			tc.mutate(&req)
			err := ValidateApply(req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
