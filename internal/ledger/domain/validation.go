package domain

import "strings"

// ValidateApply checks a movement submission before it touches the store.
// Sign conventions are enforced per kind: deliveries and returns add stock,
// issuances remove it, adjustments may do either but never nothing.
func ValidateApply(req ApplyRequest) error {
	if strings.TrimSpace(req.EventKey) == "" {
		return ErrInvalidEventKey
	}
	if req.ItemID == 0 {
		return ErrUnknownItem
	}
	if !req.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(req.Actor) == "" {
		return ErrInvalidActor
	}
	if req.OccurredAt.IsZero() {
		return ErrInvalidOccurredAt
	}
	if req.Quantity == 0 && req.ReserveDelta == 0 {
		return ErrInvalidQuantity
	}

	switch req.Kind {
	case MovementKindDelivery, MovementKindReturn:
		if req.Quantity < 0 {
			return ErrInvalidQuantity
		}
	case MovementKindIssuance:
		if req.Quantity > 0 {
			return ErrInvalidQuantity
		}
	case MovementKindAdjustment:
		// Either sign is fine.
	}

	if req.Correcting && req.Kind != MovementKindAdjustment {
		return ErrInvalidKind
	}
	return nil
}
