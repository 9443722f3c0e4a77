// Package events stores stock facts in a transactional outbox for
// downstream consumers (reporting, notifications).
package events

// Stock event types written to the outbox.
const (
	EventMovementApplied = "stock.movement_applied"
	EventDriftDetected   = "stock.drift_detected"
	EventSettingChanged  = "stock.setting_changed"
	EventOverrideChanged = "stock.threshold_override_changed"
)
