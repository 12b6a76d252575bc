package authorization

import (
	"context"
	"errors"
)

const (
	ObjectBillingSettings  = "billing_settings"
	ObjectCharge           = "charge"
	ObjectLedger           = "ledger"
	ObjectFinanceDashboard = "finance_dashboard"
)

const (
	ActionBillingSettingsView   = "billing_settings.view"
	ActionBillingSettingsUpdate = "billing_settings.update"

	ActionChargeView     = "charge.view"
	ActionChargeGenerate = "charge.generate"
	ActionChargePay      = "charge.pay"
	ActionChargeVoid     = "charge.void"

	ActionLedgerView   = "ledger.view"
	ActionLedgerAppend = "ledger.append"

	ActionFinanceDashboardView = "finance_dashboard.view"
)

// Service gates every guarded operation. Actors are "system" or "user:<id>";
// user roles are resolved from the membership registry.
type Service interface {
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}

var (
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
)
