package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	rosterdomain "github.com/clubworks/clubledger/internal/roster/domain"
	"github.com/clubworks/clubledger/internal/server"
)

type chargeView struct {
	ID        snowflake.ID `json:"id"`
	PayerKind string       `json:"payer_kind"`
	PayerID   snowflake.ID `json:"payer_id"`
	Type      string       `json:"charge_type"`
	Status    string       `json:"status"`
	Amount    int64        `json:"amount"`
	CycleKey  string       `json:"cycle_key"`
}

type chargeListView struct {
	Data []chargeView `json:"data"`
}

type generateView struct {
	Data struct {
		CycleKey string `json:"cycle_key"`
		Created  int    `json:"created"`
		Skipped  int    `json:"skipped"`
		Failed   int    `json:"failed"`
	} `json:"data"`
}

func updateSettings(t *testing.T, c club, membershipAmount, sessionAmount int64) {
	t.Helper()

	body := map[string]any{
		"billing_mode":      "HYBRID",
		"cycle":             "MONTHLY",
		"anchor_date":       "2025-01-01",
		"due_day":           15,
		"membership_amount": membershipAmount,
		"session_amount":    sessionAmount,
	}
	status, respBody := doJSON(t, http.MethodPut,
		fmt.Sprintf("/api/orgs/%s/billing/settings", c.orgID), body, asUser(c.ownerUserID))
	if status != http.StatusOK {
		t.Fatalf("update settings: %d: %s", status, string(respBody))
	}
}

func generateCharges(t *testing.T, c club) generateView {
	t.Helper()

	status, body := doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/orgs/%s/billing/charges/generate", c.orgID), nil, asUser(c.ownerUserID))
	if status != http.StatusOK {
		t.Fatalf("generate charges: %d: %s", status, string(body))
	}
	var result generateView
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode generate result: %v", err)
	}
	return result
}

func listCharges(t *testing.T, c club, query string) []chargeView {
	t.Helper()

	status, body := doJSON(t, http.MethodGet,
		fmt.Sprintf("/api/orgs/%s/billing/charges%s", c.orgID, query), nil, asUser(c.ownerUserID))
	if status != http.StatusOK {
		t.Fatalf("list charges: %d: %s", status, string(body))
	}
	var result chargeListView
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode charge list: %v", err)
	}
	return result.Data
}

func TestE2E_FullBillingFlow(t *testing.T) {
	c := createClub(t, "flow-club")
	memberUserID := env.node.Generate()
	addMember(t, c.orgID, memberUserID, rosterdomain.OrgRoleMember)
	addGuestWithAttendance(t, c.orgID, time.Now().UTC())

	updateSettings(t, c, 50000, 7500)

	// Owner and member owe membership dues, the guest owes a session fee.
	result := generateCharges(t, c)
	if result.Data.Created != 3 {
		t.Fatalf("expected 3 charges created, got %+v", result.Data)
	}
	if result.Data.Failed != 0 {
		t.Fatalf("expected no failures, got %+v", result.Data)
	}

	charges := listCharges(t, c, "")
	if len(charges) != 3 {
		t.Fatalf("expected 3 charges listed, got %d", len(charges))
	}

	var sessionCharge *chargeView
	for i := range charges {
		if charges[i].PayerKind == "guest" {
			sessionCharge = &charges[i]
		}
	}
	if sessionCharge == nil {
		t.Fatalf("expected a guest session charge")
	}
	if sessionCharge.Type != "PER_SESSION" || sessionCharge.Amount != 7500 {
		t.Fatalf("unexpected session charge: %+v", sessionCharge)
	}

	status, body := doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/orgs/%s/billing/charges/%s/pay", c.orgID, sessionCharge.ID), nil, asUser(c.ownerUserID))
	if status != http.StatusOK {
		t.Fatalf("pay charge: %d: %s", status, string(body))
	}

	// Paying again conflicts: PAID is terminal.
	status, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/orgs/%s/billing/charges/%s/pay", c.orgID, sessionCharge.ID), nil, asUser(c.ownerUserID))
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on second pay, got %d", status)
	}

	// Settlement wrote the income entry.
	status, body = doJSON(t, http.MethodGet,
		fmt.Sprintf("/api/orgs/%s/ledger/summary", c.orgID), nil, asUser(c.ownerUserID))
	if status != http.StatusOK {
		t.Fatalf("ledger summary: %d: %s", status, string(body))
	}
	var summary struct {
		Data struct {
			Income  int64 `json:"income"`
			Expense int64 `json:"expense"`
			Balance int64 `json:"balance"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Data.Income != 7500 || summary.Data.Balance != 7500 {
		t.Fatalf("unexpected summary: %+v", summary.Data)
	}

	status, body = doJSON(t, http.MethodGet,
		fmt.Sprintf("/api/orgs/%s/finance/dashboard", c.orgID), nil, asUser(c.ownerUserID))
	if status != http.StatusOK {
		t.Fatalf("dashboard: %d: %s", status, string(body))
	}
	var dashboard struct {
		Data struct {
			Charges struct {
				PendingTotal int64 `json:"pending_total"`
				PendingCount int64 `json:"pending_count"`
				PaidTotal    int64 `json:"paid_total"`
				PaidCount    int64 `json:"paid_count"`
			} `json:"charges"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &dashboard); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dashboard.Data.Charges.PendingTotal != 100000 || dashboard.Data.Charges.PendingCount != 2 {
		t.Fatalf("unexpected pending totals: %+v", dashboard.Data.Charges)
	}
	if dashboard.Data.Charges.PaidTotal != 7500 || dashboard.Data.Charges.PaidCount != 1 {
		t.Fatalf("unexpected paid totals: %+v", dashboard.Data.Charges)
	}

	// Generation is idempotent across runs.
	again := generateCharges(t, c)
	if again.Data.Created != 0 || again.Data.Skipped != 3 {
		t.Fatalf("expected idempotent rerun, got %+v", again.Data)
	}
}

func TestE2E_MemberPermissions(t *testing.T) {
	c := createClub(t, "rbac-club")
	memberUserID := env.node.Generate()
	addMember(t, c.orgID, memberUserID, rosterdomain.OrgRoleMember)
	updateSettings(t, c, 50000, 7500)

	// Members cannot touch settings or generate charges.
	status, _ := doJSON(t, http.MethodGet,
		fmt.Sprintf("/api/orgs/%s/billing/settings", c.orgID), nil, asUser(memberUserID))
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for member settings read, got %d", status)
	}

	status, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("/api/orgs/%s/billing/charges/generate", c.orgID), nil, asUser(memberUserID))
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for member generate, got %d", status)
	}

	// Members can read the dashboard.
	status, _ = doJSON(t, http.MethodGet,
		fmt.Sprintf("/api/orgs/%s/finance/dashboard", c.orgID), nil, asUser(memberUserID))
	if status != http.StatusOK {
		t.Fatalf("expected 200 for member dashboard, got %d", status)
	}

	// Outsiders get nothing.
	status, _ = doJSON(t, http.MethodGet,
		fmt.Sprintf("/api/orgs/%s/finance/dashboard", c.orgID), nil, asUser(env.node.Generate()))
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider, got %d", status)
	}
}

func TestE2E_InternalSweep(t *testing.T) {
	c := createClub(t, "sweep-club")
	updateSettings(t, c, 40000, 6000)

	status, _ := doJSON(t, http.MethodPost, "/internal/billing/run", nil, map[string]string{
		server.HeaderInternalKey: "wrong-key",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong internal key, got %d", status)
	}

	status, body := doJSON(t, http.MethodPost, "/internal/billing/run", nil, map[string]string{
		server.HeaderInternalKey: internalKey,
	})
	if status != http.StatusOK {
		t.Fatalf("internal sweep: %d: %s", status, string(body))
	}

	var count int64
	if err := env.db.Raw(
		`SELECT COUNT(1) FROM org_charges WHERE org_id = ?`, c.orgID,
	).Scan(&count).Error; err != nil {
		t.Fatalf("count charges: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected sweep to generate charges for %s", c.orgID)
	}
}
