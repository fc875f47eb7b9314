package harness

import (
	"context"
	"fmt"

	"github.com/QalbeHabib/autobase-smart-contract/internal/view"
)

// evalAssertions checks every assertion against the world's state and
// returns a description of each failure.
func evalAssertions(ctx context.Context, assertions []Assertion, w *World) []string {
	var failures []string
	for i, a := range assertions {
		if msg := evalAssertion(ctx, a, w); msg != "" {
			failures = append(failures, fmt.Sprintf("assertion %d (%s): %s", i, a.Type, msg))
		}
	}
	return failures
}

func evalAssertion(ctx context.Context, a Assertion, w *World) string {
	switch a.Type {
	case AssertBalance:
		got := w.Ledger.BalanceOf(a.CurrencyID, a.Address)
		if got != a.Amount {
			return fmt.Sprintf("balanceOf(%s, %s) = %d, want %d", a.CurrencyID, a.Address, got, a.Amount)
		}

	case AssertTotalSupply:
		got := w.Ledger.TotalSupply(a.CurrencyID)
		if got != a.Amount {
			return fmt.Sprintf("totalSupply(%s) = %d, want %d", a.CurrencyID, got, a.Amount)
		}

	case AssertHoldings:
		got := w.Inventory.HoldingsFor(a.Address)[a.ResourceID]
		if got != a.Amount {
			return fmt.Sprintf("holdings(%s, %s) = %d, want %d", a.ResourceID, a.Address, got, a.Amount)
		}

	case AssertResourceSupply:
		res, ok := w.Inventory.Resource(a.ResourceID)
		if !ok {
			return fmt.Sprintf("resource %s does not exist", a.ResourceID)
		}
		if res.CurrentSupply != a.Amount {
			return fmt.Sprintf("currentSupply(%s) = %d, want %d", a.ResourceID, res.CurrentSupply, a.Amount)
		}

	case AssertMemberRole:
		role, ok := w.Authority.RoleOf(a.RoomID, a.UserID)
		if !ok {
			return fmt.Sprintf("%s has no role in room %s", a.UserID, a.RoomID)
		}
		if role.ID != a.RoleID {
			return fmt.Sprintf("roleOf(%s, %s) = %s, want %s", a.RoomID, a.UserID, role.ID, a.RoleID)
		}

	case AssertIsMember:
		want := true
		if a.Member != nil {
			want = *a.Member
		}
		if got := w.Authority.IsMember(a.RoomID, a.UserID); got != want {
			return fmt.Sprintf("isMember(%s, %s) = %v, want %v", a.RoomID, a.UserID, got, want)
		}

	case AssertDeviceAuthorized:
		want := true
		if a.Authorized != nil {
			want = *a.Authorized
		}
		if got := w.Identity.IsAuthorizedDevice(a.MasterKey, a.DeviceKey); got != want {
			return fmt.Sprintf("isAuthorizedDevice = %v, want %v", got, want)
		}

	case AssertGateAccess:
		want := true
		if a.Allowed != nil {
			want = *a.Allowed
		}
		if got := w.Gates.CheckAccess(a.GateID, a.Address); got != want {
			return fmt.Sprintf("checkAccess(%s, %s) = %v, want %v", a.GateID, a.Address, got, want)
		}

	case AssertRecordCount:
		records, err := w.View.List(ctx, view.Filter{Status: a.Status})
		if err != nil {
			return fmt.Sprintf("list records: %v", err)
		}
		if len(records) != a.Count {
			return fmt.Sprintf("record count (status %q) = %d, want %d", a.Status, len(records), a.Count)
		}

	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
	return ""
}
