// Package policy decides which role may do what.
package policy

import (
	"fmt"

	"medeasy/pharmacy/domain"
)

// Capability names an operation guarded by role.
type Capability string

const (
	ManageUsers      Capability = "users.manage"
	WriteDrugs       Capability = "drugs.write"
	ImportDrugs      Capability = "drugs.import"
	ManagePurchases  Capability = "purchases.manage"
	ApprovePurchases Capability = "purchases.approve"
	WriteSuppliers   Capability = "suppliers.write"
	ReviewRequests   Capability = "requests.review"
	ViewReports      Capability = "reports.view"
)

var grants = map[domain.Role]map[Capability]bool{
	domain.RoleAdmin: {
		ManageUsers:      true,
		WriteDrugs:       true,
		ImportDrugs:      true,
		ManagePurchases:  true,
		ApprovePurchases: true,
		WriteSuppliers:   true,
		ReviewRequests:   true,
		ViewReports:      true,
	},
	domain.RolePharmacist: {
		WriteDrugs:      true,
		ManagePurchases: true,
		WriteSuppliers:  true,
		ReviewRequests:  true,
		ViewReports:     true,
	},
	// staff only sell and file requests
	domain.RoleStaff: {},
}

// Can reports whether role holds c. Unknown roles hold nothing.
func Can(role domain.Role, c Capability) bool {
	return grants[role][c]
}

// Authorize is Can as an error wrapping domain.ErrForbidden.
func Authorize(role domain.Role, c Capability) error {
	if Can(role, c) {
		return nil
	}
	return fmt.Errorf("%s may not %s: %w", role, c, domain.ErrForbidden)
}

// RequestScope returns the owner filter applied when role lists requests:
// reviewers see everything (0), everyone else only their own.
func RequestScope(userID int64, role domain.Role) int64 {
	if Can(role, ReviewRequests) {
		return 0
	}
	return userID
}

// AuthorizeRequestUpdate checks an update of r by the given user. Reviewers
// may change anything. Owners may edit the content of their own pending
// requests but never the status.
func AuthorizeRequestUpdate(userID int64, role domain.Role, r domain.Request, upd domain.RequestUpdate) error {
	if Can(role, ReviewRequests) {
		return nil
	}
	if r.UserID != userID {
		return fmt.Errorf("request %d belongs to another user: %w", r.ID, domain.ErrForbidden)
	}
	if upd.Status != nil && *upd.Status != r.Status {
		return fmt.Errorf("%s may not change request status: %w", role, domain.ErrForbidden)
	}
	if r.Status != domain.RequestPending {
		return fmt.Errorf("request %d is %s: %w", r.ID, r.Status, domain.ErrInvalidTransition)
	}
	return nil
}

// AuthorizeRequestView allows reviewers and the owner.
func AuthorizeRequestView(userID int64, role domain.Role, r domain.Request) error {
	if Can(role, ReviewRequests) || r.UserID == userID {
		return nil
	}
	return fmt.Errorf("request %d belongs to another user: %w", r.ID, domain.ErrForbidden)
}
