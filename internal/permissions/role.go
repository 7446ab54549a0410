// Package permissions defines client roles and the method access policy
// enforced by the gateway's MethodRouter.
package permissions

// Role is the permission level granted to an authenticated client.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// writeMethods requires at least operator to invoke; everything else
// (reads, status) is available to viewers too.
var writeMethods = map[string]bool{
	"cron.add":    true,
	"cron.update": true,
	"cron.remove": true,
	"cron.run":    true,

	"pairing.request": true,
	"pairing.approve": true,
	"pairing.revoke":  true,
}

// Engine decides whether a role may invoke a given RPC method.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// CanAccess reports whether role is permitted to call method.
func (e *Engine) CanAccess(role Role, method string) bool {
	if role == RoleAdmin {
		return true
	}
	if writeMethods[method] {
		return role == RoleOperator
	}
	return role == RoleOperator || role == RoleViewer
}
