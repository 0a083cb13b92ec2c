package metadata

// Principal is the authenticated admin decoded from a credential.
// It is never persisted; it lives as long as the token.
type Principal struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HasRole checks whether the principal carries a specific role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && p.Role == role
}
