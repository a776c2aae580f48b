package token

import "strings"

// Pair is the access/refresh token pair issued by the NotifiQ backend.
// It is also the exact shape persisted by the session store.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Valid reports whether both tokens are present
func (p *Pair) Valid() bool {
	return p != nil && strings.TrimSpace(p.Access) != "" && strings.TrimSpace(p.Refresh) != ""
}
