package entity

// Credentials is the persisted credential pair: the opaque bearer credential
// presented on every request, and the longer-lived refresh counterpart used
// solely to obtain a new bearer credential. The pair is written and cleared
// atomically; the credential store is its single source of truth.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether there is no usable bearer credential. A nil receiver
// is a valid "absent" state.
func (c *Credentials) Empty() bool {
	return c == nil || c.AccessToken == ""
}
