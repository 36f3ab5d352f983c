package auth

import "time"

// Claims is the signed payload carried by a bearer token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager abstracts token issuance and verification.
//
// Parse must return the decoded claims together with
// identity.ErrTokenExpired when expiry is the only defect, so callers can
// still log who the token belonged to. Signature or format defects yield nil
// claims and identity.ErrTokenInvalid.
type TokenManager interface {
	Generate(subject string) (string, error)
	Parse(token string) (*Claims, error)
}
