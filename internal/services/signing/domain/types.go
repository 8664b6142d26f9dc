// Package domain defines the types and interfaces for the signing service
package domain

import "github.com/nbd-wtf/go-nostr"

// Envelope message types exchanged with the extension-side signer
const (
	TypeSignRequest = "SIGN_REQUEST"
	TypeSignSuccess = "SIGN_SUCCESS"
	TypeSignFailure = "SIGN_FAILURE"
)

// Envelope is the wire frame for one signing exchange. Every request carries
// a fresh RequestID and the reply must echo it back
type Envelope struct {
	Type      string       `json:"type"`
	RequestID string       `json:"request_id"`
	Event     *nostr.Event `json:"event,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// IsReply reports whether the envelope type is a signer response
func (e Envelope) IsReply() bool {
	return e.Type == TypeSignSuccess || e.Type == TypeSignFailure
}
