// Package domain defines the settings types
package domain

// DefaultRelays is the built-in endpoint set used when no relayList is stored
var DefaultRelays = []string{
	"wss://relay.damus.io",
	"wss://nos.lol",
	"wss://relay.snort.social",
	"wss://nostr.wine",
	"wss://bitcoiner.social/",
}

// Settings is the persisted agent configuration. relayList is the only
// recognized key; unknown keys are preserved by never rewriting them
type Settings struct {
	RelayList []string `json:"relayList" validate:"omitempty,dive,uri"`
}

// Relays returns the configured list, falling back to the defaults
func (s Settings) Relays() []string {
	if len(s.RelayList) == 0 {
		return append([]string(nil), DefaultRelays...)
	}
	return append([]string(nil), s.RelayList...)
}
