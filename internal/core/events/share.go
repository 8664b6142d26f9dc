package events

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// ShareLink renders a bech32 share reference for a signed event: repository
// announcements get an addressable naddr, everything else an nevent.
func ShareLink(ev *nostr.Event, relays []string) (string, error) {
	if len(relays) > 3 {
		relays = relays[:3]
	}
	if ev.Kind == KindRepoAnnouncement {
		return nip19.EncodeEntity(ev.PubKey, KindRepoAnnouncement, TagValue(ev, "d"), relays)
	}
	return nip19.EncodeEvent(ev.ID, relays, ev.PubKey)
}
