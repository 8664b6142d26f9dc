// Package api mounts the agent's HTTP surface: the session socket for the
// extension content side and the JSON control endpoints for its popup
package api

import (
	stdhttp "net/http"
	"strconv"

	"gitstr/internal/app"
	phttp "gitstr/internal/platform/net/http"
	journaldom "gitstr/internal/services/journal/domain"
)

// RelaysPayload is the settings wire shape; the key name matches the
// persisted settings file
type RelaysPayload struct {
	RelayList []string `json:"relayList"`
}

// Register mounts all agent endpoints
func Register(r phttp.Router, a *app.App) {
	h := &handlers{app: a}
	r.Route("/v1", func(v1 phttp.Router) {
		v1.Get("/session", h.session)
		phttp.GetJSON(v1, "/settings/relays", h.getRelays)
		phttp.PutJSON[RelaysPayload](v1, "/settings/relays", h.putRelays)
		phttp.GetJSON(v1, "/journal", h.journal)
	})
}

type handlers struct{ app *app.App }

func (h *handlers) getRelays(*stdhttp.Request) (any, error) {
	return RelaysPayload{RelayList: h.app.Settings().Relays()}, nil
}

func (h *handlers) putRelays(_ *stdhttp.Request, in RelaysPayload) (any, error) {
	if err := h.app.Settings().SetRelays(in.RelayList); err != nil {
		return nil, err
	}
	return RelaysPayload{RelayList: h.app.Settings().Relays()}, nil
}

func (h *handlers) journal(r *stdhttp.Request) (any, error) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.app.Journal().Recent(r.Context(), limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []journaldom.Entry{}
	}
	return entries, nil
}
