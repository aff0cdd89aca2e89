package server

import (
	"time"

	"github.com/teranos/hamcall/callsign"
	"github.com/teranos/hamcall/dxcc"
)

// ServerState is the lifecycle state reported by /health.
type ServerState int

const (
	ServerStateStarting ServerState = iota // Listener not yet bound
	ServerStateRunning                     // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

func (s ServerState) String() string {
	switch s {
	case ServerStateStarting:
		return "starting"
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	}
	return "unknown"
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string     `json:"status"`
	State         string     `json:"state"`
	Version       string     `json:"version"`
	Commit        string     `json:"commit"`
	DatasetLoaded bool       `json:"dataset_loaded"`
	DatasetDate   *time.Time `json:"dataset_date,omitempty"`
	Clients       int        `json:"clients"`
}

// LookupResponse is one analyzed call. Exactly one of Result and Error is set.
type LookupResponse struct {
	Call       string               `json:"call"`
	Outcome    string               `json:"outcome"`
	Result     *callsign.Result     `json:"result,omitempty"`
	Error      string               `json:"error,omitempty"`
	Candidates []callsign.Candidate `json:"candidates,omitempty"`
	LookupID   string               `json:"lookup_id,omitempty"`
}

// BatchLookupRequest is the body of POST /api/lookup. At applies to every
// call without its own time.
type BatchLookupRequest struct {
	At    string            `json:"at,omitempty"`
	Calls []string          `json:"calls,omitempty"`
	Items []BatchLookupItem `json:"items,omitempty"`
}

// BatchLookupItem is a call with its own time.
type BatchLookupItem struct {
	Call string `json:"call"`
	At   string `json:"at,omitempty"`
}

// BatchLookupResponse is the body returned for POST /api/lookup.
type BatchLookupResponse struct {
	Results []LookupResponse `json:"results"`
	Total   int              `json:"total"`
	Failed  int              `json:"failed"`
}

// EntityView is the JSON form of a dxcc.Entity.
type EntityView struct {
	ADIF            dxcc.ADIF      `json:"adif"`
	Name            string         `json:"name"`
	Prefix          string         `json:"prefix"`
	Deleted         bool           `json:"deleted"`
	Continent       dxcc.Continent `json:"continent"`
	CQZone          int            `json:"cq_zone"`
	ITUZone         int            `json:"itu_zone,omitempty"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	Window          string         `json:"window"`
	Whitelist       bool           `json:"whitelist,omitempty"`
	WhitelistWindow string         `json:"whitelist_window,omitempty"`
}

func newEntityView(e *dxcc.Entity) EntityView {
	v := EntityView{
		ADIF:      e.ADIF,
		Name:      e.Name,
		Prefix:    e.Prefix,
		Deleted:   e.Deleted,
		Continent: e.Continent,
		CQZone:    e.CQZone,
		ITUZone:   e.ITUZone,
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		Window:    e.Window.String(),
		Whitelist: e.Whitelist,
	}
	if e.Whitelist {
		v.WhitelistWindow = e.WhitelistWindow.String()
	}
	return v
}

// PrefixView is the JSON form of a dxcc.Prefix.
type PrefixView struct {
	Record      int            `json:"record"`
	Call        string         `json:"call"`
	ADIF        dxcc.ADIF      `json:"adif"`
	Entity      string         `json:"entity"`
	Continent   dxcc.Continent `json:"continent,omitempty"`
	CQZone      int            `json:"cq_zone,omitempty"`
	ITUZone     int            `json:"itu_zone,omitempty"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Window      string         `json:"window"`
	Whitelisted bool           `json:"whitelisted,omitempty"`
}

func newPrefixView(p *dxcc.Prefix) PrefixView {
	return PrefixView{
		Record:      p.Record,
		Call:        p.Call,
		ADIF:        p.ADIF,
		Entity:      p.EntityName,
		Continent:   p.Continent,
		CQZone:      p.CQZone,
		ITUZone:     p.ITUZone,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Window:      p.Window.String(),
		Whitelisted: p.Whitelisted,
	}
}

// DatasetResponse describes the loaded snapshot.
type DatasetResponse struct {
	Path     string     `json:"path"`
	LoadedAt time.Time  `json:"loaded_at"`
	Stats    dxcc.Stats `json:"stats"`
}

// WebSocket messages. Clients send LookupMessage; the server answers with
// ResultMessage and pushes DatasetMessage after every reload.
type LookupMessage struct {
	Type string `json:"type"` // "lookup"
	ID   string `json:"id,omitempty"`
	Call string `json:"call"`
	At   string `json:"at,omitempty"`
}

type ResultMessage struct {
	Type string `json:"type"` // "result" or "error"
	ID   string `json:"id,omitempty"`
	LookupResponse
}

type DatasetMessage struct {
	Type  string     `json:"type"` // "dataset"
	Path  string     `json:"path"`
	Stats dxcc.Stats `json:"stats"`
}
