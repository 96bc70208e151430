// Package mgmt provides read-only introspection over the forwarding
// tables: an HTTP API in place of the out-of-scope NDN management wire
// protocol (spec §1 lists "the management/RIB protocol" as an external
// collaborator), grounded on the teacher's fw/mgmt module split (one file
// per table) but re-expressed as plain net/http handlers.
package mgmt

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/ndn-go/ndnfwd/core"
	"github.com/ndn-go/ndnfwd/fw"
)

var decoder = schema.NewDecoder()

// Manager exposes a Thread's tables over HTTP.
type Manager struct {
	thread *fw.Thread
	mux    *http.ServeMux
}

// NewManager constructs a Manager over thread and registers its routes.
func NewManager(thread *fw.Thread) *Manager {
	m := &Manager{thread: thread, mux: http.NewServeMux()}
	m.mux.HandleFunc("/fib", m.handleFIB)
	m.mux.HandleFunc("/cs", m.handleCS)
	m.mux.HandleFunc("/pit", m.handlePIT)
	m.mux.HandleFunc("/strategy-choice", m.handleStrategyChoice)
	m.mux.HandleFunc("/forwarder-status", m.handleForwarderStatus)
	return m
}

func (m *Manager) String() string { return "mgmt-http" }

// ServeHTTP lets Manager be mounted directly as an http.Handler.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) { m.mux.ServeHTTP(w, r) }

// csQuery is decoded from the /cs query string via gorilla/schema (spec
// (expansion): substitutes for the wire ControlParameters the out-of-scope
// management protocol would otherwise carry).
type csQuery struct {
	Prefix string `schema:"prefix"`
}

func (m *Manager) handleCS(w http.ResponseWriter, r *http.Request) {
	var q csQuery
	if err := decoder.Decode(&q, r.URL.Query()); err != nil {
		core.Log.Warn(m, "bad CS query", "err", err)
		http.Error(w, "bad query", http.StatusBadRequest)
		return
	}
	writeJSON(w, struct {
		Size   int    `json:"size"`
		Hits   uint64 `json:"hits"`
		Misses uint64 `json:"misses"`
		Admit  bool   `json:"admit"`
		Serve  bool   `json:"serve"`
	}{
		Size:   m.thread.Cs.Size(),
		Hits:   m.thread.Cs.Hits(),
		Misses: m.thread.Cs.Misses(),
		Admit:  m.thread.Cs.Admit(),
		Serve:  m.thread.Cs.Serve(),
	})
}

func (m *Manager) handleFIB(w http.ResponseWriter, r *http.Request) {
	entries := m.thread.Fib.GetAllFIBEntries()
	type nh struct {
		Face uint64 `json:"face"`
		Cost uint64 `json:"cost"`
	}
	type row struct {
		Prefix   string `json:"prefix"`
		Nexthops []nh   `json:"nexthops"`
	}
	out := make([]row, 0, len(entries))
	for _, e := range entries {
		nhs := make([]nh, 0, len(e.GetNextHops()))
		for _, n := range e.GetNextHops() {
			nhs = append(nhs, nh{Face: n.Nexthop, Cost: n.Cost})
		}
		out = append(out, row{Prefix: e.Name().String(), Nexthops: nhs})
	}
	writeJSON(w, out)
}

func (m *Manager) handlePIT(w http.ResponseWriter, r *http.Request) {
	entries := m.thread.Pit.GetAll()
	type row struct {
		Name        string `json:"name"`
		CanBePrefix bool   `json:"canBePrefix"`
		MustBeFresh bool   `json:"mustBeFresh"`
		InRecords   int    `json:"inRecords"`
		OutRecords  int    `json:"outRecords"`
	}
	out := make([]row, 0, len(entries))
	for _, e := range entries {
		out = append(out, row{
			Name:        e.EncName().String(),
			CanBePrefix: e.CanBePrefix(),
			MustBeFresh: e.MustBeFresh(),
			InRecords:   len(e.InRecords()),
			OutRecords:  len(e.OutRecords()),
		})
	}
	writeJSON(w, out)
}

func (m *Manager) handleStrategyChoice(w http.ResponseWriter, r *http.Request) {
	entries := m.thread.Fib.GetAllForwardingStrategies()
	type row struct {
		Prefix   string `json:"prefix"`
		Strategy string `json:"strategy"`
	}
	out := make([]row, 0, len(entries))
	for _, e := range entries {
		out = append(out, row{Prefix: e.Name().String(), Strategy: e.GetStrategy().String()})
	}
	writeJSON(w, out)
}

func (m *Manager) handleForwarderStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		CsSize   int `json:"csSize"`
		NFibRows int `json:"nFibEntries"`
		NPit     int `json:"nPitEntries"`
		NFaces   int `json:"nFaces"`
	}{
		CsSize:   m.thread.Cs.Size(),
		NFibRows: len(m.thread.Fib.GetAllFIBEntries()),
		NPit:     len(m.thread.Pit.GetAll()),
		NFaces:   len(m.thread.Faces.All()),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
