// Package debughttp serves a read-only view of a running application's
// module graph and lifecycle history.
package debughttp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/modgraph"
)

// Introspector is the part of *modgraph.Application the router reads.
type Introspector interface {
	RootType() modgraph.ModuleType
	State() string
	Modules() []*modgraph.ModuleDescriptor
	PhaseHistory() []modgraph.PhaseRecord
}

// ModuleView is the JSON form of a loaded module.
type ModuleView struct {
	Type         string   `json:"type"`
	Position     int      `json:"position"`
	DependsOn    []string `json:"dependsOn"`
	Plugin       bool     `json:"plugin"`
	Activated    bool     `json:"activated"`
	Packages     []string `json:"packages,omitempty"`
	InstanceType string   `json:"instanceType,omitempty"`
}

// Summary is the JSON form of the application root.
type Summary struct {
	Root    string `json:"root"`
	State   string `json:"state"`
	Modules int    `json:"modules"`
}

// NewRouter returns a router serving:
//
//	GET /            application summary
//	GET /modules     modules in load order
//	GET /modules/T   one module by type name
//	GET /graph       dependency edges
//	GET /phases      phase history
func NewRouter(app Introspector) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, Summary{Root: app.RootType().String(), State: app.State(), Modules: len(app.Modules())})
	})
	r.Get("/modules", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, Views(app.Modules()))
	})
	// Module type names contain slashes, so the name is the rest of the path.
	r.Get("/modules/*", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "*")
		for _, v := range Views(app.Modules()) {
			if v.Type == name {
				writeJSON(w, v)
				return
			}
		}
		http.Error(w, "module not found", http.StatusNotFound)
	})
	r.Get("/graph", func(w http.ResponseWriter, _ *http.Request) {
		edges := modgraph.DependencyEdges(app.Modules())
		out := make([][2]string, len(edges))
		for i, e := range edges {
			out[i] = [2]string{e.From.String(), e.To.String()}
		}
		writeJSON(w, out)
	})
	r.Get("/phases", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, app.PhaseHistory())
	})
	return r
}

// Views converts descriptors to their JSON form.
func Views(modules []*modgraph.ModuleDescriptor) []ModuleView {
	views := make([]ModuleView, len(modules))
	for i, d := range modules {
		deps := d.DependencyTypes()
		names := make([]string, len(deps))
		for j, dep := range deps {
			names[j] = dep.String()
		}
		views[i] = ModuleView{
			Type:      d.Type().String(),
			Position:  i,
			DependsOn: names,
			Plugin:    d.IsPlugin(),
			Activated: d.IsActivated(),
			Packages:  d.Packages(),
		}
		if d.IsActivated() {
			views[i].InstanceType = fmt.Sprintf("%T", d.Instance())
		}
	}
	return views
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
