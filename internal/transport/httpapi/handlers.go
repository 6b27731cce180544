// Package httpapi serves the plain HTTP control surface: start, reset, state
// and single-move commands over GET requests.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"gridarena.ai/internal/protocol"
	"gridarena.ai/internal/sim/world"
)

type API struct {
	world *world.World
	log   *log.Logger
}

func New(w *world.World, logger *log.Logger) *API {
	return &API{world: w, log: logger}
}

// Register mounts the endpoints, including the historical Y-suffixed aliases.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ACT", a.Start)
	mux.HandleFunc("/ACTY", a.Start)
	mux.HandleFunc("/RST", a.Reset)
	mux.HandleFunc("/RSTY", a.Reset)
	mux.HandleFunc("/STT", a.State)
	mux.HandleFunc("/CMD", a.Cmd)
}

func (a *API) Start(rw http.ResponseWriter, r *http.Request) {
	if !allowGet(rw, r) {
		return
	}
	a.world.Start()
	writeJSON(rw, http.StatusOK, protocol.StatusResponse{Status: "RUNNING"})
}

func (a *API) Reset(rw http.ResponseWriter, r *http.Request) {
	if !allowGet(rw, r) {
		return
	}
	a.world.Reset()
	writeJSON(rw, http.StatusOK, protocol.StatusResponse{Status: "RESET"})
}

func (a *API) State(rw http.ResponseWriter, r *http.Request) {
	if !allowGet(rw, r) {
		return
	}
	writeJSON(rw, http.StatusOK, a.world.ReadSnapshot().StateMsg())
}

// Cmd queues one move: /CMD?move=UP&robot=3 or /CMD?move=UP&code=19108.
func (a *API) Cmd(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	var id world.Identity
	id.Code = strings.TrimSpace(q.Get("code"))
	if raw := strings.TrimSpace(q.Get("robot")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(rw, &world.ValidationError{Code: protocol.ErrBadRequest, Field: "robot", Message: "robot must be an integer"})
			return
		}
		id.Robot = &n
	}

	if _, err := a.world.SubmitIntentAs(id, q.Get("move")); err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, protocol.StatusResponse{OK: true})
}

func allowGet(rw http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeError(rw http.ResponseWriter, err error) {
	var verr *world.ValidationError
	if errors.As(err, &verr) {
		writeJSON(rw, http.StatusBadRequest, protocol.ErrorResponse{Error: verr.Code, Message: verr.Error()})
		return
	}
	writeJSON(rw, http.StatusInternalServerError, protocol.ErrorResponse{Error: protocol.ErrInternal, Message: err.Error()})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
