package api

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/tactics-server/api/model"
	"github.com/a-bouts/tactics-server/env"
	"github.com/a-bouts/tactics-server/feed"
	"github.com/a-bouts/tactics-server/store"
	"github.com/a-bouts/tactics-server/zones"
	"github.com/gorilla/mux"
	"github.com/pkg/profile"
)

type server struct {
	cpuprofile bool
	store      *store.Store
	hub        *feed.Hub
}

func InitServer(cpuprofile bool, st *store.Store, hub *feed.Hub) *mux.Router {

	router := mux.NewRouter().StrictSlash(true)

	s := server{
		cpuprofile: cpuprofile,
		store:      st,
		hub:        hub,
	}

	router.HandleFunc("/tactics/-/healthz", s.healthz).Methods(http.MethodGet)

	apiV1 := router.PathPrefix("/tactics/api/v1").Subrouter()
	apiV1.HandleFunc("/course", s.postCourse).Methods("POST")
	apiV1.HandleFunc("/environment", s.postEnvironment).Methods("POST")
	apiV1.HandleFunc("/fix", s.postFix).Methods("POST")
	apiV1.HandleFunc("/reset", s.postReset).Methods("POST")
	apiV1.HandleFunc("/state", s.getState).Methods("GET")
	apiV1.HandleFunc("/zones", s.getZones).Methods("GET")
	apiV1.HandleFunc("/phase", s.getPhase).Methods("GET")
	apiV1.HandleFunc("/feed", s.hub.ServeWS)

	return router
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	type health struct {
		Status string `json:"status"`
	}

	json.NewEncoder(w).Encode(health{Status: "Ok"})
}

func (s *server) postCourse(w http.ResponseWriter, req *http.Request) {
	if s.cpuprofile {
		defer profile.Start().Stop()
	}

	var payload model.Course
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	log.WithField("action", "course").Infof("Course update with %d raw marks", len(payload.Marks))

	s.store.SetRawMarks(payload.Marks, payload.Metadata)

	state := s.store.Snapshot()
	if state.Course == nil {
		// accepted but not computable yet, fewer than 2 usable marks
		w.WriteHeader(http.StatusAccepted)
		return
	}
	json.NewEncoder(w).Encode(state.Course)
}

func (s *server) postEnvironment(w http.ResponseWriter, req *http.Request) {
	var payload model.Environment
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	log.WithField("action", "environment").Info("Environment sources update")

	s.store.SetEnvironment(env.Sources{
		Live:      payload.Live,
		Record:    payload.Record,
		Metadata:  payload.Metadata,
		BoatDraft: payload.BoatDraft,
	})

	json.NewEncoder(w).Encode(s.store.Snapshot().Environment)
}

func (s *server) postFix(w http.ResponseWriter, req *http.Request) {
	var payload model.Fix
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.store.SetFix(payload.ToPhase())

	json.NewEncoder(w).Encode(s.store.Snapshot().Phase)
}

func (s *server) postReset(w http.ResponseWriter, req *http.Request) {
	log.WithField("action", "reset").Info("New race selected, resetting phase")

	s.store.Reset()

	json.NewEncoder(w).Encode(s.store.Snapshot().Phase)
}

func (s *server) getState(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(s.store.Snapshot())
}

func (s *server) getZones(w http.ResponseWriter, req *http.Request) {
	zs := s.store.Snapshot().Zones
	if zs == nil {
		// not yet computable serializes as an empty list, never null
		zs = []zones.Zone{}
	}
	json.NewEncoder(w).Encode(zs)
}

func (s *server) getPhase(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(s.store.Snapshot().Phase)
}
