//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package mgmt exposes the ROSpec lifecycle and the tag inventory
// over HTTP. It's a library surface: the caller owns the listener
// and the http.Server wrapping the router.
package mgmt

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"edgexfoundry-holding/rfid-llrp-engine/internal/inventory"
	"edgexfoundry-holding/rfid-llrp-engine/internal/llrp"
	"edgexfoundry-holding/rfid-llrp-engine/internal/logutil"

	"github.com/edgexfoundry/go-mod-core-contracts/clients/logger"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const (
	apiBase = "/api/v1"

	pingRoute      = apiBase + "/ping"
	rospecsRoute   = apiBase + "/rospecs"
	rospecRoute    = apiBase + "/rospecs/{id}"
	rospecOpRoute  = apiBase + "/rospecs/{id}/{action}"
	inventoryRoute = apiBase + "/inventory"

	maxBodyBytes = 100 * 1024
)

// Server wires the lifecycle controller and inventory into HTTP handlers.
type Server struct {
	lgr  logutil.LogWrap
	ctrl *llrp.ROSpecController
	inv  *inventory.TagProcessor
}

func NewServer(lc logger.LoggingClient, ctrl *llrp.ROSpecController, inv *inventory.TagProcessor) *Server {
	return &Server{
		lgr:  logutil.LogWrap{LoggingClient: lc},
		ctrl: ctrl,
		inv:  inv,
	}
}

// Router returns the configured route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(pingRoute, s.ping).Methods(http.MethodGet)
	r.HandleFunc(rospecsRoute, s.listROSpecs).Methods(http.MethodGet)
	r.HandleFunc(rospecsRoute, s.addROSpec).Methods(http.MethodPost)
	r.HandleFunc(rospecOpRoute, s.rospecAction).Methods(http.MethodPost)
	r.HandleFunc(rospecRoute, s.deleteROSpec).Methods(http.MethodDelete)
	r.HandleFunc(inventoryRoute, s.getInventory).Methods(http.MethodGet)
	return r
}

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("pong")); err != nil {
		s.lgr.Error("writing ping response", "error", err.Error())
	}
}

// rospecInfo is the list representation of one tracked spec.
type rospecInfo struct {
	ROSpecID uint32 `json:"rospec_id"`
	State    string `json:"state"`
}

func (s *Server) listROSpecs(w http.ResponseWriter, _ *http.Request) {
	ids := s.ctrl.IDs()
	infos := make([]rospecInfo, 0, len(ids))
	for _, id := range ids {
		state, ok := s.ctrl.StateOf(id)
		if !ok {
			continue // deleted between IDs and StateOf
		}
		infos = append(infos, rospecInfo{ROSpecID: id, State: state.String()})
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) addROSpec(w http.ResponseWriter, req *http.Request) {
	var spec llrp.ROSpec
	body := http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&spec); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(err, "parsing ROSpec"))
		return
	}

	if err := s.ctrl.Add(req.Context(), &spec); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rospecInfo{
		ROSpecID: spec.ROSpecID,
		State:    llrp.ROSpecStateDisabled.String(),
	})
}

func (s *Server) rospecAction(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	id, err := parseID(vars["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var op func(context.Context, uint32) error
	switch vars["action"] {
	case "enable":
		op = s.ctrl.Enable
	case "start":
		op = s.ctrl.Start
	case "stop":
		op = s.ctrl.Stop
	case "disable":
		op = s.ctrl.Disable
	default:
		s.writeError(w, http.StatusNotFound,
			errors.Errorf("unknown action %q", vars["action"]))
		return
	}

	if err := op(req.Context(), id); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	state, _ := s.ctrl.StateOf(id)
	s.writeJSON(w, http.StatusOK, rospecInfo{ROSpecID: id, State: state.String()})
}

func (s *Server) deleteROSpec(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(mux.Vars(req)["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.ctrl.Delete(req.Context(), id); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getInventory(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.inv.Snapshot())
}

func parseID(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid ROSpec id %q", raw)
	}
	return uint32(id), nil
}

// statusFor maps controller errors to HTTP codes: unknown specs are 404,
// transitions the lifecycle forbids are 409, reader refusals are 502,
// and a reader that never answered is 504.
func statusFor(err error) int {
	var se *llrp.StatusError
	switch {
	case errors.Is(err, llrp.ErrUnknownROSpec):
		return http.StatusNotFound
	case errors.Is(err, llrp.ErrInvalidStateTransition),
		errors.Is(err, llrp.ErrROSpecExists):
		return http.StatusConflict
	case errors.Is(err, llrp.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.lgr.Error("writing response body", "error", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.lgr.ErrIf(code >= http.StatusInternalServerError, err.Error(),
		logutil.KeyValue{Key: "status", Val: code})
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}
