// Copyright ©️ modfold contributors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package serve implements the exchange server the modfold client syncs
// with: project registration, map distribution and mod collection.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/modfold/modfold/pkg/protocol"
)

// maxBundleSize bounds uploaded payloads.
const maxBundleSize = 256 << 20

type Server struct {
	*ServerConfig
	srv   *http.Server
	r     *mux.Router
	store *Store
}

func NewServer(sc *ServerConfig) (*Server, error) {
	s := &Server{
		ServerConfig: sc,
		srv: &http.Server{
			Addr:         sc.Listen,
			ReadTimeout:  sc.ReadTimeout.Duration,
			IdleTimeout:  sc.IdleTimeout.Duration,
			WriteTimeout: sc.WriteTimeout.Duration,
		},
		store: NewStore(sc.Projects),
	}
	s.initialize()
	return s, nil
}

func (s *Server) initialize() {
	r := mux.NewRouter().UseEncodedPath()
	r.HandleFunc("/list_projects", s.authed(s.ListProjects)).Methods("POST")
	r.HandleFunc("/create_project", s.authed(s.CreateProject)).Methods("POST")
	r.HandleFunc("/delete_project/{mid}", s.authed(s.DeleteProject)).Methods("POST")
	r.HandleFunc("/modding_status/{mid}", s.ModdingStatus).Methods("POST")
	r.HandleFunc("/open_modding/{mid}", s.authed(s.OpenModding)).Methods("POST")
	r.HandleFunc("/close_modding/{mid}", s.authed(s.CloseModding)).Methods("POST")
	r.HandleFunc("/get_checksum/{mid}", s.GetChecksum).Methods("GET")
	r.HandleFunc("/update_map/{mid}", s.authed(s.UpdateMap)).Methods("POST")
	r.HandleFunc("/sync/{mid}", s.authed(s.Sync)).Methods("POST")
	r.HandleFunc("/submit_mods/{mid}", s.authed(s.SubmitMods)).Methods("POST")
	r.HandleFunc("/patch_mods/{mid}", s.authed(s.PatchMods)).Methods("POST")
	s.r = r
	s.srv.Handler = r
}

func (s *Server) ListenAndServe() error {
	logrus.Infof("%s listening on %s, projects at %s", s.BannerVersion, s.Listen, s.Projects)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func renderJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("encode response error: %v", err)
	}
}

func renderLoginFailed(w http.ResponseWriter) {
	renderJSON(w, http.StatusUnauthorized, &protocol.GenericResponse{
		User:   protocol.LoginBad,
		Action: "denied",
	})
}

func renderRefused(w http.ResponseWriter, action string) {
	renderJSON(w, http.StatusOK, &protocol.GenericResponse{
		User:   protocol.LoginOK,
		Action: action,
	})
}

func renderOk(w http.ResponseWriter) {
	renderJSON(w, http.StatusOK, &protocol.GenericResponse{
		User:   protocol.LoginOK,
		Action: protocol.ActionOK,
	})
}

type authedFunc func(w http.ResponseWriter, r *http.Request, email string)

// authed wraps a handler with basic-auth access-key verification.
func (s *Server) authed(next authedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, accessKey, ok := r.BasicAuth()
		if !ok {
			renderLoginFailed(w)
			return
		}
		if err := VerifyAccessKey(s.TokenSecret, email, accessKey); err != nil {
			logrus.Warnf("auth failed for %s: %v", email, err)
			renderLoginFailed(w)
			return
		}
		next(w, r, email)
	}
}

func (s *Server) ListProjects(w http.ResponseWriter, r *http.Request, email string) {
	projects, err := s.store.List()
	if err != nil {
		logrus.Errorf("list projects error: %v", err)
		renderJSON(w, http.StatusInternalServerError, &protocol.ProjectList{User: protocol.LoginOK})
		return
	}
	renderJSON(w, http.StatusOK, &protocol.ProjectList{User: protocol.LoginOK, Projects: projects})
}

func (s *Server) CreateProject(w http.ResponseWriter, r *http.Request, email string) {
	id, err := s.store.Create(email)
	if err != nil {
		logrus.Errorf("create project error: %v", err)
		renderJSON(w, http.StatusInternalServerError, &protocol.CreateProj{
			User:   protocol.LoginOK,
			Action: "create failed",
			NewID:  protocol.NoID,
		})
		return
	}
	logrus.Infof("%s created project %s", email, id)
	renderJSON(w, http.StatusOK, &protocol.CreateProj{
		User:   protocol.LoginOK,
		Action: protocol.ActionOK,
		NewID:  id,
	})
}

func (s *Server) DeleteProject(w http.ResponseWriter, r *http.Request, email string) {
	mid := mux.Vars(r)["mid"]
	if err := s.store.Delete(mid, email); err != nil {
		s.renderStoreError(w, "delete project", mid, err)
		return
	}
	logrus.Infof("%s deleted project %s", email, mid)
	renderOk(w)
}

func (s *Server) ModdingStatus(w http.ResponseWriter, r *http.Request) {
	mid := mux.Vars(r)["mid"]
	status, err := s.store.Status(mid)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	renderJSON(w, http.StatusOK, &protocol.ModdingStatus{Status: status})
}

func (s *Server) OpenModding(w http.ResponseWriter, r *http.Request, email string) {
	s.setStatus(w, r, StatusOpen)
}

func (s *Server) CloseModding(w http.ResponseWriter, r *http.Request, email string) {
	s.setStatus(w, r, StatusClosed)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request, status string) {
	mid := mux.Vars(r)["mid"]
	if err := s.store.SetStatus(mid, status); err != nil {
		s.renderStoreError(w, "set status", mid, err)
		return
	}
	renderOk(w)
}

func (s *Server) GetChecksum(w http.ResponseWriter, r *http.Request) {
	mid := mux.Vars(r)["mid"]
	sum, err := s.store.Checksum(mid)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	renderJSON(w, http.StatusOK, &protocol.Checksum{Sum: sum})
}

func (s *Server) formFile(w http.ResponseWriter, r *http.Request, field string) (string, []byte, bool) {
	if err := r.ParseMultipartForm(maxBundleSize); err != nil {
		renderRefused(w, "bad multipart payload")
		return "", nil, false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		renderRefused(w, "missing "+field)
		return "", nil, false
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBundleSize))
	if err != nil {
		renderRefused(w, "unreadable "+field)
		return "", nil, false
	}
	return header.Filename, data, true
}

func (s *Server) UpdateMap(w http.ResponseWriter, r *http.Request, email string) {
	mid := mux.Vars(r)["mid"]
	name, data, ok := s.formFile(w, r, "file")
	if !ok {
		return
	}
	if err := s.store.UpdateMap(mid, name, data); err != nil {
		s.renderStoreError(w, "update map", mid, err)
		return
	}
	logrus.Infof("%s updated map of %s (%d bytes)", email, mid, len(data))
	renderOk(w)
}

func (s *Server) Sync(w http.ResponseWriter, r *http.Request, email string) {
	mid := mux.Vars(r)["mid"]
	bundle, err := s.store.Bundle(mid)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			http.NotFound(w, r)
			return
		}
		logrus.Errorf("bundle %s error: %v", mid, err)
		http.Error(w, "bundle failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bundle)
}

func (s *Server) SubmitMods(w http.ResponseWriter, r *http.Request, email string) {
	mid := mux.Vars(r)["mid"]
	if status, err := s.store.Status(mid); err != nil || status != StatusOpen {
		renderJSON(w, http.StatusOK, &protocol.ModSubmission{
			User:    protocol.LoginOK,
			Failure: "modding closed",
		})
		return
	}
	_, data, ok := s.formFile(w, r, "zip_file")
	if !ok {
		return
	}
	idChanges, err := s.store.SubmitMods(mid, data)
	if err != nil {
		logrus.Warnf("submit mods to %s refused: %v", mid, err)
		renderJSON(w, http.StatusOK, &protocol.ModSubmission{
			User:    protocol.LoginOK,
			Failure: err.Error(),
		})
		return
	}
	logrus.Infof("%s submitted %d mods to %s", email, len(idChanges), mid)
	renderJSON(w, http.StatusOK, &protocol.ModSubmission{
		User:      protocol.LoginOK,
		IDChanges: idChanges,
	})
}

func (s *Server) PatchMods(w http.ResponseWriter, r *http.Request, email string) {
	mid := mux.Vars(r)["mid"]
	_, data, ok := s.formFile(w, r, "zip_file")
	if !ok {
		return
	}
	if err := s.store.ApplyPatches(mid, data); err != nil {
		s.renderStoreError(w, "patch mods", mid, err)
		return
	}
	logrus.Infof("%s patched mods of %s", email, mid)
	renderOk(w)
}

func (s *Server) renderStoreError(w http.ResponseWriter, op, mid string, err error) {
	switch {
	case errors.Is(err, ErrProjectNotFound):
		renderRefused(w, "project not found")
	case errors.Is(err, ErrNotOwner):
		renderRefused(w, "not the project owner")
	default:
		logrus.Errorf("%s %s error: %v", op, mid, err)
		renderRefused(w, op+" failed")
	}
}
