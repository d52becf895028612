package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/cartograph/internal/safepath"
	"github.com/hazyhaar/cartograph/kit"
	"github.com/hazyhaar/cartograph/shield"
)

// Handler returns the HTTP API:
//
//	GET    /status
//	GET    /documents
//	POST   /documents
//	POST   /documents/{id}/activate
//	DELETE /documents/{id}
//	POST   /save              {"name": "..."} (optional)
//	POST   /load              {"name": "..."}
//	GET    /assets/missing
//	GET    /recent            ?limit=N
func (sv *Service) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.APIStack(sv.logger, shield.DefaultMaxBody) {
		r.Use(mw)
	}

	r.Get("/status", sv.serve(sv.StatusEndpoint(), nil))
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", sv.serve(sv.ListEndpoint(), nil))
		r.Post("/", sv.serveStatus(http.StatusCreated, sv.NewEndpoint(), nil))
		r.Post("/{id}/activate", sv.serve(sv.SwitchEndpoint(), documentFromURL))
		r.Delete("/{id}", sv.serve(sv.CloseEndpoint(), documentFromURL))
	})
	r.Post("/save", sv.serveStatus(http.StatusAccepted, sv.SaveEndpoint(), fileFromBody))
	r.Post("/load", sv.serveStatus(http.StatusAccepted, sv.LoadEndpoint(), fileFromBody))
	r.Get("/assets/missing", sv.serve(sv.AssetsEndpoint(), nil))
	r.Get("/recent", sv.serve(sv.RecentEndpoint(), recentFromQuery))
	return r
}

type decodeFunc func(*http.Request) (any, error)

func documentFromURL(r *http.Request) (any, error) {
	return &DocumentRequest{ID: chi.URLParam(r, "id")}, nil
}

func fileFromBody(r *http.Request) (any, error) {
	var req FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &req, nil
}

func recentFromQuery(r *http.Request) (any, error) {
	req := &RecentRequest{}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid limit %q", v)
		}
		req.Limit = n
	}
	return req, nil
}

func (sv *Service) serve(ep kit.Endpoint, decode decodeFunc) http.HandlerFunc {
	return sv.serveStatus(http.StatusOK, ep, decode)
}

func (sv *Service) serveStatus(code int, ep kit.Endpoint, decode decodeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req any
		if decode != nil {
			var err error
			if req, err = decode(r); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		resp, err := ep(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, code, resp)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBusy), errors.Is(err, ErrLastDocument):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownDocument), errors.Is(err, ErrNoRecents):
		return http.StatusNotFound
	case errors.Is(err, ErrNoPath), errors.Is(err, safepath.ErrPathTraversal), errors.Is(err, safepath.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, ErrLoopStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
