package ws

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tgate/dataviewer/internal/store"
)

// Store is the data source behind the REST endpoints.
type Store interface {
	Query(ctx context.Context, table string, q store.Query) (*store.Page, error)
	Schema(table string) (*store.Schema, error)
	Status(ctx context.Context) map[string]store.TableStatus
}

type Server struct {
	store          Store
	hub            *Hub
	metrics        *Metrics
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	upgrader       websocket.Upgrader
}

// NewServer creates the HTTP surface. metrics may be nil, in which case
// /metrics is not served.
func NewServer(st Store, hub *Hub, metrics *Metrics, allowedOrigins []string) *Server {
	s := &Server{
		store:          st,
		hub:            hub,
		metrics:        metrics,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}

	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	return s
}

// Router returns the route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws/{table}", s.handleWS).Methods("GET").Name("WS")
	r.Handle("/tables/status", s.instrument("status", s.handleStatus)).Methods("GET").Name("GetStatus")
	r.Handle("/tables/{table}/schema", s.instrument("schema", s.handleSchema)).Methods("GET").Name("GetSchema")
	r.Handle("/tables/{table}", s.instrument("table", s.handleTable)).Methods("GET").Name("GetTable")
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
	r.Use(s.cors)
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	if _, err := store.Lookup(table); err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("ws: upgrade: %v", err)
		return
	}

	c := s.hub.Add(conn, table)
	glog.Infof("ws: client %s connected for %s from %s", c.id, table, r.RemoteAddr)

	go func() {
		defer func() {
			s.hub.Remove(c)
			glog.Infof("ws: client %s disconnected", c.id)
		}()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			glog.V(2).Infof("ws: client %s sent %d bytes", c.id, len(msg))
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Status(r.Context()))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.Schema(mux.Vars(r)["table"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	q, err := store.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.store.Query(r.Context(), mux.Vars(r)["table"], q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by route and status. Not used on the push
// route, which needs the raw ResponseWriter to hijack.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	if s.metrics == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}

// cors lets browser clients on allowed origins read REST responses.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}
	if host == r.Host {
		return true
	}

	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
