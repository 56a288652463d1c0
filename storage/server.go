package storage

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang/snappy"
	"github.com/julienschmidt/httprouter"

	"github.com/commontoolsinc/labs-sub005/constants"
	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
	"github.com/commontoolsinc/labs-sub005/value"
)

type connectionState struct {
	c  net.Conn
	cs http.ConnState
}

// Server exposes a Store over HTTP. One revision per request: GET returns
// the current revision, PUT appends the next one.
type Server struct {
	store   Store
	port    int
	l       *net.Listener
	csChan  chan *connectionState
	closing bool
}

func NewServer(store Store, port int) *Server {
	return &Server{store, port, nil, make(chan *connectionState, 16), false}
}

// Handler builds the route table. Exposed so tests can mount the server on
// httptest without a listener.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()

	entityRoute := constants.EntityPath + ":id/*type"
	router.GET(entityRoute, s.handle(s.handleGet))
	router.HEAD(entityRoute, s.handle(s.handleGet))
	router.PUT(entityRoute, s.handle(s.handlePut))
	router.GET(constants.StatsPath, s.handle(s.handleStats))
	router.GET(constants.RootPath, s.handle(s.handleBase))

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Add("Access-Control-Allow-Origin", "*")
		router.ServeHTTP(w, req)
	})
}

// handle wraps a route with the version check and the d.Try error boundary.
// Recoverable failures map to 400; invariant violations keep panicking.
func (s *Server) handle(hndlr httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		w.Header().Set(constants.VersionHeader, constants.Version)

		if vers := req.Header.Get(constants.VersionHeader); vers != "" && vers != constants.Version {
			verbose.Log("returning version mismatch error")
			http.Error(w, fmt.Sprintf("Error: client version %s is incompatible with data of version %s", vers, constants.Version), http.StatusBadRequest)
			return
		}

		err := d.Try(func() { hndlr(w, req, ps) })
		if err != nil {
			err = d.Unwrap(err)
			verbose.Log("returning bad request:\n%v", err)
			http.Error(w, fmt.Sprintf("Error: %v", err), http.StatusBadRequest)
		}
	}
}

func addrFromParams(ps httprouter.Params) entity.Address {
	id := ps.ByName("id")
	d.Exp.True(entity.ValidID(id), "invalid entity id %s", id)
	mediaType := strings.TrimPrefix(ps.ByName("type"), "/")
	if mediaType == "" {
		mediaType = entity.MediaTypeJSON
	}
	return entity.Address{ID: id, MediaType: mediaType}
}

func (s *Server) handleGet(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	rev := s.store.Get(addrFromParams(ps))
	if rev.IsZero() {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set(constants.RevisionHeader, rev.Version)
	if rev.IsRetraction() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	sw := snappy.NewBufferedWriter(w)
	_, err := sw.Write(rev.Value.Encode())
	d.Chk.NoError(err)
	d.Chk.NoError(sw.Close())
}

// handlePut appends the next revision. The body is the snappy-compressed
// encoded value, empty for a retraction. X-Cells-Version on the request
// names the prior version the client chained from; when the store has moved
// past it the response is 409 with the current version in the same header.
func (s *Server) handlePut(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	addr := addrFromParams(ps)

	sr := snappy.NewReader(req.Body)
	body, err := ioutil.ReadAll(sr)
	d.Exp.NoError(err)
	d.Chk.NoError(req.Body.Close())

	var v *value.Node
	if len(body) > 0 {
		v, err = value.Decode(body)
		d.Exp.NoError(err)
	}

	cur := s.store.Get(addr)
	if prior, ok := req.Header[constants.RevisionHeader]; ok && len(prior) > 0 && prior[0] != cur.Version {
		w.Header().Set(constants.RevisionHeader, cur.Version)
		w.WriteHeader(http.StatusConflict)
		return
	}

	next := NextRevision(cur, v)
	s.store.Put(addr, next)
	w.Header().Set(constants.RevisionHeader, next.Version)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleStats(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	st := Stats{}
	if sr, ok := s.store.(StatsReporter); ok {
		st = sr.Stats()
	}
	w.Header().Add("Content-Type", "application/json")
	d.Chk.NoError(json.NewEncoder(w).Encode(st))
}

func (s *Server) handleBase(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	w.Header().Add("Content-Type", "text/plain")
	fmt.Fprintf(w, "Cells data server, version %s.\n", constants.Version)
}

// Run blocks while the Server is listening. Running on a separate go routine
// is supported.
func (s *Server) Run() {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	d.Chk.NoError(err)
	s.l = &l
	_, port, err := net.SplitHostPort(l.Addr().String())
	d.Chk.NoError(err)
	s.port, err = strconv.Atoi(port)
	d.Chk.NoError(err)
	fmt.Printf("Listening on port %d...\n", s.port)

	srv := &http.Server{
		Handler:   s.Handler(),
		ConnState: s.connState,
	}

	go func() {
		m := map[net.Conn]http.ConnState{}
		for state := range s.csChan {
			switch state.cs {
			case http.StateNew, http.StateActive, http.StateIdle:
				m[state.c] = state.cs
			default:
				delete(m, state.c)
			}
		}
		for c := range m {
			c.Close()
		}
	}()

	srv.Serve(l)
}

func (s *Server) connState(c net.Conn, cs http.ConnState) {
	if s.closing {
		d.Chk.True(cs == http.StateClosed)
		return
	}
	s.csChan <- &connectionState{c, cs}
}

// Stop causes the Server to stop listening and an existing call to Run() to
// continue.
func (s *Server) Stop() {
	s.closing = true
	(*s.l).Close()
	close(s.csChan)
}
