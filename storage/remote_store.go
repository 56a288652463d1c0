package storage

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/jpillora/backoff"

	"github.com/commontoolsinc/labs-sub005/constants"
	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
	"github.com/commontoolsinc/labs-sub005/value"
)

const remoteMaxAttempts = 5

// RemoteStore reads and writes revisions against a Server. Transport
// failures and 5xx responses are retried with exponential backoff; 4xx
// responses fail fast.
type RemoteStore struct {
	host       *url.URL
	httpClient *http.Client
}

func NewRemoteStore(host string) *RemoteStore {
	u, err := url.Parse(host)
	d.Exp.NoError(err)
	d.Exp.True(u.Scheme == "http" || u.Scheme == "https", "unsupported scheme in %s", host)
	d.Exp.Equal("", u.RawQuery, "remote store spec must not carry a query: %s", host)
	u.Path = strings.TrimRight(u.Path, "/")
	return &RemoteStore{host: u, httpClient: &http.Client{}}
}

func (r *RemoteStore) Host() string {
	return r.host.String()
}

func (r *RemoteStore) entityURL(addr entity.Address) url.URL {
	u := *r.host
	u.Path += constants.EntityPath + addr.Key()
	return u
}

func (r *RemoteStore) Get(addr entity.Address) Revision {
	res := r.request("GET", r.entityURL(addr), nil)
	defer closeResponse(res)

	switch res.StatusCode {
	case http.StatusNotFound:
		return Revision{}
	case http.StatusNoContent:
		return Revision{Version: revisionVersion(res, addr)}
	case http.StatusOK:
		data, err := ioutil.ReadAll(snappy.NewReader(res.Body))
		d.Exp.NoError(err)
		v, err := value.Decode(data)
		d.Exp.NoError(err)
		return Revision{Value: v, Version: revisionVersion(res, addr)}
	default:
		d.Panic("unexpected response for %s: %s", addr.Key(), responseError(res))
	}
	return Revision{}
}

// Put appends rev, which must chain from the remote's current revision.
// The current version travels back as the precondition header, so a racing
// writer surfaces as a conflict instead of a clobbered history.
func (r *RemoteStore) Put(addr entity.Address, rev Revision) {
	d.Chk.False(rev.IsZero())

	cur := r.Get(addr)
	expect := NextRevision(cur, rev.Value)
	d.Exp.True(expect.Version == rev.Version, "cannot write %s: remote is at %q, not the revision this one chains from", addr.Key(), cur.Version)

	var body []byte
	if rev.Value != nil {
		buf := &bytes.Buffer{}
		sw := snappy.NewBufferedWriter(buf)
		_, err := sw.Write(rev.Value.Encode())
		d.Chk.NoError(err)
		d.Chk.NoError(sw.Close())
		body = buf.Bytes()
	}

	res := r.request("PUT", r.entityURL(addr), body, constants.RevisionHeader, cur.Version)
	defer closeResponse(res)

	if res.StatusCode == http.StatusConflict {
		d.Panic("version conflict writing %s; remote is at %s", addr.Key(), res.Header.Get(constants.RevisionHeader))
	}
	if res.StatusCode != http.StatusCreated {
		d.Panic("unexpected response for %s: %s", addr.Key(), responseError(res))
	}
	stored := revisionVersion(res, addr)
	d.Chk.True(stored == rev.Version, "remote %s stored %s for write %s", addr.Key(), stored, rev.Version)
}

func (r *RemoteStore) Has(addr entity.Address) bool {
	res := r.request("HEAD", r.entityURL(addr), nil)
	defer closeResponse(res)
	ok := res.StatusCode == http.StatusOK || res.StatusCode == http.StatusNoContent
	d.Exp.True(ok || res.StatusCode == http.StatusNotFound, "unexpected response for %s: %s", addr.Key(), http.StatusText(res.StatusCode))
	return ok
}

// Stats relays the counters the remote publishes at /stats.
func (r *RemoteStore) Stats() Stats {
	u := *r.host
	u.Path += constants.StatsPath
	res := r.request("GET", u, nil)
	defer closeResponse(res)
	d.Exp.True(res.StatusCode == http.StatusOK, "unexpected response for stats: %s", responseError(res))

	st := Stats{}
	d.Exp.NoError(json.NewDecoder(res.Body).Decode(&st))
	return st
}

func (r *RemoteStore) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}

// request issues one HTTP call, retrying transport errors and 5xx responses.
// headers are key, value pairs. The returned response is always < 500.
func (r *RemoteStore) request(method string, u url.URL, body []byte, headers ...string) *http.Response {
	d.Chk.True(len(headers)%2 == 0)
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	for {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequest(method, u.String(), reader)
		d.Chk.NoError(err)
		req.Header.Set(constants.VersionHeader, constants.Version)
		if body != nil {
			req.Header.Set("Content-Type", "application/octet-stream")
		}
		for i := 0; i < len(headers); i += 2 {
			req.Header.Set(headers[i], headers[i+1])
		}

		res, err := r.httpClient.Do(req)
		if err == nil && res.StatusCode < http.StatusInternalServerError {
			return res
		}
		if err == nil {
			closeResponse(res)
		}
		if b.Attempt() >= remoteMaxAttempts {
			d.Exp.NoError(err)
			d.Panic("remote %s %s kept failing: %s", method, u.String(), res.Status)
		}
		delay := b.Duration()
		verbose.Log("remote %s %s failed; retrying in %s", method, u.Path, delay)
		time.Sleep(delay)
	}
}

func revisionVersion(res *http.Response, addr entity.Address) string {
	v := res.Header.Get(constants.RevisionHeader)
	d.Exp.True(v != "", "remote revision for %s carries no version", addr.Key())
	return v
}

func responseError(res *http.Response) string {
	msg, _ := ioutil.ReadAll(res.Body)
	if len(msg) == 0 {
		return http.StatusText(res.StatusCode)
	}
	return strings.TrimSpace(string(msg))
}

// Read to EOF on every response so keep-alive connections can be reused.
func closeResponse(res *http.Response) error {
	_, err := io.Copy(ioutil.Discard, res.Body)
	d.Chk.NoError(err)
	return res.Body.Close()
}
