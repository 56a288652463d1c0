package config

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/storage"
)

// DefaultAWSRegion is used when an aws spec does not name one.
const DefaultAWSRegion = "us-west-2"

// StoreSpec is one parsed store spec: mem, ldb:<path>, http(s)://<host>,
// aws:<table>[:<region>]. A bare filesystem path reads as ldb; a path that
// is literally "mem" must be spelled "ldb:mem".
type StoreSpec struct {
	Protocol string
	Path     string
}

func ParseSpec(spec string) (StoreSpec, error) {
	ldbSpec := func(path string) (StoreSpec, error) {
		if len(path) == 0 {
			return StoreSpec{}, errors.New("empty filesystem path")
		}
		return StoreSpec{Protocol: "ldb", Path: path}, nil
	}

	parts := strings.SplitN(spec, ":", 2)
	protocol := parts[0]

	if len(parts) == 1 {
		if protocol == "mem" {
			return StoreSpec{Protocol: "mem"}, nil
		}
		return ldbSpec(protocol)
	}
	path := parts[1]

	switch protocol {
	case "http", "https":
		u, err := url.Parse(spec)
		if err != nil || len(u.Host) == 0 {
			return StoreSpec{}, errors.Errorf("invalid URL: %s", spec)
		}
		return StoreSpec{Protocol: protocol, Path: spec}, nil

	case "ldb":
		return ldbSpec(path)

	case "mem":
		return StoreSpec{}, errors.Errorf(`in-memory store must be specified as "mem", not "mem:%s"`, path)

	case "aws":
		if len(path) == 0 {
			return StoreSpec{}, errors.Errorf("aws spec needs a table: %s", spec)
		}
		return StoreSpec{Protocol: "aws", Path: path}, nil

	default:
		return StoreSpec{}, errors.Errorf("invalid store protocol: %s", spec)
	}
}

func (sp StoreSpec) String() string {
	if sp.Protocol == "mem" {
		return "mem"
	}
	if sp.Protocol == "http" || sp.Protocol == "https" {
		return sp.Path
	}
	return sp.Protocol + ":" + sp.Path
}

// CreateStore opens the backend the spec names. Constructors that validate
// by panicking are fenced with d.Try so the caller gets an error.
func (sp StoreSpec) CreateStore() (st storage.Store, err error) {
	switch sp.Protocol {
	case "mem":
		st = storage.NewMemoryStore()
	case "ldb":
		err = d.Unwrap(d.Try(func() {
			st = storage.NewLevelDBStore(sp.Path)
		}))
	case "http", "https":
		err = d.Unwrap(d.Try(func() {
			st = storage.NewRemoteStore(sp.Path)
		}))
	case "aws":
		table, region := sp.Path, DefaultAWSRegion
		if i := strings.Index(table, ":"); i >= 0 {
			table, region = table[:i], table[i+1:]
		}
		st = storage.NewDynamoStore(table, "", region, "", "")
	default:
		err = errors.Errorf("invalid store protocol: %s", sp.Protocol)
	}
	return st, errors.Wrapf(err, "opening %s", sp.String())
}
