// Package config reads .cellsconfig files and turns store specs or aliases
// into live stores.
//
// The file is TOML, found by walking up from the working directory:
//
//	[stores]
//	  [stores.default]
//	  spec = "ldb:/var/data/cells"
//	  [stores.origin]
//	  spec = "https://cells.example.com"
package config

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/storage"
)

const (
	ConfigFile = ".cellsconfig"

	// DefaultStoreAlias names the store an empty spec resolves to.
	DefaultStoreAlias = "default"
)

// ErrNoConfig reports that no config file exists between the starting
// directory and the filesystem root.
var ErrNoConfig = errors.New("no " + ConfigFile + " found")

type Config struct {
	File   string                 `toml:"-"`
	Stores map[string]StoreConfig `toml:"stores"`
}

type StoreConfig struct {
	Spec string `toml:"spec"`
}

// FindCellsConfig walks up from dir looking for the config file.
func FindCellsConfig(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", dir)
	}
	for {
		path := filepath.Join(abs, ConfigFile)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNoConfig
		}
		abs = parent
	}
}

func ReadConfig(path string) (*Config, error) {
	c := &Config{}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	c.File = path
	return c, nil
}

// LoadConfig finds and reads the config governing dir. A missing file is
// not an error: both results are nil, and spec resolution passes inputs
// through untouched.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindCellsConfig(dir)
	if err == ErrNoConfig {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ReadConfig(path)
}

// WriteTo writes the config into dir and returns the file path.
func (c *Config) WriteTo(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}
	path := filepath.Join(dir, ConfigFile)
	if err := ioutil.WriteFile(path, []byte(c.String()), 0644); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	c.File = path
	return path, nil
}

func (c *Config) String() string {
	buf := &bytes.Buffer{}
	d.Chk.NoError(toml.NewEncoder(buf).Encode(c))
	return buf.String()
}

// ResolveSpec maps an alias through the config; anything that is not a
// known alias passes through as a literal spec. The empty string asks for
// the default alias.
func (c *Config) ResolveSpec(in string) (string, error) {
	if c == nil {
		if in == "" {
			return "", errors.New("no store spec given and no " + ConfigFile + " to default from")
		}
		return in, nil
	}
	alias := in
	if alias == "" {
		alias = DefaultStoreAlias
	}
	if sc, ok := c.Stores[alias]; ok {
		if sc.Spec == "" {
			return "", errors.Errorf("store %q in %s has no spec", alias, c.File)
		}
		return sc.Spec, nil
	}
	if in == "" {
		return "", errors.Errorf("no %q store in %s", DefaultStoreAlias, c.File)
	}
	return in, nil
}

// GetStore resolves in through the config and opens the backend it names.
func (c *Config) GetStore(in string) (storage.Store, error) {
	spec, err := c.ResolveSpec(in)
	if err != nil {
		return nil, err
	}
	sp, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	return sp.CreateStore()
}
