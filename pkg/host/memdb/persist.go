package memdb

import (
	"bytes"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML database from path.
func Load(fs afero.Fs, path string) (*Database, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "read database")
	}
	db, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return db, nil
}

// Decode parses a YAML database and builds its indexes.
func Decode(data []byte) (*Database, error) {
	db := new(Database)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(db); err != nil {
		return nil, errors.Wrap(err, "decode database")
	}
	if err := db.Reindex(); err != nil {
		return nil, err
	}
	return db, nil
}

// Encode renders the database as YAML.
func (db *Database) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(db); err != nil {
		return nil, errors.Wrap(err, "encode database")
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the database to path, creating parent directories.
func (db *Database) Save(fs afero.Fs, path string) error {
	data, err := db.Encode()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create database directory")
		}
	}
	return errors.Wrap(afero.WriteFile(fs, path, data, 0o644), "write database")
}
