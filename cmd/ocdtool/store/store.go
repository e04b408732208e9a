// Package store keeps catalog documents by name so that commands can
// refer to an imported catalog instead of a file.
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Comcast/ocdrules/catalog"
)

var ErrNotFound = errors.New("catalog not found")

// Document is a catalog as stored in a Storage system.
type Document struct {
	// Name is the catalog's name, which is also the storage key.
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`

	// Format is "yaml" or "json".
	Format string `json:"format"`

	// Source is the document as it was imported.  List leaves it
	// empty.
	Source []byte `json:"source,omitempty"`

	// Origin is the file the document came from.
	Origin   string    `json:"origin,omitempty"`
	Imported time.Time `json:"imported"`
}

// Storage is a persistence interface for catalog documents.
type Storage interface {
	Open(ctx context.Context) error

	Close(ctx context.Context) error

	Put(ctx context.Context, doc *Document) error

	// Get returns ErrNotFound if there is no document with the
	// given name.
	Get(ctx context.Context, name string) (*Document, error)

	// List returns the stored documents, by name, without their
	// sources.
	List(ctx context.Context) ([]*Document, error)

	Remove(ctx context.Context, name string) error
}

// ReadDocument reads a catalog file and checks that it compiles.
func ReadDocument(filename string) (*Document, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		Format:   "yaml",
		Source:   bs,
		Origin:   filename,
		Imported: time.Now().UTC(),
	}
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		doc.Format = "json"
	}
	c, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	doc.Name, doc.Version = c.Name, c.Version
	return doc, nil
}

// Catalog decodes and compiles the document.
func (d *Document) Catalog() (*catalog.Catalog, error) {
	var (
		c   *catalog.Catalog
		err error
	)
	if d.Format == "json" {
		c, err = catalog.ParseJSON(d.Source)
	} else {
		c, err = catalog.ParseYAML(d.Source)
	}
	if err != nil {
		return nil, err
	}
	if err = c.Compile(nil, true); err != nil {
		return nil, err
	}
	return c, nil
}

// Load gets a stored document and compiles it.
func Load(ctx context.Context, s Storage, name string) (*catalog.Catalog, error) {
	doc, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return doc.Catalog()
}
