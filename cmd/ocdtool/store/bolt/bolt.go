// Package bolt is a bbolt-backed catalog document store.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Comcast/ocdrules/cmd/ocdtool/store"
	"github.com/Comcast/ocdrules/util"

	bolt "go.etcd.io/bbolt"
)

var bucket = []byte("catalogs")

type Storage struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
}

func (s *Storage) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		util.Logger.Debug(fmt.Sprintf("bolt storage."+format, args...))
	}
}

func (s *Storage) Put(ctx context.Context, doc *store.Document) error {
	s.logf("Put %s", doc.Name)
	js, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(doc.Name), js)
	})
}

func (s *Storage) Get(ctx context.Context, name string) (*store.Document, error) {
	s.logf("Get %s", name)
	var doc *store.Document
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(bucket).Get([]byte(name))
		if bs == nil {
			return store.ErrNotFound
		}
		doc = &store.Document{}
		return json.Unmarshal(bs, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Storage) List(ctx context.Context) ([]*store.Document, error) {
	docs := make([]*store.Document, 0, 8)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for name, bs := c.First(); name != nil; name, bs = c.Next() {
			var doc store.Document
			if err := json.Unmarshal(bs, &doc); err != nil {
				return err
			}
			doc.Source = nil
			docs = append(docs, &doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logf("List found %d catalogs", len(docs))
	return docs, nil
}

func (s *Storage) Remove(ctx context.Context, name string) error {
	s.logf("Remove %s", name)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(name)) == nil {
			return store.ErrNotFound
		}
		return b.Delete([]byte(name))
	})
}
