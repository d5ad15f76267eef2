package storage

import (
	"github.com/dgraph-io/badger/v4"
)

// KV is a key/value pair read from a range scan. Value is nil for key-only scans.
type KV struct {
	Key   []byte
	Value []byte
}

// Cursor iterates the entries of a key range in ascending key order.
//
// Cursors are lazy: entries are read page by page, each page in its own short read
// transaction, resuming after the last key returned. Writes made while a cursor is
// open may or may not be observed by later pages. A cursor is single-pass and is
// not safe for concurrent use.
//
// Example:
//
//	cur := store.Scan(lo, hi)
//	for cur.Next() {
//		fmt.Printf("%x = %x\n", cur.Key(), cur.Value())
//	}
//	if err := cur.Err(); err != nil {
//		return err
//	}
type Cursor struct {
	store      *Store
	next       []byte
	hi         []byte
	withValues bool

	page []KV
	pos  int
	cur  KV
	done bool
	err  error
}

// Scan returns a cursor over the keys and values in [lo, hi).
// A nil hi scans to the end of the keyspace.
func (s *Store) Scan(lo, hi []byte) *Cursor {
	return &Cursor{store: s, next: copyBytes(lo), hi: hi, withValues: true}
}

// ScanKeys returns a key-only cursor over [lo, hi).
func (s *Store) ScanKeys(lo, hi []byte) *Cursor {
	return &Cursor{store: s, next: copyBytes(lo), hi: hi}
}

// Next advances the cursor and reports whether an entry is available.
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	if c.pos >= len(c.page) {
		if c.done {
			return false
		}
		page, more, err := c.store.readPage(c.next, c.hi, c.withValues)
		if err != nil {
			c.err = err
			return false
		}
		c.page, c.pos = page, 0
		c.done = !more
		if len(page) == 0 {
			c.done = true
			return false
		}
		c.next = successor(page[len(page)-1].Key)
	}
	c.cur = c.page[c.pos]
	c.pos++
	return true
}

// Key returns the current key.
func (c *Cursor) Key() []byte { return c.cur.Key }

// Value returns the current value (nil for key-only cursors).
func (c *Cursor) Value() []byte { return c.cur.Value }

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error { return c.err }

// Close releases the buffered page. Calling Next after Close returns false.
func (c *Cursor) Close() {
	c.page = nil
	c.pos = 0
	c.done = true
}

// readPage reads up to pageSize entries starting at from (inclusive) and below hi.
// more reports whether the page filled up, i.e. further entries may exist.
func (s *Store) readPage(from, hi []byte, withValues bool) (page []KV, more bool, err error) {
	err = s.withView(func(txn *badger.Txn) error {
		it := txn.NewIterator(rangeIterOpts(from, hi, withValues, s.pageSize))
		defer it.Close()

		for it.Seek(from); it.Valid(); it.Next() {
			item := it.Item()
			if !inRange(item.Key(), hi) {
				return nil
			}
			if len(page) == s.pageSize {
				more = true
				return nil
			}
			kv := KV{Key: item.KeyCopy(nil)}
			if withValues {
				v, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				kv.Value = v
			}
			page = append(page, kv)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return page, more, nil
}
