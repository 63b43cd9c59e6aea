package cache

import (
	"encoding/gob"
	"io"
)

func init() {
	// Confirmed-empty sentinel must survive dump/restore and memcached round trips.
	gob.Register(confirmedEmpty{})
}

// GobRegister enables cached type transferring.
//
// Types of cached values must be registered before Dump, Restore or use of the
// Memcached store.
func GobRegister(values ...interface{}) {
	for _, value := range values {
		gob.Register(value)
	}
}

// Dump saves cached entries and returns a number of processed entries.
func (c *Memory) Dump(w io.Writer) (int, error) {
	encoder := gob.NewEncoder(w)

	return c.Walk(func(key string, value Entry) error {
		return encoder.Encode(struct {
			Key   string
			Entry entry
		}{
			Key:   key,
			Entry: value.(entry),
		})
	})
}

// Restore loads cached entries and returns number of processed entries.
func (c *Memory) Restore(r io.Reader) (int, error) {
	decoder := gob.NewDecoder(r)
	e := struct {
		Key   string
		Entry entry
	}{}
	n := 0

	for {
		err := decoder.Decode(&e)
		if err == io.EOF {
			break
		}

		if err != nil {
			return n, err
		}

		c.Lock()
		c.data[e.Key] = e.Entry
		c.Unlock()

		n++
	}

	return n, nil
}
