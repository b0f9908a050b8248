package document

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// ObjectID is a 12 byte identifier laid out like MongoDB's: a big-endian
// seconds timestamp, five bytes fixed for the process and a three byte
// counter. IDs created by one process sort by creation time.
type ObjectID [12]byte

var (
	oidCounter atomic.Uint32
	oidProcess [5]byte
)

func init() {
	_, _ = rand.Read(oidProcess[:])
	var seed [4]byte
	_, _ = rand.Read(seed[:])
	oidCounter.Store(binary.BigEndian.Uint32(seed[:]))
}

// NewObjectID returns an ObjectID for the current time
func NewObjectID() ObjectID {
	return NewObjectIDAt(time.Now())
}

// NewObjectIDAt returns an ObjectID carrying the timestamp t
func NewObjectIDAt(t time.Time) ObjectID {
	var id ObjectID
	binary.BigEndian.PutUint32(id[:4], uint32(t.Unix()))
	copy(id[4:9], oidProcess[:])
	n := oidCounter.Add(1)
	id[9], id[10], id[11] = byte(n>>16), byte(n>>8), byte(n)
	return id
}

// ObjectIDFromHex parses the 24 character hex form
func ObjectIDFromHex(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != 2*len(id) {
		return ObjectID{}, fmt.Errorf("%w: %q", ErrInvalidObjectID, s)
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return ObjectID{}, fmt.Errorf("%w: %q", ErrInvalidObjectID, s)
	}
	return id, nil
}

// Hex returns the 24 character hex form
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id ObjectID) String() string {
	return id.Hex()
}

// Timestamp returns the creation time, truncated to seconds
func (id ObjectID) Timestamp() time.Time {
	return time.Unix(int64(binary.BigEndian.Uint32(id[:4])), 0)
}

func (id ObjectID) IsZero() bool {
	return id == ObjectID{}
}

// Compare orders ObjectIDs bytewise, which is creation order for IDs
// made by one process
func (id ObjectID) Compare(other ObjectID) int {
	return bytes.Compare(id[:], other[:])
}

// MarshalJSON encodes the ObjectID as its hex string
func (id ObjectID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.Hex() + `"`), nil
}
