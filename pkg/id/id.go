// Package id issues the DocumentUuid assigned to a document when it is first stored.
//
// A DocumentUuid is a ULID rendered in UUID form: it has the shape clients expect while
// sorting by creation time, which keeps index inserts in the datastores append-mostly.
package id

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	mutex   sync.Mutex
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// DocumentUUID identifies a stored document. It stays the same across identity updates.
type DocumentUUID struct {
	value ulid.ULID
}

func NewFromTime(t time.Time) (DocumentUUID, error) {
	mutex.Lock()
	defer mutex.Unlock()

	v, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return DocumentUUID{}, err
	}
	return DocumentUUID{v}, nil
}

// NewString returns a new DocumentUuid in its string form.
func NewString() (string, error) {
	d, err := NewFromTime(time.Now())
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// Parse accepts the UUID form of a DocumentUuid.
func Parse(s string) (DocumentUUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DocumentUUID{}, err
	}
	return DocumentUUID{ulid.ULID(u)}, nil
}

func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func (d DocumentUUID) String() string {
	return uuid.UUID(d.value).String()
}

// Time returns the creation time, at millisecond precision.
func (d DocumentUUID) Time() time.Time {
	return ulid.Time(d.value.Time())
}
