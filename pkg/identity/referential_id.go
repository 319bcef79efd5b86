package identity

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Namespace seeds every ReferentialID. Changing it changes every persisted identifier.
var Namespace = uuid.MustParse("edf1edf1-3df1-3df1-3df1-3df1edf1edf1")

// ReferentialID is the content-derived identifier of a document: a version 8 UUID
// computed from the resource type and the document identity.
type ReferentialID uuid.UUID

// ComputeReferentialID derives the ReferentialID of a document of the given type.
//
// The hashed payload is, in order, the project name, the resource name, then the path
// and value of every identity element. Each field is NFC-normalized UTF-8 prefixed with
// its byte length as a big-endian uint32. The digest is SHA-256 over Namespace and the
// payload, formatted as a version 8 UUID. The encoding is a persisted contract.
func ComputeReferentialID(info ResourceInfo, id DocumentIdentity) ReferentialID {
	buf := make([]byte, 0, 64+32*len(id))
	buf = appendField(buf, info.ProjectName)
	buf = appendField(buf, info.ResourceName)
	for _, e := range id {
		buf = appendField(buf, e.Path)
		buf = appendField(buf, e.Value)
	}
	return ReferentialID(uuid.NewHash(sha256.New(), Namespace, buf, 8))
}

func appendField(buf []byte, s string) []byte {
	s = norm.NFC.String(s)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// ParseReferentialID parses the canonical string form of a ReferentialID.
func ParseReferentialID(s string) (ReferentialID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ReferentialID{}, fmt.Errorf("invalid referential id %q: %w", s, err)
	}
	return ReferentialID(u), nil
}

func (r ReferentialID) String() string {
	return uuid.UUID(r).String()
}

func (r ReferentialID) MarshalText() ([]byte, error) {
	return uuid.UUID(r).MarshalText()
}

func (r *ReferentialID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(r).UnmarshalText(data)
}

// IsZero reports whether r is the zero value.
func (r ReferentialID) IsZero() bool {
	return r == ReferentialID{}
}
