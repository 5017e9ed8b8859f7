package utils

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/json"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// UID is a 6-byte identifier stored in MongoDB as BinData with custom subtype 0x80.
// Its string form is Crockford Base32 (10 characters), which keeps IDs short and
// safe to embed in URLs.
type UID [6]byte

// Crockford Base32: no I, L, O, U to avoid misreading.
var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// confusable characters accepted on input
var uidNormalizer = strings.NewReplacer("O", "0", "o", "0", "I", "1", "i", "1", "L", "1", "l", "1", "-", "", " ", "")

// NewUID returns a new random UID.
func NewUID() UID {
	var id UID
	if _, err := rand.Read(id[:]); err != nil {
		// crypto/rand never fails on supported platforms; a zero ID would
		// collide immediately, so panic rather than continue.
		panic("utils: crypto/rand unavailable: " + err.Error())
	}
	return id
}

// ParseUID parses the 10-character Crockford Base32 form produced by String.
// Hyphens, spaces and commonly confused characters are tolerated.
func ParseUID(s string) (UID, error) {
	s = strings.ToUpper(uidNormalizer.Replace(s))
	if len(s) != 10 {
		return UID{}, errors.New("invalid UID: must be 10 Base32 characters")
	}
	raw, err := crockford.DecodeString(s)
	if err != nil || len(raw) != 6 {
		return UID{}, errors.New("invalid UID: malformed Base32")
	}
	var id UID
	copy(id[:], raw)
	return id, nil
}

// IsZero reports whether the UID is the all-zero value.
func (id UID) IsZero() bool {
	return id == UID{}
}

func (id UID) String() string {
	return crockford.EncodeToString(id[:])
}

// MarshalJSON renders the UID as its Base32 string.
func (id UID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *UID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseUID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalBSONValue stores the UID as binary with subtype 0x80.
func (id UID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.Binary{Subtype: 0x80, Data: id[:]})
}

func (id *UID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t != bson.TypeBinary {
		return errors.New("invalid BSON type for UID: expected binary")
	}
	subtype, raw, _, ok := bsoncore.ReadBinary(data)
	if !ok || subtype != 0x80 || len(raw) != 6 {
		return errors.New("invalid BSON binary data for UID")
	}
	copy((*id)[:], raw)
	return nil
}
