package ingest

import (
	"encoding/hex"
	"fmt"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"

	"github.com/poiesic/persimmon/core"
)

// IDStrategy decides the primary key of records that don't carry one.
type IDStrategy string

const (
	// IDFromField requires every record to carry its primary key.
	IDFromField IDStrategy = "field"
	// IDFromUUID assigns a random UUID to records without a key.
	IDFromUUID IDStrategy = "uuid"
	// IDFromContent derives the key from the record's content, so loading
	// the same record twice overwrites instead of duplicating.
	IDFromContent IDStrategy = "content"
)

// ParseIDStrategy converts a strategy name.
func ParseIDStrategy(s string) (IDStrategy, error) {
	switch st := IDStrategy(s); st {
	case IDFromField, IDFromUUID, IDFromContent:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIDStrategy, s)
}

// ContentID returns a deterministic id for attrs, the hex BLAKE2b-64 digest
// of their JSON encoding. Equal attribute sets with the same key order get
// equal ids.
func ContentID(attrs core.Attributes) (string, error) {
	data, err := attrs.MarshalJSON()
	if err != nil {
		return "", err
	}
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// assignID sets the primary key on attrs when it is missing.
func assignID(strategy IDStrategy, pk string, attrs *core.Attributes) error {
	if v, ok := attrs.Get(pk); ok && !v.IsNull() && v.String() != "" {
		return nil
	}
	switch strategy {
	case IDFromField:
		return nil
	case IDFromUUID:
		attrs.Set(pk, core.String(uuid.NewString()))
	case IDFromContent:
		id, err := ContentID(attrs.Without(pk))
		if err != nil {
			return err
		}
		attrs.Set(pk, core.String(id))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIDStrategy, strategy)
	}
	return nil
}
