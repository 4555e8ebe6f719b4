package badger

import (
	"fmt"
	"strings"
)

// Key prefixes for different data types
const (
	documentPrefix = "doc"
)

// makeCollectionPrefix generates the key prefix shared by every document of
// a collection. The collection name is length-prefixed so that no
// collection's prefix is a prefix of another's.
// Format: doc:len:collection:
func makeCollectionPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%d:%s:", documentPrefix, len(collection), collection))
}

// makeDocumentKey generates a key for a document.
// Format: doc:len:collection:id
func makeDocumentKey(collection, id string) []byte {
	prefix := makeCollectionPrefix(collection)
	buf := make([]byte, len(prefix)+len(id))
	offset := copy(buf, prefix)
	copy(buf[offset:], id)
	return buf
}

// documentID extracts the document id from a full document key.
func documentID(collection string, key []byte) string {
	return strings.TrimPrefix(string(key), string(makeCollectionPrefix(collection)))
}
