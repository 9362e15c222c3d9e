package convert

import (
	"github.com/dgallion1/orgbridge/internal/codec"
	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// JSONDocument renders a document as its serialized record. The output
// decodes back to an equal tree.
func JSONDocument(d *orgtree.Document) ([]byte, error) {
	return codec.MarshalDocument(d)
}

// JSONNode renders a single node record.
func JSONNode(n *orgtree.Node) ([]byte, error) {
	return codec.MarshalNode(n)
}
