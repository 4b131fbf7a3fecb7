// Package codec provides the key and value codecs used by the typed stores.
//
// Key codecs are order preserving: Uint64Key writes 8 byte big endian so that
// numeric order equals byte order, StringKey writes the raw UTF-8 bytes.
//
// Value codecs turn values into opaque bytes. Msgpack (hashicorp/go-msgpack)
// is the default and is also used for rpc payloads, JSON is available for
// values that should stay readable on disk.
package codec
