// Package entity names documents: ids, addresses and in-document paths.
package entity

import (
	"encoding/base32"
	"strings"

	"github.com/codahale/blake2"
	"github.com/google/uuid"

	"github.com/commontoolsinc/labs-sub005/d"
)

// IDPrefix tags every entity id.
const IDPrefix = "of:"

// digestLen bytes of the digest are encoded; 20 bytes yield exactly 32
// base32 characters, no padding.
const (
	digestLen  = 20
	encodedLen = 32
)

var encoding = base32.NewEncoding("0123456789abcdefghijklmnopqrstuv")

// DeriveID computes the content address of data.
func DeriveID(data []byte) string {
	h := blake2.NewBlake2B()
	_, err := h.Write(data)
	d.Chk.NoError(err)
	return IDPrefix + encoding.EncodeToString(h.Sum(nil)[:digestLen])
}

// DeriveIDFromString is DeriveID over the string's bytes. Legacy type tags
// rehash through here.
func DeriveIDFromString(s string) string {
	return DeriveID([]byte(s))
}

// FreshID returns a new random id for scratch documents.
func FreshID() string {
	id := uuid.New()
	return DeriveID(id[:])
}

// ValidID reports whether s is a well-formed entity id.
func ValidID(s string) bool {
	if !strings.HasPrefix(s, IDPrefix) {
		return false
	}
	rest := s[len(IDPrefix):]
	if len(rest) != encodedLen {
		return false
	}
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'v') {
			return false
		}
	}
	return true
}
