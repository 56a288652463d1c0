package entity

import "strings"

const (
	MediaTypeJSON   = "application/json"
	MediaTypeRecipe = "application/recipe+json"
)

// Address names one document: an entity id plus the media type it is stored
// under.
type Address struct {
	ID        string
	MediaType string
}

// JSONAt is the common case: id under MediaTypeJSON.
func JSONAt(id string) Address {
	return Address{ID: id, MediaType: MediaTypeJSON}
}

// Key returns the canonical map key for a. Ids never contain '/', so the
// first separator is unambiguous.
func (a Address) Key() string {
	return a.ID + "/" + a.MediaType
}

func (a Address) String() string {
	return a.Key()
}

func (a Address) IsEmpty() bool {
	return a.ID == ""
}

// ParseKey inverts Key.
func ParseKey(key string) (Address, bool) {
	i := strings.Index(key, "/")
	if i <= 0 || i == len(key)-1 {
		return Address{}, false
	}
	return Address{ID: key[:i], MediaType: key[i+1:]}, true
}
