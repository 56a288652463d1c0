package storage

import (
	"encoding/binary"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/value"
)

// Revision is one stored document state. The zero Revision means "absent".
// A present revision always carries a version; a nil Value with a version
// is a retraction: the document exists and has no current value.
type Revision struct {
	Value   *value.Node
	Version string
}

func (r Revision) IsZero() bool {
	return r.Version == ""
}

// IsRetraction reports a present revision with no value.
func (r Revision) IsRetraction() bool {
	return !r.IsZero() && r.Value == nil
}

// NextRevision chains a new revision onto prev: the version is the content
// address of the prior version plus the encoded value, so independent
// writers converge on identical histories for identical writes.
func NextRevision(prev Revision, v *value.Node) Revision {
	payload := []byte(prev.Version)
	payload = append(payload, 0)
	if v != nil {
		payload = append(payload, v.Encode()...)
	}
	return Revision{Value: v, Version: entity.DeriveID(payload)}
}

// encodeRevision frames a revision for byte-oriented backends:
// uvarint version length, version, then the encoded value (empty for a
// retraction).
func encodeRevision(rev Revision) []byte {
	d.Chk.False(rev.IsZero())
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(rev.Version)))
	out := make([]byte, 0, n+len(rev.Version)+64)
	out = append(out, lenBuf[:n]...)
	out = append(out, rev.Version...)
	if rev.Value != nil {
		out = append(out, rev.Value.Encode()...)
	}
	return out
}

// decodeRevision inverts encodeRevision. Corrupt payloads are invariant
// violations.
func decodeRevision(data []byte) Revision {
	vlen, n := binary.Uvarint(data)
	d.Chk.True(n > 0, "corrupt revision frame")
	d.Chk.True(uint64(len(data)-n) >= vlen, "corrupt revision frame")
	version := string(data[n : n+int(vlen)])
	d.Chk.NotEmpty(version, "corrupt revision frame")
	rest := data[n+int(vlen):]
	if len(rest) == 0 {
		return Revision{Version: version}
	}
	return Revision{Version: version, Value: value.MustDecode(rest)}
}
