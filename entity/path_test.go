package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathAppendCopies(t *testing.T) {
	assert := assert.New(t)

	p := Path{"a"}
	q := p.Append("b")
	r := p.Append("c")
	assert.Equal(Path{"a", "b"}, q)
	assert.Equal(Path{"a", "c"}, r)
	assert.Equal(Path{"a"}, p)

	assert.Equal(Path{"a", "b", "c"}, q.Extend(Path{"c"}))
	assert.Equal(q, q.Extend(nil))
}

func TestPathPrefix(t *testing.T) {
	assert := assert.New(t)

	p := Path{"a", "b", "c"}
	assert.True(p.HasPrefix(nil))
	assert.True(p.HasPrefix(Path{"a"}))
	assert.True(p.HasPrefix(p))
	assert.False(p.HasPrefix(Path{"b"}))
	assert.False(Path{"a"}.HasPrefix(p))
}

func TestPathString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("/", Path{}.String())
	assert.Equal("/a/b/0", Path{"a", "b", "0"}.String())
	assert.Equal(Path{"a", "b"}, ParsePath("/a/b"))
	assert.Equal(Path{"a", "b"}, ParsePath("a/b"))
	assert.Nil(ParsePath("/"))
	assert.Nil(ParsePath(""))
}

func TestCanonicalIndex(t *testing.T) {
	assert := assert.New(t)

	for seg, want := range map[string]int{"0": 0, "1": 1, "10": 10, "907": 907} {
		n, ok := CanonicalIndex(seg)
		assert.True(ok, seg)
		assert.Equal(want, n, seg)
	}
	for _, seg := range []string{"", "01", "00", "-1", "+1", "1.5", "a", "0x1", " 1", "99999999999999999999"} {
		_, ok := CanonicalIndex(seg)
		assert.False(ok, seg)
	}
}
