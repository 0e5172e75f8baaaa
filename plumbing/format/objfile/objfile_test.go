package objfile

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/csulmone/libgit2sharp/plumbing"

	"github.com/stretchr/testify/suite"
)

func TestObjfileSuite(t *testing.T) {
	suite.Run(t, new(ObjfileSuite))
}

type ObjfileSuite struct {
	suite.Suite
}

var objfileFixtures = []struct {
	t       plumbing.ObjectType
	content string
	hash    string
}{
	{plumbing.BlobObject, "", "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"},
	{plumbing.BlobObject, "Hello, World!\n", "8ab686eafeb1f44702738c8b0f24f2567c36da6d"},
	{plumbing.CommitObject, "fake commit, the codec does not care\n", ""},
	{plumbing.TagObject, strings.Repeat("long tag payload\n", 1000), ""},
}

func (s *ObjfileSuite) TestWriteAndRead() {
	for _, fixture := range objfileFixtures {
		var buf bytes.Buffer

		w := NewWriter(&buf)
		err := w.WriteHeader(fixture.t, int64(len(fixture.content)))
		s.NoError(err)

		n, err := io.Copy(w, strings.NewReader(fixture.content))
		s.NoError(err)
		s.Equal(int64(len(fixture.content)), n)
		s.NoError(w.Close())

		if fixture.hash != "" {
			s.Equal(fixture.hash, w.Hash().String())
		}

		r, err := NewReader(&buf)
		s.NoError(err)

		t, size, err := r.Header()
		s.NoError(err)
		s.Equal(fixture.t, t)
		s.Equal(int64(len(fixture.content)), size)

		content, err := io.ReadAll(r)
		s.NoError(err)
		s.Equal(fixture.content, string(content))

		s.Equal(w.Hash(), r.Hash())
		s.NoError(r.Close())
	}
}

func (s *ObjfileSuite) TestWriteInvalidType() {
	w := NewWriter(bytes.NewBuffer(nil))
	s.ErrorIs(w.WriteHeader(plumbing.InvalidObject, 8), plumbing.ErrInvalidType)
}

func (s *ObjfileSuite) TestWriteNegativeSize() {
	w := NewWriter(bytes.NewBuffer(nil))
	s.ErrorIs(w.WriteHeader(plumbing.BlobObject, -1), ErrNegativeSize)
}

func (s *ObjfileSuite) TestWriteOverflow() {
	w := NewWriter(bytes.NewBuffer(nil))
	s.NoError(w.WriteHeader(plumbing.BlobObject, 8))

	n, err := w.Write([]byte("1234"))
	s.NoError(err)
	s.Equal(4, n)

	n, err = w.Write([]byte("56789"))
	s.ErrorIs(err, ErrOverflow)
	s.Equal(4, n)
}

func (s *ObjfileSuite) TestWriteClosed() {
	var buf bytes.Buffer

	w := NewWriter(&buf)
	s.NoError(w.WriteHeader(plumbing.BlobObject, 8))
	s.NoError(w.Close())

	_, err := w.Write([]byte("1234"))
	s.ErrorIs(err, ErrClosed)
}

func (s *ObjfileSuite) TestReadEmpty() {
	source := bytes.NewReader([]byte{})
	_, err := NewReader(source)
	s.Error(err)
}

func (s *ObjfileSuite) TestReadGarbage() {
	source := bytes.NewReader([]byte("!@#$RO!@NROSADfinq@o#irn@oirfn"))
	_, err := NewReader(source)
	s.Error(err)
}

func (s *ObjfileSuite) TestReadCorruptZLib() {
	data, _ := base64.StdEncoding.DecodeString("eAFLysaalPUjBgAAAJsAHw")
	source := bytes.NewReader(data)
	r, err := NewReader(source)
	s.NoError(err)

	_, _, err = r.Header()
	s.Error(err)
}

func (s *ObjfileSuite) TestReadTruncatedHeader() {
	// a valid stream holding no header terminator at all
	var buf bytes.Buffer
	zw := NewWriter(&buf)
	s.NoError(zw.WriteHeader(plumbing.BlobObject, 4))
	_, err := zw.Write([]byte("1234"))
	s.NoError(err)
	s.NoError(zw.Close())

	payload := buf.Bytes()[:len(buf.Bytes())-4]
	r, err := NewReader(bytes.NewReader(payload))
	s.NoError(err)

	_, _, err = r.Header()
	s.NoError(err)

	_, err = io.ReadAll(r)
	s.Error(err)
}
