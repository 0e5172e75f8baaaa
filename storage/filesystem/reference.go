package filesystem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/csulmone/libgit2sharp/plumbing"
	"github.com/csulmone/libgit2sharp/plumbing/storer"
	"github.com/csulmone/libgit2sharp/utils/ioutil"

	"github.com/go-git/go-billy/v5"
)

const (
	refsPath       = "refs"
	packedRefsPath = "packed-refs"

	symrefPrefix = "ref: "
)

// ReferenceStorage reads and writes references as loose files named after the
// reference, with the packed-refs file as fallback for the references that
// have been packed. Loose references shadow packed ones.
type ReferenceStorage struct {
	fs billy.Filesystem
}

// SetReference writes the reference as a loose file, overwriting any previous
// value.
func (r *ReferenceStorage) SetReference(ref *plumbing.Reference) (err error) {
	if ref == nil {
		return nil
	}

	var content string
	switch ref.Type() {
	case plumbing.SymbolicReference:
		content = fmt.Sprintf("ref: %s\n", ref.Target())
	case plumbing.HashReference:
		content = fmt.Sprintln(ref.Hash().String())
	}

	f, err := r.fs.Create(ref.Name().String())
	if err != nil {
		return err
	}

	defer ioutil.CheckClose(f, &err)

	_, err = f.Write([]byte(content))
	return err
}

// Reference returns the reference for a given reference name.
func (r *ReferenceStorage) Reference(n plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := r.readLooseReference(n)
	if err == nil {
		return ref, nil
	}

	if !os.IsNotExist(err) {
		return nil, err
	}

	refs, err := r.packedReferences()
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		if ref.Name() == n {
			return ref, nil
		}
	}

	return nil, plumbing.ErrReferenceNotFound
}

// IterReferences returns an iterator over the loose and packed references,
// including HEAD when present.
func (r *ReferenceStorage) IterReferences() (storer.ReferenceIter, error) {
	var refs []*plumbing.Reference
	seen := make(map[plumbing.ReferenceName]bool)

	if err := r.walkReferencesTree(&refs, seen, refsPath); err != nil {
		return nil, err
	}

	packed, err := r.packedReferences()
	if err != nil {
		return nil, err
	}

	for _, ref := range packed {
		if seen[ref.Name()] {
			continue
		}

		refs = append(refs, ref)
		seen[ref.Name()] = true
	}

	head, err := r.readLooseReference(plumbing.HEAD)
	if err == nil {
		refs = append(refs, head)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return storer.NewReferenceSliceIter(refs), nil
}

// RemoveReference removes the reference, both from the loose files and from
// the packed-refs file. Removing a reference that does not exist is not an
// error.
func (r *ReferenceStorage) RemoveReference(n plumbing.ReferenceName) error {
	err := r.fs.Remove(n.String())
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return r.rewritePackedRefsWithoutRef(n)
}

func (r *ReferenceStorage) readLooseReference(n plumbing.ReferenceName) (ref *plumbing.Reference, err error) {
	f, err := r.fs.Open(n.String())
	if err != nil {
		return nil, err
	}

	defer ioutil.CheckClose(f, &err)

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return parseReferenceContent(n, string(b))
}

func parseReferenceContent(n plumbing.ReferenceName, content string) (*plumbing.Reference, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, symrefPrefix) {
		target := plumbing.ReferenceName(content[len(symrefPrefix):])
		return plumbing.NewSymbolicReference(n, target), nil
	}

	if plumbing.IsHash(content) {
		return plumbing.NewHashReference(n, plumbing.NewHash(content)), nil
	}

	return nil, fmt.Errorf("reference %s: %w", n, plumbing.ErrCorruptedReference)
}

func (r *ReferenceStorage) walkReferencesTree(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool, relPath string) error {
	files, err := r.fs.ReadDir(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	for _, f := range files {
		newRelPath := r.fs.Join(relPath, f.Name())
		if f.IsDir() {
			if err := r.walkReferencesTree(refs, seen, newRelPath); err != nil {
				return err
			}

			continue
		}

		ref, err := r.readLooseReference(plumbing.ReferenceName(newRelPath))
		if err != nil {
			return err
		}

		*refs = append(*refs, ref)
		seen[ref.Name()] = true
	}

	return nil
}

func (r *ReferenceStorage) packedReferences() (refs []*plumbing.Reference, err error) {
	f, err := r.fs.Open(packedRefsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	defer ioutil.CheckClose(f, &err)

	s := bufio.NewScanner(f)
	for s.Scan() {
		ref, err := parsePackedRefsLine(s.Text())
		if err != nil {
			return nil, err
		}

		if ref != nil {
			refs = append(refs, ref)
		}
	}

	return refs, s.Err()
}

// parsePackedRefsLine parses a single packed-refs line. Comments and the
// peeled tag annotations are reported as a nil reference.
func parsePackedRefsLine(line string) (*plumbing.Reference, error) {
	if len(line) == 0 {
		return nil, nil
	}

	switch line[0] {
	case '#', '^':
		return nil, nil
	default:
		ws := strings.Split(line, " ")
		if len(ws) != 2 || !plumbing.IsHash(ws[0]) {
			return nil, fmt.Errorf("malformed packed-refs entry %q: %w", line, plumbing.ErrCorruptedReference)
		}

		return plumbing.NewReferenceFromStrings(ws[1], ws[0]), nil
	}
}

func (r *ReferenceStorage) rewritePackedRefsWithoutRef(n plumbing.ReferenceName) (err error) {
	f, err := r.fs.Open(packedRefsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	defer ioutil.CheckClose(f, &err)

	var lines []string
	found := false
	skipPeeled := false

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if len(line) > 0 && line[0] == '^' {
			// Peeled annotations belong to the reference on the previous
			// line, they go away with it.
			if skipPeeled {
				continue
			}
		} else {
			skipPeeled = false
			ref, err := parsePackedRefsLine(line)
			if err != nil {
				return err
			}

			if ref != nil && ref.Name() == n {
				found = true
				skipPeeled = true
				continue
			}
		}

		lines = append(lines, line)
	}

	if err := s.Err(); err != nil {
		return err
	}

	if !found {
		return nil
	}

	tmp, err := r.fs.TempFile("", packedRefsPath)
	if err != nil {
		return err
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(tmp, line); err != nil {
			return err
		}
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return r.fs.Rename(tmp.Name(), packedRefsPath)
}
