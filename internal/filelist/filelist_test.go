package filelist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadBasicTokensAndComments(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "files.f", "root/a.sv // comment\nroot/b.sv\n+incdir+inc1+inc2\n")

	got, err := Read(list)
	require.NoError(t, err)
	assert.Equal(t, []string{list, "root/a.sv", "root/b.sv", "inc1", "inc2"}, got)
}

func TestReadDiscardsUnrecognizedOptionTokens(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "files.f", "-x root/a.sv\n+unknown+thing\n")

	got, err := Read(list)
	require.NoError(t, err)
	assert.Equal(t, []string{list, "root/a.sv"}, got)
}

func TestReadNestedFilelist(t *testing.T) {
	dir := t.TempDir()
	inner := writeFile(t, dir, "inner.f", "root/c.sv\n")
	outer := writeFile(t, dir, "outer.f", "root/a.sv\n-f "+inner+"\n")

	got, err := Read(outer)
	require.NoError(t, err)
	assert.Equal(t, []string{outer, "root/a.sv", inner, "root/c.sv"}, got)
}

func TestReadCyclicFilelistIsDiagnosed(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.f")
	b := filepath.Join(dir, "b.f")
	require.NoError(t, os.WriteFile(a, []byte("-f "+b+"\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("-f "+a+"\n"), 0o644))

	_, err := Read(a)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestReadMissingFilelist(t *testing.T) {
	_, err := Read("/no/such/filelist")
	assert.Error(t, err)
}

func TestReadMissingNestedFilelistReportsLineAndParent(t *testing.T) {
	dir := t.TempDir()
	outer := writeFile(t, dir, "outer.f", "root/a.sv\nroot/b.sv\n-f /no/such/inner.f\n")

	_, err := Read(outer)
	require.Error(t, err)
	assert.EqualError(t, err, "the file '/no/such/inner.f' does not exist at line 3 in "+outer)
}
