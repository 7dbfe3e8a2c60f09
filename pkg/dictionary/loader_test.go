package dictionary

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type added struct {
	word string
	freq int
}

type recorder struct {
	words []added
}

func (r *recorder) AddWord(word string, frequency int) {
	r.words = append(r.words, added{word, frequency})
}

func writeChunkFile(t *testing.T, dir string, id int, words ...string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, words))
	path := filepath.Join(dir, ChunkFileName(id))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestChunkRoundTripRanks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, []string{"hello", "héllo", "world"}))

	var r recorder
	n, err := ReadChunk(&r, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []added{{"hello", 65535}, {"héllo", 65534}, {"world", 65533}}, r.words)
}

func TestReadChunkShortStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(5)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(2)))
	buf.WriteString("hi")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(1)))

	var r recorder
	n, err := ReadChunk(&r, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err, "fewer entries than the header is fine")
	assert.Equal(t, 1, n)

	truncated := buf.Bytes()[:len(buf.Bytes())-1]
	_, err = ReadChunk(&recorder{}, bytes.NewReader(truncated))
	assert.Error(t, err)

	var negative bytes.Buffer
	require.NoError(t, binary.Write(&negative, binary.LittleEndian, int32(-1)))
	_, err = ReadChunk(&recorder{}, &negative)
	assert.Error(t, err)
}

func TestReadText(t *testing.T) {
	in := `# demo words
test
hello 90
hello world 5

draft-js	7
v8 engine x
`
	var r recorder
	n, err := ReadText(&r, bytes.NewBufferString(in))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []added{
		{"test", 65535},
		{"hello", 90},
		{"hello world", 5},
		{"draft-js", 7},
		{"v8 engine x", 65531},
	}, r.words)
}

func TestReadYAML(t *testing.T) {
	in := `
words:
  - word: hello
    freq: 10
  - word: draft-js example
  - word: "  "
  - word: world
    freq: 3
`
	var r recorder
	n, err := ReadYAML(&r, bytes.NewBufferString(in))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []added{{"hello", 10}, {"draft-js example", 65534}, {"world", 3}}, r.words)

	n, err = ReadYAML(&recorder{}, bytes.NewBufferString(""))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = ReadYAML(&recorder{}, bytes.NewBufferString("words: {not: [a list"))
	assert.Error(t, err)
}

func TestDetectFileFormat(t *testing.T) {
	dir := t.TempDir()
	chunk := writeChunkFile(t, dir, 1, "a")
	text := filepath.Join(dir, "words.txt")
	yml := filepath.Join(dir, "words.yml")
	other := filepath.Join(dir, "words.csv")
	tiny := filepath.Join(dir, "dict_0002.bin")
	for _, p := range []string{text, yml, other} {
		require.NoError(t, os.WriteFile(p, []byte("a\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(tiny, []byte{1}, 0o644))

	testCases := []struct {
		path string
		want FileFormat
		ok   bool
	}{
		{chunk, FormatChunk, true},
		{text, FormatText, true},
		{yml, FormatYAML, true},
		{other, FormatUnknown, false},
		{tiny, FormatUnknown, false},
		{filepath.Join(dir, "missing.txt"), FormatUnknown, false},
	}
	for _, tc := range testCases {
		t.Run(filepath.Base(tc.path), func(t *testing.T) {
			got, err := DetectFileFormat(tc.path)
			assert.Equal(t, tc.want, got)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrUnknownFormat)
			}
		})
	}
}

func TestLoadDirIntoCompleter(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, 2, "helium")
	writeChunkFile(t, dir, 1, "hello", "help")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.txt"), []byte("hero 70000\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte("words:\n  - word: heap\n    freq: 1\n"), 0o644))

	chunks, err := GetAvailableChunks(dir)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].ChunkID)
	assert.Equal(t, 2, chunks[0].WordCount)

	c := suggest.NewCompleter()
	n, err := LoadDir(c, dir)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	var got []string
	for _, s := range c.Complete("he", 0) {
		got = append(got, s.Word)
	}
	assert.Equal(t, []string{"hero", "helium", "hello", "help", "heap"}, got)
}

func TestLoadDirEmpty(t *testing.T) {
	_, err := LoadDir(suggest.NewCompleter(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoDictionary)
}

func TestGetFormatInfo(t *testing.T) {
	info, ok := GetFormatInfo(FormatYAML)
	require.True(t, ok)
	assert.Equal(t, []string{".yaml", ".yml"}, info.Extensions)

	_, ok = GetFormatInfo(FormatUnknown)
	assert.False(t, ok)
}
