/*
Package dictionary loads word lists into a suggestion index.

Three formats are understood:

  - dict_NNNN.bin chunks: a little-endian int32 word count, then per word a uint16 byte
    length, the UTF-8 word and a uint16 rank (1 is best). Rank r is stored as
    frequency 65536-r.
  - .txt files: one word per line, optionally followed by a frequency. Lines starting
    with # are comments. Words may contain spaces; a trailing integer is the frequency.
  - .yaml/.yml files: a "words" list of {word, freq} maps.

Entries without a frequency rank by their position in the file.
*/
package dictionary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// ErrNoDictionary is returned by LoadDir for a directory without word files.
var ErrNoDictionary = errors.New("no dictionary files found")

// maxScore is the frequency of the best ranked entry.
const maxScore = math.MaxUint16 + 1

// WordAdder receives loaded words. suggest.Completer implements it.
type WordAdder interface {
	AddWord(word string, frequency int)
}

// ChunkInfo contains metadata about a chunk file
type ChunkInfo struct {
	ChunkID   int
	Filename  string
	WordCount int
}

type yamlWordList struct {
	Words []yamlWord `yaml:"words"`
}

type yamlWord struct {
	Word string `yaml:"word"`
	Freq int    `yaml:"freq"`
}

// positionalScore is the frequency of the n-th (1-based) entry of a file without frequencies.
func positionalScore(n int) int {
	if n >= maxScore {
		return 1
	}
	return maxScore - n
}

// LoadFile reads one dictionary file into dst and returns the number of words added.
func LoadFile(dst WordAdder, filename string) (int, error) {
	format, err := DetectFileFormat(filename)
	if err != nil {
		return 0, err
	}

	file, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to open dictionary %s: %w", filename, err)
	}
	defer file.Close()

	var count int
	switch format {
	case FormatChunk:
		count, err = ReadChunk(dst, bufio.NewReader(file))
	case FormatText:
		count, err = ReadText(dst, file)
	case FormatYAML:
		count, err = ReadYAML(dst, file)
	}
	if err != nil {
		return count, fmt.Errorf("failed to load %s: %w", filename, err)
	}
	if info, ok := GetFormatInfo(format); ok {
		log.Debugf("Loaded %d words from %s (%s)", count, filename, info.Description)
	}
	return count, nil
}

// LoadDir loads every dict_*.bin chunk in id order, then the text and YAML word lists
// in name order. It returns the total number of words added.
func LoadDir(dst WordAdder, dirPath string) (int, error) {
	chunks, err := GetAvailableChunks(dirPath)
	if err != nil {
		return 0, err
	}
	files := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		files = append(files, chunk.Filename)
	}
	for _, pattern := range []string{"*.txt", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dirPath, pattern))
		if err != nil {
			return 0, fmt.Errorf("failed to scan %s: %w", dirPath, err)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoDictionary, dirPath)
	}

	total := 0
	for _, f := range files {
		n, err := LoadFile(dst, f)
		total += n
		if err != nil {
			return total, err
		}
	}
	log.Debugf("Loaded %d words from %d files in %s", total, len(files), dirPath)
	return total, nil
}

// GetAvailableChunks scans dirPath for dict_NNNN.bin files, sorted by id.
func GetAvailableChunks(dirPath string) ([]ChunkInfo, error) {
	files, err := filepath.Glob(filepath.Join(dirPath, "dict_*.bin"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan for chunk files: %w", err)
	}

	var chunks []ChunkInfo
	for _, file := range files {
		idStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), "dict_"), ".bin")
		chunkID, err := strconv.Atoi(idStr)
		if err != nil {
			log.Debugf("Skipping chunk with malformed id: %s", file)
			continue
		}
		wordCount, err := chunkWordCount(file)
		if err != nil {
			log.Warnf("Failed to get word count for chunk %s: %v", file, err)
		}
		chunks = append(chunks, ChunkInfo{ChunkID: chunkID, Filename: file, WordCount: wordCount})
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkID < chunks[j].ChunkID
	})
	return chunks, nil
}

func chunkWordCount(filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var wordCount int32
	if err := binary.Read(file, binary.LittleEndian, &wordCount); err != nil {
		return 0, err
	}
	return int(wordCount), nil
}

// ChunkFileName returns the file name of chunk id.
func ChunkFileName(id int) string {
	return fmt.Sprintf("dict_%04d.bin", id)
}

// ReadChunk decodes one binary chunk. A stream that ends before the header count is
// reached is accepted; a truncated entry is not.
func ReadChunk(dst WordAdder, r io.Reader) (int, error) {
	var totalEntries int32
	if err := binary.Read(r, binary.LittleEndian, &totalEntries); err != nil {
		return 0, fmt.Errorf("failed to read chunk header: %w", err)
	}
	if totalEntries < 0 || totalEntries > maxChunkWords {
		return 0, fmt.Errorf("invalid chunk word count %d", totalEntries)
	}

	count := 0
	for count < int(totalEntries) {
		var wordLen uint16
		if err := binary.Read(r, binary.LittleEndian, &wordLen); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return count, fmt.Errorf("failed to read word length: %w", err)
		}

		wordBytes := make([]byte, wordLen)
		if _, err := io.ReadFull(r, wordBytes); err != nil {
			return count, fmt.Errorf("failed to read word: %w", err)
		}

		var rank uint16
		if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
			return count, fmt.Errorf("failed to read rank: %w", err)
		}

		dst.AddWord(string(wordBytes), maxScore-int(rank))
		count++
	}
	return count, nil
}

// WriteChunk encodes words as a binary chunk, ranked by their position.
func WriteChunk(w io.Writer, words []string) error {
	if len(words) > maxChunkWords {
		return fmt.Errorf("chunk of %d words exceeds %d", len(words), maxChunkWords)
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(len(words))); err != nil {
		return err
	}
	ranks := utils.CreateRankList(len(words))
	for i, word := range words {
		if len(word) > math.MaxUint16 {
			return fmt.Errorf("word %d is %d bytes, longer than a chunk entry allows", i, len(word))
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(len(word))); err != nil {
			return err
		}
		if _, err := bw.WriteString(word); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, ranks[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadText decodes a text word list.
func ReadText(dst WordAdder, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, freq := line, 0
		if i := strings.LastIndexAny(line, " \t"); i > 0 {
			if n, err := strconv.Atoi(line[i+1:]); err == nil && n > 0 {
				word, freq = strings.TrimSpace(line[:i]), n
			}
		}
		count++
		if freq == 0 {
			freq = positionalScore(count)
		}
		dst.AddWord(word, freq)
	}
	if err := scanner.Err(); err != nil {
		return count, err
	}
	return count, nil
}

// ReadYAML decodes a YAML word list. Entries with an empty word are skipped.
func ReadYAML(dst WordAdder, r io.Reader) (int, error) {
	var list yamlWordList
	if err := yaml.NewDecoder(r).Decode(&list); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for _, w := range list.Words {
		word := strings.TrimSpace(w.Word)
		if word == "" {
			continue
		}
		count++
		freq := w.Freq
		if freq <= 0 {
			freq = positionalScore(count)
		}
		dst.AddWord(word, freq)
	}
	return count, nil
}
