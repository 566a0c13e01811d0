package onnx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// BERT special token ids shared by uncased vocabularies (MiniLM, bert-base-uncased).
const (
	padID = 0
	unkID = 100
	clsID = 101
	sepID = 102
)

// maxWordChars is the longest word WordPiece attempts to split; longer words map to [UNK].
const maxWordChars = 100

// Tokenizer produces token ids for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// WordPiece is a lowercase BERT tokenizer over a vocab.txt vocabulary.
type WordPiece struct {
	vocab map[string]int64
	unk   int64
	cls   int64
	sep   int64
}

// LoadVocab reads a vocab.txt file (one token per line, id = line number).
func LoadVocab(path string) (*WordPiece, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	return ReadVocab(f)
}

// ReadVocab parses a vocab.txt stream.
func ReadVocab(r io.Reader) (*WordPiece, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		vocab[strings.TrimRight(sc.Text(), "\r")] = id
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocab is empty")
	}

	wp := &WordPiece{vocab: vocab, unk: unkID, cls: clsID, sep: sepID}
	if v, ok := vocab["[UNK]"]; ok {
		wp.unk = v
	}
	if v, ok := vocab["[CLS]"]; ok {
		wp.cls = v
	}
	if v, ok := vocab["[SEP]"]; ok {
		wp.sep = v
	}
	return wp, nil
}

// Tokenize encodes text as [CLS] pieces... [SEP], truncated and zero-padded to maxTokens.
func (t *WordPiece) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 2
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = t.cls
	attentionMask[0] = 1
	pos := 1

outer:
	for _, word := range basicTokenize(text) {
		for _, id := range t.wordPieces(word) {
			if pos >= maxTokens-1 {
				break outer
			}
			inputIDs[pos] = id
			attentionMask[pos] = 1
			pos++
		}
	}

	inputIDs[pos] = t.sep
	attentionMask[pos] = 1
	for i := pos + 1; i < maxTokens; i++ {
		inputIDs[i] = padID
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// wordPieces splits a word greedily into the longest vocabulary prefixes.
func (t *WordPiece) wordPieces(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordChars {
		return []int64{t.unk}
	}

	var ids []int64
	start := 0
	for start < len(runes) {
		end := len(runes)
		var id int64
		found := false
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if v, ok := t.vocab[piece]; ok {
				id = v
				found = true
				break
			}
			end--
		}
		if !found {
			return []int64{t.unk}
		}
		ids = append(ids, id)
		start = end
	}
	return ids
}

// basicTokenize lowercases, drops control characters and splits on whitespace and punctuation.
func basicTokenize(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
		case isPunct(r) || unicode.Is(unicode.Han, r):
			flush()
			words = append(words, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// HashTokenizer is a word-split tokenizer with hash-based token ids, used when no vocab is configured.
type HashTokenizer struct{}

// Tokenize splits text into words and produces padded token ids up to maxTokens.
func (HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 2
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsID
	attentionMask[0] = 1

	pos := 1
	for _, word := range basicTokenize(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(hashString(word)%30000) + 1000
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = sepID
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

func hashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
