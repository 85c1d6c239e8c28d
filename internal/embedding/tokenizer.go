package embedding

import (
	"hash/fnv"
	"strings"
)

// BERT special token IDs shared by the MiniLM-family models the default
// configuration points at.
const (
	tokenPAD = 0
	tokenCLS = 101
	tokenSEP = 102
)

// defaultVocabSize matches the bert-base-uncased vocabulary.
const defaultVocabSize = 30522

// Tokenizer converts note text into the three int64 sequences a BERT-style
// model expects: input_ids, attention_mask, and token_type_ids, each padded
// to maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// WordHashTokenizer maps whitespace-separated words to stable IDs by hashing.
// It has no vocabulary file, so IDs will not line up with a model's trained
// embedding table; similarity scores remain usable because identical words
// always produce identical IDs. A real WordPiece tokenizer can replace it
// without touching the provider.
type WordHashTokenizer struct {
	// VocabSize bounds generated IDs; zero means the bert-base-uncased size.
	VocabSize int
}

// Tokenize lowercases and splits text, emitting [CLS] words... [SEP] with
// attention over the filled positions. Words beyond maxTokens-2 are dropped.
func (t *WordHashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	vocab := t.VocabSize
	if vocab <= 0 {
		vocab = defaultVocabSize
	}

	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = tokenCLS
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = wordID(word, vocab)
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = tokenSEP
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// wordID hashes a word into (tokenSEP, vocab), clear of the special IDs.
func wordID(word string, vocab int) int64 {
	h := fnv.New32a()
	h.Write([]byte(word))
	span := vocab - tokenSEP - 1
	return int64(tokenSEP + 1 + int(h.Sum32())%span)
}
