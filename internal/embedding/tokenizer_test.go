package embedding

import (
	"testing"
)

func TestWordHashTokenizer_Tokenize(t *testing.T) {
	tok := &WordHashTokenizer{}
	ids, attn, types := tok.Tokenize("Raft elects a leader", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths = %d/%d/%d, want 10", len(ids), len(attn), len(types))
	}
	if ids[0] != tokenCLS {
		t.Errorf("ids[0] = %d, want CLS %d", ids[0], tokenCLS)
	}
	// 4 words after CLS, then SEP.
	if ids[5] != tokenSEP {
		t.Errorf("ids[5] = %d, want SEP %d", ids[5], tokenSEP)
	}
	for i := 0; i <= 5; i++ {
		if attn[i] != 1 {
			t.Errorf("attn[%d] = %d, want 1", i, attn[i])
		}
	}
	if attn[6] != 0 || ids[6] != tokenPAD {
		t.Error("positions past SEP should be padding")
	}
}

func TestWordHashTokenizer_StableAndCaseInsensitive(t *testing.T) {
	tok := &WordHashTokenizer{}
	a, _, _ := tok.Tokenize("Consensus Protocol", 8)
	b, _, _ := tok.Tokenize("consensus protocol", 8)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("ids differ at %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestWordHashTokenizer_TruncatesLongText(t *testing.T) {
	tok := &WordHashTokenizer{}
	ids, attn, _ := tok.Tokenize("one two three four five six seven eight", 5)
	if len(ids) != 5 {
		t.Fatalf("len = %d, want 5", len(ids))
	}
	if ids[4] != tokenSEP {
		t.Errorf("ids[4] = %d, want SEP after truncation", ids[4])
	}
	if attn[4] != 1 {
		t.Error("SEP position should be attended")
	}
}

func TestWordID_StaysClearOfSpecialTokens(t *testing.T) {
	words := []string{"raft", "paxos", "gossip", "a", "zz", "kubernetes"}
	for _, w := range words {
		id := wordID(w, defaultVocabSize)
		if id <= tokenSEP || id >= defaultVocabSize {
			t.Errorf("wordID(%q) = %d, want in (%d, %d)", w, id, tokenSEP, defaultVocabSize)
		}
		if id != wordID(w, defaultVocabSize) {
			t.Errorf("wordID(%q) not deterministic", w)
		}
	}
}
