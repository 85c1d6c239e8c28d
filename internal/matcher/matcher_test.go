package matcher

import (
	"fmt"
	"testing"

	"github.com/EliasMarine/Backlinker-sub000/internal/corpus"
	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

func mustAdd(t *testing.T, c *corpus.Corpus, doc *models.Document) {
	t.Helper()
	if err := c.Add(doc); err != nil {
		t.Fatal(err)
	}
}

// raftTarget is a candidate target with material on every tier.
func raftTarget() *models.Document {
	return &models.Document{
		ID:       "raft.md",
		Title:    "Raft Consensus",
		Text:     "Raft elects a leader and replicates a log across the quorum.",
		Keywords: []string{"quorum", "system"},
		Phrases:  []string{"log replication"},
		Entities: models.EntityGroups{People: []string{"Diego Ongaro"}},
		Vector: map[string]float64{
			"quorum": 0.4, "diego": 0.3, "ongaro": 0.3,
			"log": 0.2, "replication": 0.25, "raft": 0.5,
		},
		TermFreq:   map[string]int{"raft": 5, "quorum": 2, "log": 1, "replication": 1},
		TotalTerms: 9,
	}
}

func testCorpus(t *testing.T, docs ...*models.Document) *corpus.Corpus {
	t.Helper()
	c := corpus.New("test")
	for _, d := range docs {
		mustAdd(t, c, d)
	}
	// Filler documents keep document-frequency percentages meaningful.
	for i := 0; i < 6; i++ {
		mustAdd(t, c, &models.Document{
			ID:       fmt.Sprintf("filler-%d.md", i),
			Title:    fmt.Sprintf("Filler %d", i),
			TermFreq: map[string]int{"cluster": 1, "voting": 1},
		})
	}
	return c
}

func sourceDoc(text string) *models.Document {
	return &models.Document{
		ID:       "notes.md",
		Title:    "Weekly Engineering Journal",
		Text:     text,
		Vector:   map[string]float64{"journal": 0.6},
		TermFreq: map[string]int{"journal": 3},
	}
}

func candidateFor(target *models.Document, score float64) *models.CandidateMatch {
	return &models.CandidateMatch{TargetID: target.ID, TargetTitle: target.Title, Score: score}
}

func relaxedOptions() Options {
	opts := DefaultOptions()
	// Small corpora push every word over a 5% ceiling.
	opts.FrequencyCeiling = 50
	return opts
}

func TestMatch_TitleTierShortCircuits(t *testing.T) {
	target := raftTarget()
	c := testCorpus(t, target)
	m := New(c, relaxedOptions())

	// Title, entity, phrase, and keyword material all present; only the
	// title tier may fire.
	source := sourceDoc("Raft Consensus is how Diego Ongaro handles log replication and quorum votes.")
	got := m.Match(source, candidateFor(target, 0.8))
	if len(got) != 1 {
		t.Fatalf("got %d assignments, want 1", len(got))
	}
	if got[0].Reason != models.ReasonTitle {
		t.Errorf("reason = %s, want title", got[0].Reason)
	}
	if got[0].Keyword != "Raft Consensus" {
		t.Errorf("keyword = %q", got[0].Keyword)
	}
	if diff := got[0].Confidence - 0.8*0.9; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("confidence = %v, want 0.72", got[0].Confidence)
	}
}

func TestMatch_TitleNumericPrefixVariant(t *testing.T) {
	target := raftTarget()
	target.Title = "2.1 - Raft Consensus"
	c := testCorpus(t, target)
	m := New(c, relaxedOptions())

	source := sourceDoc("Everything here builds on Raft Consensus.")
	got := m.Match(source, candidateFor(target, 0.6))
	if len(got) != 1 || got[0].Keyword != "Raft Consensus" {
		t.Fatalf("stripped title variant not matched: %+v", got)
	}
}

func TestMatch_TitleOverlapGuard(t *testing.T) {
	target := &models.Document{
		ID:     "presentation-layer.md",
		Title:  "Presentation Layer",
		Vector: map[string]float64{"presentation": 0.5, "layer": 0.1},
	}
	c := testCorpus(t, target)
	m := New(c, relaxedOptions())

	source := &models.Document{
		ID:    "session-layer.md",
		Title: "Session Layer",
		Text:  "We rely on the Session Layer for framing.",
	}
	// Shared significant word "layer" covers half the smaller title; the
	// pair is rejected before any tier runs, whatever the score.
	if got := m.Match(source, candidateFor(target, 0.99)); got != nil {
		t.Errorf("overlapping titles must suppress all anchors, got %+v", got)
	}
}

func TestMatch_SelfMatchRejected(t *testing.T) {
	target := raftTarget()
	c := testCorpus(t, target)
	m := New(c, relaxedOptions())
	if got := m.Match(target, candidateFor(target, 0.9)); got != nil {
		t.Errorf("document matched itself: %+v", got)
	}
}

func TestMatch_EntityTier(t *testing.T) {
	target := raftTarget()
	c := testCorpus(t, target)
	m := New(c, relaxedOptions())

	source := sourceDoc("Diego Ongaro wrote the thesis this summary leans on.")
	got := m.Match(source, candidateFor(target, 0.5))
	if len(got) != 1 {
		t.Fatalf("got %d assignments, want 1", len(got))
	}
	if got[0].Reason != models.ReasonEntity || got[0].Keyword != "Diego Ongaro" {
		t.Errorf("assignment = %+v", got[0])
	}
	if diff := got[0].Confidence - 0.5*0.8; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("confidence = %v, want 0.40", got[0].Confidence)
	}
}

func TestMatch_EntityInSourceTitleSkipped(t *testing.T) {
	target := raftTarget()
	c := testCorpus(t, target)
	m := New(c, relaxedOptions())

	source := sourceDoc("Diego Ongaro appears in this note about consensus voting.")
	source.Title = "Interview with Diego Ongaro"
	got := m.Match(source, candidateFor(target, 0.5))
	for _, a := range got {
		if a.Keyword == "Diego Ongaro" {
			t.Errorf("entity inside the source title must not anchor: %+v", a)
		}
	}
}

func TestMatch_EntitySpecificityRatio(t *testing.T) {
	target := raftTarget()
	c := testCorpus(t, target)
	m := New(c, relaxedOptions())

	// The source cares about the same words almost as much as the target:
	// ratio (0.3+0.3)/(0.25+0.25) = 1.2 < 2.0.
	source := sourceDoc("Diego Ongaro comes up constantly in these notes.")
	source.Vector = map[string]float64{"diego": 0.25, "ongaro": 0.25}
	got := m.Match(source, candidateFor(target, 0.5))
	for _, a := range got {
		if a.Reason == models.ReasonEntity {
			t.Errorf("non-specific entity accepted: %+v", a)
		}
	}
}

func TestMatch_PhraseTier(t *testing.T) {
	target := raftTarget()
	c := testCorpus(t, target)
	opts := relaxedOptions()
	opts.EnableEntityTier = false
	m := New(c, opts)

	source := sourceDoc("Snapshotting interacts badly with log replication under load.")
	got := m.Match(source, candidateFor(target, 0.6))
	if len(got) != 1 || got[0].Reason != models.ReasonPhrase {
		t.Fatalf("assignments = %+v", got)
	}
	if got[0].Keyword != "log replication" {
		t.Errorf("keyword = %q", got[0].Keyword)
	}
	if diff := got[0].Confidence - 0.6*0.7; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("confidence = %v, want 0.42", got[0].Confidence)
	}
}

func TestMatch_PhraseFrequencyCeiling(t *testing.T) {
	target := raftTarget()
	c := testCorpus(t, target)
	opts := relaxedOptions()
	opts.EnableEntityTier = false
	// "log" and "replication" each appear in 1 of 7 documents (~14%).
	opts.FrequencyCeiling = 10
	m := New(c, opts)

	source := sourceDoc("Snapshotting interacts badly with log replication under load.")
	got := m.Match(source, candidateFor(target, 0.6))
	for _, a := range got {
		if a.Reason == models.ReasonPhrase {
			t.Errorf("common phrase accepted: %+v", a)
		}
	}
}

type stubVerifier struct {
	available bool
	score     float64
	ok        bool
}

func (s *stubVerifier) Available() bool { return s.available }
func (s *stubVerifier) Verify(text string, pos int, targetID string) (float64, bool) {
	return s.score, s.ok
}

func TestMatch_PhraseVerification(t *testing.T) {
	target := raftTarget()
	source := sourceDoc("Snapshotting interacts badly with log replication under load.")

	tests := []struct {
		name       string
		verifier   *stubVerifier
		wantMatch  bool
		wantScaled bool
	}{
		{name: "similar context modulates confidence", verifier: &stubVerifier{available: true, score: 0.8, ok: true}, wantMatch: true, wantScaled: true},
		{name: "dissimilar context rejects", verifier: &stubVerifier{available: true, score: 0.2, ok: true}, wantMatch: false},
		{name: "no verdict keeps base confidence", verifier: &stubVerifier{available: true, ok: false}, wantMatch: true},
		{name: "verifier down keeps base confidence", verifier: &stubVerifier{available: false}, wantMatch: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCorpus(t, target)
			opts := relaxedOptions()
			opts.EnableEntityTier = false
			m := New(c, opts, WithVerifier(tt.verifier))

			got := m.Match(source, candidateFor(target, 0.6))
			if !tt.wantMatch {
				if len(got) != 0 {
					t.Fatalf("want rejection, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("got %d assignments, want 1", len(got))
			}
			want := 0.6 * 0.7
			if tt.wantScaled {
				want *= 0.8
			}
			if diff := got[0].Confidence - want; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("confidence = %v, want %v", got[0].Confidence, want)
			}
		})
	}
}

func TestMatch_KeywordTier(t *testing.T) {
	target := raftTarget()
	c := testCorpus(t, target)
	opts := relaxedOptions()
	opts.EnableEntityTier = false
	opts.EnablePhraseTier = false
	m := New(c, opts)

	// "system" is a domain stopword, "quorum" is specific to the target.
	source := sourceDoc("Our system only commits once a quorum acknowledges.")
	got := m.Match(source, candidateFor(target, 0.6))
	if len(got) != 1 {
		t.Fatalf("got %d assignments, want 1", len(got))
	}
	if got[0].Keyword != "quorum" || got[0].Reason != models.ReasonKeyword {
		t.Errorf("assignment = %+v", got[0])
	}
	if diff := got[0].Confidence - 0.6*0.5; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("confidence = %v, want 0.30", got[0].Confidence)
	}
}

func TestMatch_KeywordVerificationMandatory(t *testing.T) {
	target := raftTarget()
	c := testCorpus(t, target)
	opts := relaxedOptions()
	opts.EnableEntityTier = false
	opts.EnablePhraseTier = false

	source := sourceDoc("Our deploy only commits once a quorum acknowledges.")

	// With a live verifier that cannot produce a verdict, no keyword anchor
	// may be emitted.
	m := New(c, opts, WithVerifier(&stubVerifier{available: true, ok: false}))
	if got := m.Match(source, candidateFor(target, 0.6)); len(got) != 0 {
		t.Errorf("unverified keyword accepted: %+v", got)
	}

	// A passing verdict modulates the confidence.
	m = New(c, opts, WithVerifier(&stubVerifier{available: true, score: 0.9, ok: true}))
	got := m.Match(source, candidateFor(target, 0.6))
	if len(got) != 1 {
		t.Fatalf("got %d assignments, want 1", len(got))
	}
	if diff := got[0].Confidence - 0.6*0.5*0.9; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("confidence = %v", got[0].Confidence)
	}
}

func TestMatch_DisabledTiersSkipped(t *testing.T) {
	target := raftTarget()
	c := testCorpus(t, target)
	opts := relaxedOptions()
	opts.EnableEntityTier = false
	opts.EnablePhraseTier = false
	opts.EnableKeywordTier = false
	m := New(c, opts)

	source := sourceDoc("Diego Ongaro handles log replication and quorum votes.")
	if got := m.Match(source, candidateFor(target, 0.9)); got != nil {
		t.Errorf("disabled tiers produced %+v", got)
	}
}

func TestAggregate(t *testing.T) {
	c := testCorpus(t)
	opts := relaxedOptions()
	opts.MaxPerSource = 3
	m := New(c, opts)

	perTarget := [][]*models.AnchorAssignment{
		{
			{Keyword: "quorum", TargetID: "raft.md", Confidence: 0.7},
			{Keyword: "snapshot", TargetID: "raft.md", Confidence: 0.3},
		},
		{
			// Competing claim on "quorum": lower confidence, must lose.
			{Keyword: "Quorum", TargetID: "paxos.md", Confidence: 0.5},
			{Keyword: "ballot", TargetID: "paxos.md", Confidence: 0.6},
			{Keyword: "acceptor", TargetID: "paxos.md", Confidence: 0.4},
		},
	}
	got := m.Aggregate(perTarget)
	if len(got) != 3 {
		t.Fatalf("got %d assignments, want cap of 3", len(got))
	}
	if got[0].Keyword != "quorum" || got[0].TargetID != "raft.md" {
		t.Errorf("top = %+v, want raft.md quorum", got[0])
	}
	if got[1].Keyword != "ballot" || got[2].Keyword != "acceptor" {
		t.Errorf("order = %q, %q", got[1].Keyword, got[2].Keyword)
	}
	for _, a := range got {
		if a.Keyword == "snapshot" {
			t.Error("cap exceeded: snapshot should be cut")
		}
		if a.TargetID == "paxos.md" && a.Keyword == "Quorum" {
			t.Error("losing duplicate claim survived")
		}
	}
}
