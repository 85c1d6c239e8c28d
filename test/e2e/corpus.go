// Package e2e runs full-pipeline tests over a generated note vault.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// VaultNote is one note in the generated vault (relative id, title, body).
type VaultNote struct {
	ID    string
	Title string
	Body  string
}

// LinkTestCase names a journal note and the topic titles a linking pass
// must anchor inside it.
type LinkTestCase struct {
	SourceID       string
	ExpectedTitles []string
	Description    string
}

// Vault holds generated notes and the linking expectations derived from them.
type Vault struct {
	Notes      []VaultNote
	TestCases  []LinkTestCase
	TotalNotes int
	TotalCases int
}

// topic is a reference note template. The phrase is a signature that appears
// verbatim in the body so the note owns distinctive vocabulary.
type topic struct {
	title  string
	phrase string
	body   string
}

var topics = []topic{
	{"Raft Consensus", "leader election quorum", "Raft elects a leader through randomized timeouts. Leader election quorum rules require a majority of voters. Log replication carries committed entries to followers."},
	{"Paxos", "proposer acceptor ballot", "Paxos reaches agreement in two phases. Proposer acceptor ballot numbers order competing proposals. A quorum of acceptors must accept before a value is chosen."},
	{"Vector Clocks", "causal ordering counters", "Vector clocks track causality between replicas. Causal ordering counters increment on local events and merge on receipt. Concurrent updates show as incomparable clocks."},
	{"Gossip Protocol", "epidemic dissemination rounds", "Gossip spreads state through random peer exchange. Epidemic dissemination rounds converge in logarithmic time. Anti-entropy repairs missed updates."},
	{"Merkle Trees", "hash tree verification", "Merkle trees summarize large datasets. Hash tree verification compares roots to find divergent ranges. Synchronization only transfers differing leaves."},
	{"Consistent Hashing", "ring partition tokens", "Consistent hashing maps keys to a ring. Ring partition tokens limit reshuffling when nodes join. Virtual nodes smooth the load distribution."},
	{"Write-Ahead Log", "durable append fsync", "A write-ahead log records changes before applying them. Durable append fsync ordering guarantees recovery. Checkpoints truncate the old segments."},
	{"LSM Trees", "memtable compaction levels", "LSM trees buffer writes in memory. Memtable compaction levels merge sorted runs downward. Bloom filters skip absent keys on reads."},
	{"B-Tree Indexes", "balanced page splits", "B-trees keep keys sorted in wide nodes. Balanced page splits bound the tree height. Range scans walk sibling pointers."},
	{"Bloom Filters", "probabilistic membership bits", "Bloom filters answer membership with no false negatives. Probabilistic membership bits trade memory for accuracy. Deletion needs a counting variant."},
	{"Two-Phase Commit", "coordinator prepare votes", "Two-phase commit coordinates distributed transactions. Coordinator prepare votes precede the commit decision. A crashed coordinator blocks participants."},
	{"Snapshot Isolation", "mvcc read timestamp", "Snapshot isolation reads a consistent point in time. MVCC read timestamp selection avoids blocking writers. Write skew is the classic anomaly."},
	{"CRDT Counters", "merge commutative replicas", "CRDT counters converge without coordination. Merge commutative replicas take elementwise maxima. Decrements require the PN variant."},
	{"Lamport Timestamps", "logical clock happened-before", "Lamport timestamps order events logically. Logical clock happened-before relations respect message causality. Ties break on process identity."},
	{"Quorum Reads", "read repair staleness", "Quorum reads intersect with write quorums. Read repair staleness fixes lagging replicas inline. Sloppy quorums trade consistency for availability."},
	{"Leader Leases", "lease expiry fencing", "Leader leases let one node serve reads locally. Lease expiry fencing tokens prevent split brain. Clock skew bounds the lease safety margin."},
	{"Chain Replication", "head tail ordering", "Chain replication orders writes down a chain. Head tail ordering gives strong consistency with cheap reads. Failures splice the chain around the dead node."},
	{"Sharding Strategy", "key range rebalancing", "Sharding splits data across nodes. Key range rebalancing moves hot partitions. Directory services track shard placement."},
	{"Backpressure", "bounded queue shedding", "Backpressure signals overload upstream. Bounded queue shedding drops work before memory grows. Credit-based flow control meters the producer."},
	{"Circuit Breakers", "trip half-open probe", "Circuit breakers stop calls to failing services. Trip half-open probe requests test recovery. Error rate windows drive the state machine."},
	{"Rate Limiting", "token bucket refill", "Rate limiting caps request throughput. Token bucket refill rates allow short bursts. Distributed limiters share counters in a store."},
	{"Idempotency Keys", "dedupe retry window", "Idempotency keys make retries safe. Dedupe retry window storage remembers completed requests. Keys expire after the retry horizon."},
	{"Event Sourcing", "append projection replay", "Event sourcing stores facts instead of state. Append projection replay rebuilds any view. Upcasting migrates old event schemas."},
	{"Saga Pattern", "compensation step rollback", "Sagas split long transactions into steps. Compensation step rollback undoes completed work on failure. Orchestration centralizes the control flow."},
	{"Outbox Pattern", "transactional relay publish", "The outbox pattern avoids dual writes. Transactional relay publish moves rows to the broker. Consumers dedupe on the message id."},
	{"Change Data Capture", "binlog stream offsets", "CDC tails the database log. Binlog stream offsets give exactly-once resume points. Schema changes flow as control events."},
	{"Inverted Index", "posting list terms", "An inverted index maps terms to documents. Posting list terms store positions for phrase queries. Skip pointers speed up intersection."},
	{"TF-IDF Weighting", "term frequency rarity", "TF-IDF weighs terms by local frequency and global rarity. Term frequency rarity products favor distinctive words. Length normalization prevents long-document bias."},
	{"Cosine Similarity", "normalized dot product", "Cosine similarity compares direction not magnitude. Normalized dot product values stay in the unit interval. Sparse vectors make it cheap to compute."},
	{"Stemming Rules", "suffix stripping porter", "Stemming conflates word variants. Suffix stripping porter rules run in ordered phases. Over-stemming merges unrelated terms."},
	{"Stop Words", "frequency noise filtering", "Stop words carry little signal. Frequency noise filtering drops them before indexing. Domain lists extend the general set."},
	{"N-Gram Models", "sliding window shingles", "N-grams capture local word order. Sliding window shingles of size two or three work well for matching. Rare n-grams identify near-duplicates."},
	{"Embedding Vectors", "dense semantic space", "Embeddings place text in a vector space. Dense semantic space neighbors share meaning beyond vocabulary. Quantization shrinks the index footprint."},
	{"Approximate Neighbors", "hnsw graph layers", "Approximate search trades recall for speed. HNSW graph layers route queries toward dense regions. Ef parameters tune the recall curve."},
	{"Query Expansion", "synonym recall broadening", "Query expansion adds related terms. Synonym recall broadening helps short queries. Pseudo-relevance feedback mines the top results."},
	{"Front Matter", "yaml metadata keys", "Front matter carries note metadata. YAML metadata keys hold tags and aliases. Parsers must tolerate missing blocks."},
	{"Wiki Links", "double bracket aliases", "Wiki links connect notes by title. Double bracket aliases keep the prose readable. Broken links surface in vault reports."},
	{"Daily Notes", "journal capture habit", "Daily notes capture thoughts with low friction. Journal capture habit entries reference project notes. Weekly reviews promote durable content."},
	{"Zettelkasten", "atomic permanent slips", "Zettelkasten favors small linked notes. Atomic permanent slips hold one idea each. Links matter more than hierarchy."},
	{"Spaced Repetition", "review interval scheduling", "Spaced repetition schedules reviews before forgetting. Review interval scheduling grows with each success. Lapses reset the interval."},
}

// journalSpecs defines journal notes: each mentions a set of topic titles in
// running prose and shares vocabulary with those topics.
var journalSpecs = []struct {
	id       string
	mentions []int // indexes into topics
}{
	{"journal/2026-01-05.md", []int{0, 1, 14}},
	{"journal/2026-01-12.md", []int{6, 7, 8}},
	{"journal/2026-01-19.md", []int{19, 20, 21}},
	{"journal/2026-02-02.md", []int{27, 28, 31}},
	{"journal/2026-02-09.md", []int{36, 38, 39}},
	{"journal/2026-02-16.md", []int{3, 4, 5}},
	{"journal/2026-03-02.md", []int{23, 24, 25}},
	{"journal/2026-03-09.md", []int{32, 33, 34}},
}

// BuildVault generates topic notes plus journal notes that mention them, and
// derives one linking test case per journal.
func BuildVault() *Vault {
	notes := make([]VaultNote, 0, len(topics)+len(journalSpecs))
	for _, t := range topics {
		notes = append(notes, VaultNote{
			ID:    noteID(t.title),
			Title: t.title,
			Body:  fmt.Sprintf("# %s\n\n%s\n", t.title, t.body),
		})
	}

	cases := make([]LinkTestCase, 0, len(journalSpecs))
	for _, js := range journalSpecs {
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", strings.TrimSuffix(filepath.Base(js.id), ".md"))
		titles := make([]string, 0, len(js.mentions))
		for _, mi := range js.mentions {
			t := topics[mi]
			titles = append(titles, t.title)
			fmt.Fprintf(&b, "Spent the morning on %s. The %s detail finally made sense. %s\n\n",
				t.title, t.phrase, firstSentence(t.body))
		}
		notes = append(notes, VaultNote{
			ID:    js.id,
			Title: strings.TrimSuffix(filepath.Base(js.id), ".md"),
			Body:  b.String(),
		})
		cases = append(cases, LinkTestCase{
			SourceID:       js.id,
			ExpectedTitles: titles,
			Description:    fmt.Sprintf("%s links to %s", js.id, strings.Join(titles, ", ")),
		})
	}

	return &Vault{
		Notes:      notes,
		TestCases:  cases,
		TotalNotes: len(notes),
		TotalCases: len(cases),
	}
}

// WriteTo materializes every note under root, creating subdirectories as needed.
func (v *Vault) WriteTo(root string) error {
	for _, n := range v.Notes {
		path := filepath.Join(root, filepath.FromSlash(n.ID))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(n.Body), 0644); err != nil {
			return err
		}
	}
	return nil
}

// Note returns the note with the given id, or nil.
func (v *Vault) Note(id string) *VaultNote {
	for i := range v.Notes {
		if v.Notes[i].ID == id {
			return &v.Notes[i]
		}
	}
	return nil
}

func noteID(title string) string {
	slug := strings.ToLower(title)
	slug = strings.ReplaceAll(slug, " ", "-")
	return "topics/" + slug + ".md"
}

func firstSentence(s string) string {
	if i := strings.Index(s, "."); i >= 0 {
		return s[:i+1]
	}
	return s
}
