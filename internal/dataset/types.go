package dataset

// The adapted shapes are immutable once returned by the adapter; evaluators
// only read them.

// Item is one encodable unit with a stable id.
type Item struct {
	ID   string
	Text string
}

// RetrievalData holds a query set, a corpus, and graded relevance judgments
// keyed query id -> doc id -> relevance.
type RetrievalData struct {
	Queries []Item
	Corpus  []Item
	Qrels   map[string]map[string]int
}

// LabeledText is one classification example.
type LabeledText struct {
	ID    string
	Text  string
	Label string
}

// ClusteredText is one clustering example with its gold cluster id.
type ClusteredText struct {
	ID      string
	Text    string
	Cluster int
}

// ScoredPair is one STS example: a sentence pair with a gold similarity.
type ScoredPair struct {
	ID        string
	Sentence1 string
	Sentence2 string
	Score     float64
}

// Candidate is one reranking candidate with its relevance judgment.
type Candidate struct {
	ID       string
	Text     string
	Relevant bool
}

// RerankExample is one query with its candidate list.
type RerankExample struct {
	ID         string
	Query      string
	Candidates []Candidate
}

// BitextPair is one aligned source/target sentence pair. Lang optionally
// names the language pair ("en-de") for per-language score breakdowns.
type BitextPair struct {
	ID     string
	Source string
	Target string
	Lang   string
}

// LabeledPair is one pair-classification example.
type LabeledPair struct {
	ID        string
	Sentence1 string
	Sentence2 string
	Label     bool
}

// SummaryExample is one summarization example: a reference text, machine
// summaries, and per-summary human quality scores.
type SummaryExample struct {
	ID          string
	Text        string
	Summaries   []string
	HumanScores []float64
}

// SplitData holds the adapted examples for one split. Exactly one field is
// populated, matching the task type.
type SplitData struct {
	Retrieval      *RetrievalData
	Classification []LabeledText
	Clustering     []ClusteredText
	STS            []ScoredPair
	Reranking      []RerankExample
	Bitext         []BitextPair
	Pairs          []LabeledPair
	Summarization  []SummaryExample
}

// Data maps split name to adapted examples for one task.
type Data map[string]*SplitData
