package domain

const (
	DefaultQueryIntent = "General Inquiry"
	NoEvidenceAnswer   = "I could not find any relevant information in the documents to answer your question."
	UntitledSection    = "Untitled Section"
	UnknownDocument    = "unknown"
	// InvalidQueryMessage is the client-facing text for ErrInvalidQuery.
	InvalidQueryMessage = "Query must be between 10 and 500 characters."

	MinMaxResults = 1
	MaxMaxResults = 20
)

// SearchResult is a single retrieval hit. Higher Score means more relevant.
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// ClauseInfo is a retrieved chunk presented as supporting evidence.
type ClauseInfo struct {
	ClauseID       string  `json:"clause_id"`
	Title          string  `json:"title"`
	Text           string  `json:"text"`
	DocumentID     string  `json:"document_id"`
	Page           *int    `json:"page,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

type LogicCondition struct {
	Condition      string `json:"condition"`
	IsMet          bool   `json:"is_met"`
	SourceClauseID string `json:"source_clause_id"`
}

type LogicTree struct {
	Type       LogicOperator    `json:"type"`
	Conditions []LogicCondition `json:"conditions"`
}

type QueryRequest struct {
	Question     string   `json:"question"`
	DocumentIDs  []string `json:"document_ids,omitempty"`
	MaxResults   int      `json:"max_results,omitempty"`
	IncludeLogic bool     `json:"include_logic"`
}

type QueryResponse struct {
	Answer      string         `json:"answer"`
	ClausesUsed []ClauseInfo   `json:"clauses_used"`
	LogicTree   *LogicTree     `json:"logic_tree,omitempty"`
	Confidence  float64        `json:"confidence"`
	QueryIntent string         `json:"query_intent"`
	Entities    map[string]any `json:"entities"`
}

type RunRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

type RunResponse struct {
	Answers []string `json:"answers"`
}
