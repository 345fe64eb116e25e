package domain

// ChunkMetadata is the metadata stored alongside each indexed vector
type ChunkMetadata struct {
	DocumentID string         `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
	Domain     DocumentDomain `json:"domain"`
	FileName   string         `json:"file_name"`
	TokenCount int            `json:"token_count"`
}

// SearchResult is one ranked retrieval hit. Score is a similarity in [0,1]
// where 1 is most similar.
type SearchResult struct {
	ChunkText    string        `json:"chunk_text"`
	Score        float32       `json:"score"`
	DocumentName string        `json:"document_name"`
	ChunkIndex   int           `json:"chunk_index"`
	Metadata     ChunkMetadata `json:"metadata"`
}

// RetrievalFilter narrows a similarity search. An empty filter matches
// everything; DomainGeneral is treated as "no domain constraint".
type RetrievalFilter struct {
	DocumentIDs []string
	Domain      DocumentDomain
}

// IsEmpty reports whether the filter applies no constraint at all
func (f RetrievalFilter) IsEmpty() bool {
	return len(f.DocumentIDs) == 0 && !f.HasDomain()
}

// HasDomain reports whether the filter constrains the document domain
func (f RetrievalFilter) HasDomain() bool {
	return f.Domain != "" && f.Domain != DomainGeneral
}
