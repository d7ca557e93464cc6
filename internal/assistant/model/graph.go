package model

// Entity is a node of the member knowledge graph.
type Entity struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	SourceIDs   []string `json:"source_ids"`
}

// Relation is a directed edge between two entities.
type Relation struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Description string  `json:"description"`
	Keywords    string  `json:"keywords"`
	Weight      float64 `json:"weight"`
	SourceID    string  `json:"source_id"`
}

// Extraction is the parsed result of one entity/relation extraction completion.
type Extraction struct {
	Entities        []Entity
	Relations       []Relation
	ParsingMetadata map[string]any
}
