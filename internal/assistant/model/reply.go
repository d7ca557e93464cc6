package model

// Profile names selectable per chat session.
const (
	ProfileSimpleChat = "Simple LLM Chat"
	ProfileRAG        = "RAG"
	ProfileGraphRAG   = "GraphRAG"
	ProfileTextToSQL  = "Text-to-SQL"
	ProfileFRCAgent   = "FRC Agent"
)

// Reply is the outbound message for one question: text plus optional inline chart.
type Reply struct {
	Content string  `json:"content"`
	Steps   []Step  `json:"steps,omitempty"`
	Figure  *Figure `json:"figure,omitempty"`
}

// Step is an intermediate result shown collapsed next to the answer.
type Step struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
	Output   string `json:"output"`
}

// Figure is a Plotly-compatible chart description.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Orientation string `json:"orientation,omitempty"`
	X           []any  `json:"x,omitempty"`
	Y           []any  `json:"y,omitempty"`
	Labels      []any  `json:"labels,omitempty"`
	Values      []any  `json:"values,omitempty"`
}

type Layout struct {
	Title string `json:"title,omitempty"`
	XAxis Axis   `json:"xaxis"`
	YAxis Axis   `json:"yaxis"`
}

type Axis struct {
	Title string `json:"title,omitempty"`
}
