// internal/workers/rag/ask-question/models.go
package askquestion

type Input struct {
	Question        string `json:"question"`
	RetrievalMethod string `json:"retrievalMethod"`
	K               *int   `json:"k"`
	Retries         *int   `json:"retries"`
}

type Output struct {
	Answer         string                 `json:"answer"`
	AnswerMetadata map[string]interface{} `json:"answerMetadata,omitempty"`
}
