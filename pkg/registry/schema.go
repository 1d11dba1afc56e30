package registry

// QuestionCatalog is the set of screening questions shown on the
// Application Questions stage.
type QuestionCatalog struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Questions   []Question `json:"questions"`
}

// Question text may contain a {company} placeholder.
type Question struct {
	Key      string `json:"key"`
	Text     string `json:"text"`
	Required bool   `json:"required"`
}

// Answer values. An absent key means unset.
const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)
