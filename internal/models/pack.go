package models

// PackPrompt is a prompt as it appears in a card pack before it is dealt.
type PackPrompt struct {
	Text string `json:"text"`
	Pick int    `json:"pick"`
}

// Pack is a resolved card pack.
type Pack struct {
	Abbr      string       `json:"abbr"`
	Name      string       `json:"name"`
	Official  bool         `json:"official"`
	Prompts   []PackPrompt `json:"-"`
	Responses []string     `json:"-"`
}

// PackInfo is the public listing entry for a pack.
type PackInfo struct {
	Abbr           string `json:"abbr"`
	Name           string `json:"name"`
	Official       bool   `json:"official"`
	PromptsCount   int    `json:"promptsCount"`
	ResponsesCount int    `json:"responsesCount"`
}
