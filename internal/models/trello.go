package models

// TrelloCard is one card as returned by the board cards endpoint. Due is the
// raw string form; normalization happens in the monitor.
type TrelloCard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Due         string `json:"due"`
	Description string `json:"desc"`
	URL         string `json:"url"`
	ListID      string `json:"idList"`
}

// TrelloAction is one entry from a card's action stream. For updateCard
// actions, Data.Old carries the fields the edit replaced; for commentCard
// actions, Data.Text carries the comment body.
type TrelloAction struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Date string `json:"date"`
	Data struct {
		Text string                 `json:"text"`
		Old  map[string]interface{} `json:"old"`
	} `json:"data"`
}

// TrelloComment is the neutral comment shape consumed by the monitor.
type TrelloComment struct {
	CommentID string
	Text      string
	CreatedAt string
}
