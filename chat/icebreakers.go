package chat

type Icebreaker struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// Icebreakers are conversation starters plus the tip of the day. Fallback
// is set when the list came from the offline copy.
type Icebreakers struct {
	Items    []Icebreaker `json:"icebreakers"`
	DailyTip string       `json:"dailyTip,omitempty"`
	Fallback bool         `json:"-"`
}

// FallbackIcebreakers is served when the backend cannot provide a list.
func FallbackIcebreakers() Icebreakers {
	return Icebreakers{
		Items: []Icebreaker{
			{ID: "1", Text: "Como posso economizar energia no ar condicionado?"},
			{ID: "2", Text: "Quais aparelhos gastam mais energia em casa?"},
			{ID: "3", Text: "Dicas para iluminação eficiente"},
			{ID: "4", Text: "Entendendo a bandeira tarifária"},
		},
		DailyTip: "Desligue aparelhos da tomada quando não estiverem em uso para evitar o consumo \"vampiro\".",
		Fallback: true,
	}
}
