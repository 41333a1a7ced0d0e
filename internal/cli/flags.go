package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile  string
	LogLevel string
	Backend  string

	// Collaborator
	RemoteURL string

	// Generation and review
	NoReview bool   // print the cards instead of the interactive review
	SaveFile string // save the result JSON for `review` later

	// Export and batch
	OutputDir string
	Format    string
	DeckName  string
	Parallel  int
	WithAudio bool

	// Server
	ServerAddr string
	ServerRate float64

	// Stats
	ResetStats bool

	// OpenAI flags
	ChatModel   string
	OpenAIModel string
	OpenAIVoice string
	OpenAISpeed float64
	Player      string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		LogLevel:    "info",
		Backend:     "remote",
		RemoteURL:   "http://localhost:8000/api/v1",
		OutputDir:   "./decks",
		Format:      "apkg",
		DeckName:    "Study Cards",
		Parallel:    2,
		ServerAddr:  "localhost:8000",
		ServerRate:  5,
		ChatModel:   "gpt-4o-mini",
		OpenAIModel: "gpt-4o-mini-tts",
		OpenAIVoice: "alloy",
		OpenAISpeed: 1.0,
	}
}
