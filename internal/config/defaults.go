package config

import "path/filepath"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Provider: ProviderConfig{
			APIBase:        "https://api.openai.com/v1",
			ChatModel:      "gpt-4o",
			EmbeddingModel: "text-embedding-ada-002",
			MaxTokens:      4000,
		},
		Corpus: CorpusConfig{
			PDFDir:            filepath.Join("data", "books"),
			LinksPath:         filepath.Join("data", "links", "links.json"),
			ManifestPath:      filepath.Join("data", "books", "sources.yaml"),
			AbbreviationsPath: filepath.Join("data", "books", "storage", "german_abbreviation_new.txt"),
		},
		Store: StoreConfig{
			Path: filepath.Join("config", "db", "index.sqlite"),
		},
		Retrieval: RetrievalConfig{
			TopK:             10,
			ScoreThreshold:   0.50,
			ContextThreshold: 0.10,
		},
		Feedback: FeedbackConfig{
			Dir: "user-testing",
		},
		Channels: ChannelsConfig{
			CLI: CLIConfig{
				Enabled: true,
			},
			Telegram: TelegramConfig{
				Enabled: false,
			},
		},
	}
}
