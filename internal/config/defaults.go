package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
// Data paths derived from Home are filled in by Load.
func ApplyDefaults(cfg *Config) {
	if cfg.Home == "" {
		cfg.Home = "MyAINote"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3031
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 10
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 20
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderBytes
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = 5
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 200
	}
	if cfg.Search.AnswerSnippetLength == 0 {
		cfg.Search.AnswerSnippetLength = 200
	}
	if cfg.Search.KeywordLimit == 0 {
		cfg.Search.KeywordLimit = 10
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".md"}
	}
	if cfg.Watch.QueueSize == 0 {
		cfg.Watch.QueueSize = 64
	}
	if cfg.OCR.Engine == "" {
		cfg.OCR.Engine = OCREngineTesseract
	}
	if cfg.OCR.Binary == "" {
		cfg.OCR.Binary = "tesseract"
	}
	if cfg.OCR.Languages == "" {
		cfg.OCR.Languages = "eng"
	}
	if cfg.OCR.Timeout == 0 {
		cfg.OCR.Timeout = 30 * time.Second
	}
}
