package config

const (
	defaultProvider       = "ollama"
	defaultTarget         = "http://localhost:11434"
	defaultStorageProv    = "sqlite"
	defaultEmbeddingModel = "nomic-embed-text"
	defaultEmbeddingDims  = 768
	defaultSummarizeModel = "llama3.2"

	defaultRecentCapacity     = 50
	defaultRecentThreshold    = 20
	defaultSummarizeLength    = 10
	defaultCleanIntervalDays  = 7
	defaultEvictMaxAgeDays    = 90.0
	defaultEvictMinImportance = 0.3
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProv,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultProvider,
			Target:     defaultTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDims,
		},
		Summarizer: SummarizerConfig{
			Provider: defaultProvider,
			Target:   defaultTarget,
			Model:    defaultSummarizeModel,
		},
		Memory: MemoryConfig{
			RecentCapacity:     defaultRecentCapacity,
			RecentThreshold:    defaultRecentThreshold,
			SummarizeLength:    defaultSummarizeLength,
			CleanIntervalDays:  defaultCleanIntervalDays,
			EvictMaxAgeDays:    defaultEvictMaxAgeDays,
			EvictMinImportance: defaultEvictMinImportance,
		},
	}
}
