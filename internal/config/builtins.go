package config

// BuiltinProviders is the default provider pattern table. The matcher takes
// the first entry that matches, so order matters: custom providers from a
// config file are prepended ahead of these and win on overlapping patterns,
// and within this table "openai" (whose host list ends in `.*`) claims any
// OpenAI-style path it shares with a later entry, whatever the host.
var BuiltinProviders = []ProviderPattern{
	{
		Name: "openai",
		PathPatterns: []string{
			`/v1/chat/completions`,
			`/v1/completions`,
			`/v1/responses`,
			`/v1/embeddings`,
			`/v1/assistants`,
			`/v1/threads`,
			`/v1/threads/.+/messages`,
			`/v1/threads/.+/runs`,
			`/v1/audio/transcriptions`,
			`/v1/audio/translations`,
			`/v1/audio/speech`,
			`/v1/images/generations`,
			`/v1/images/edits`,
			`/v1/images/variations`,
			`/v1/moderations`,
			`/v1/files`,
			`/v1/batches`,
			`/chat/completions$`,
			`/completions$`,
			`/embeddings$`,
		},
		HostPatterns: []string{
			`api\.openai\.com`,
			`localhost`,
			`127\.0\.0\.1`,
			`.*`,
		},
		IsRegex: true,
	},
	{
		Name: "anthropic",
		PathPatterns: []string{
			`/v1/messages`,
			`/v1/complete`,
		},
		HostPatterns: []string{
			`api\.anthropic\.com`,
		},
		IsRegex: true,
	},
	{
		Name: "gemini",
		PathPatterns: []string{
			`/v1beta/models/.+:generateContent`,
			`/v1beta/models/.+:streamGenerateContent`,
			`/v1beta/models/.+:countTokens`,
			`/v1beta/models/.+:embedContent`,
			`/v1/models/.+:generateContent`,
			`/v1/models/.+:streamGenerateContent`,
			`/v1/projects/.+/locations/.+/publishers/.+/models/.+:predict`,
			`/v1/projects/.+/locations/.+/publishers/.+/models/.+:streamPredict`,
			`/v1/projects/.+/locations/.+/publishers/.+/models/.+:generateContent`,
		},
		HostPatterns: []string{
			`generativelanguage\.googleapis\.com`,
			`.*-aiplatform\.googleapis\.com`,
		},
		IsRegex: true,
	},
	{
		Name: "bedrock",
		PathPatterns: []string{
			`/model/.+/invoke`,
			`/model/.+/invoke-with-response-stream`,
			`/model/.+/converse`,
			`/model/.+/converse-stream`,
		},
		HostPatterns: []string{
			`bedrock-runtime\..*\.amazonaws\.com`,
			`bedrock\..*\.amazonaws\.com`,
		},
		IsRegex: true,
	},
	{
		Name: "azure_openai",
		PathPatterns: []string{
			`/openai/deployments/.+/chat/completions`,
			`/openai/deployments/.+/completions`,
			`/openai/deployments/.+/embeddings`,
			`/openai/deployments/.+/images/generations`,
			`/openai/deployments/.+/audio/transcriptions`,
			`/openai/deployments/.+/audio/translations`,
		},
		HostPatterns: []string{
			`.*\.openai\.azure\.com`,
			`.*\.azure-api\.net`,
		},
		IsRegex: true,
	},
	{
		// W&B Inference. Not in spec.md's prose enumeration but present in
		// the original implementation's built-in table — see SPEC_FULL.md §4.1.
		Name: "wandb_inference",
		PathPatterns: []string{
			`/v1/chat/completions`,
			`/v1/completions`,
			`/v1/embeddings`,
		},
		HostPatterns: []string{
			`.*\.wandb\.ai`,
			`api\.wandb\.ai`,
		},
		IsRegex: true,
	},
	{
		Name: "cohere",
		PathPatterns: []string{
			`/v1/chat`,
			`/v1/generate`,
			`/v1/embed`,
			`/v1/rerank`,
			`/v1/summarize`,
		},
		HostPatterns: []string{
			`api\.cohere\.ai`,
			`api\.cohere\.com`,
		},
		IsRegex: true,
	},
	{
		Name: "mistral",
		PathPatterns: []string{
			`/v1/chat/completions`,
			`/v1/embeddings`,
			`/v1/fim/completions`,
		},
		HostPatterns: []string{
			`api\.mistral\.ai`,
		},
		IsRegex: true,
	},
	{
		Name: "groq",
		PathPatterns: []string{
			`/openai/v1/chat/completions`,
			`/v1/chat/completions`,
		},
		HostPatterns: []string{
			`api\.groq\.com`,
		},
		IsRegex: true,
	},
	{
		Name: "together",
		PathPatterns: []string{
			`/v1/chat/completions`,
			`/v1/completions`,
			`/v1/embeddings`,
			`/inference`,
		},
		HostPatterns: []string{
			`api\.together\.xyz`,
			`.*\.together\.ai`,
		},
		IsRegex: true,
	},
	{
		Name: "replicate",
		PathPatterns: []string{
			`/v1/predictions`,
			`/v1/models/.+/predictions`,
		},
		HostPatterns: []string{
			`api\.replicate\.com`,
		},
		IsRegex: true,
	},
	{
		Name: "fireworks",
		PathPatterns: []string{
			`/inference/v1/chat/completions`,
			`/inference/v1/completions`,
			`/inference/v1/embeddings`,
		},
		HostPatterns: []string{
			`api\.fireworks\.ai`,
		},
		IsRegex: true,
	},
	{
		Name: "perplexity",
		PathPatterns: []string{
			`/chat/completions`,
		},
		HostPatterns: []string{
			`api\.perplexity\.ai`,
		},
		IsRegex: true,
	},
	{
		Name: "ollama",
		PathPatterns: []string{
			`/api/generate`,
			`/api/chat`,
			`/api/embeddings`,
			`/v1/chat/completions`,
		},
		HostPatterns: []string{
			`localhost`,
			`127\.0\.0\.1`,
			`.*:11434`,
		},
		IsRegex: true,
	},
	{
		Name: "google_adk",
		PathPatterns: []string{
			`/run$`,
			`/run_sse$`,
			`/api/run$`,
			`/api/run_sse$`,
		},
		HostPatterns: []string{
			`localhost`,
			`127\.0\.0\.1`,
		},
		IsRegex: true,
	},
}
