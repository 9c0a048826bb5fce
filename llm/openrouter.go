package llm

import "context"

// openRouterProvider implements VisionProvider for OpenRouter.
// OpenRouter uses the OpenAI-compatible API format.
type openRouterProvider struct {
	base openAICompatClient
}

// NewOpenRouter creates a provider for OpenRouter. Attribution headers
// identify the tool to OpenRouter's ranking; they carry no secrets.
func NewOpenRouter(cfg Config) VisionProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api"
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{
			"HTTP-Referer": "https://github.com/pitchlens/pitchlens",
			"X-Title":      "PitchLens",
		}
	}
	return &openRouterProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openRouterProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *openRouterProvider) ChatWithImages(ctx context.Context, req VisionChatRequest) (*ChatResponse, error) {
	return p.base.chatWithImages(ctx, req)
}
