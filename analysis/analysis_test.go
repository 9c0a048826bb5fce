package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pitchlens/pitchlens/imageprep"
	"github.com/pitchlens/pitchlens/llm"
)

type fakeProvider struct {
	chatCalls   int
	visionCalls int
	lastChat    llm.ChatRequest
	lastVision  llm.VisionChatRequest
	resp        *llm.ChatResponse
	err         error
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.chatCalls++
	f.lastChat = req
	return f.resp, f.err
}

func (f *fakeProvider) ChatWithImages(ctx context.Context, req llm.VisionChatRequest) (*llm.ChatResponse, error) {
	f.visionCalls++
	f.lastVision = req
	return f.resp, f.err
}

func TestAnalyzeTextOnly(t *testing.T) {
	f := &fakeProvider{resp: &llm.ChatResponse{
		Content: "## Company Overview\nAcme builds robots.",
		Model:   "anthropic/claude-3.5-sonnet",
		PromptTokens: 1200, CompletionTokens: 800, TotalTokens: 2000,
	}}
	c := NewClient(f, "anthropic/claude-3.5-sonnet", "anthropic/claude-3.5-sonnet")

	res := c.Analyze(context.Background(), Input{Content: "Acme Robotics pitch"})

	if !res.Success {
		t.Fatalf("Success = false: %s", res.Error)
	}
	if res.Analysis != "## Company Overview\nAcme builds robots." {
		t.Errorf("Analysis = %q", res.Analysis)
	}
	if res.ModelUsed != "anthropic/claude-3.5-sonnet" {
		t.Errorf("ModelUsed = %q", res.ModelUsed)
	}
	if res.Usage.TotalTokens != 2000 {
		t.Errorf("TotalTokens = %d", res.Usage.TotalTokens)
	}
	if f.chatCalls != 1 || f.visionCalls != 0 {
		t.Errorf("calls: chat=%d vision=%d, want text path", f.chatCalls, f.visionCalls)
	}
	if f.lastChat.MaxTokens != 4000 {
		t.Errorf("MaxTokens = %d, want 4000", f.lastChat.MaxTokens)
	}
	if f.lastChat.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", f.lastChat.Temperature)
	}
}

func TestAnalyzeWithImagesUsesVisionModel(t *testing.T) {
	f := &fakeProvider{resp: &llm.ChatResponse{Content: "ok", Model: "vision-model"}}
	c := NewClient(f, "text-model", "vision-model")

	images := []imageprep.Prepared{
		{EncodedPayload: "AAAA", MIMEType: "image/jpeg", Detail: "high"},
		{EncodedPayload: "BBBB", MIMEType: "image/jpeg", Detail: "high"},
	}
	res := c.Analyze(context.Background(), Input{Content: "deck", Images: images})

	if !res.Success {
		t.Fatalf("Success = false: %s", res.Error)
	}
	if f.visionCalls != 1 || f.chatCalls != 0 {
		t.Errorf("calls: chat=%d vision=%d, want vision path", f.chatCalls, f.visionCalls)
	}
	if f.lastVision.Model != "vision-model" {
		t.Errorf("Model = %q, want vision-model", f.lastVision.Model)
	}

	parts := f.lastVision.Messages[0].Content
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want prompt + 2 images", len(parts))
	}
	if parts[0].Type != "text" {
		t.Errorf("first part = %q, want text", parts[0].Type)
	}
	if parts[1].ImageURL == nil || !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,") {
		t.Errorf("image part = %+v", parts[1])
	}
}

func TestAnalyzeTransportFailure(t *testing.T) {
	f := &fakeProvider{err: errors.New("connection refused")}
	c := NewClient(f, "m", "m")

	res := c.Analyze(context.Background(), Input{Content: "deck"})

	if res.Success {
		t.Fatal("Success = true, want structured failure")
	}
	if !strings.Contains(res.Error, "connection refused") {
		t.Errorf("Error = %q, want cause preserved", res.Error)
	}
	if res.Analysis != "" {
		t.Errorf("Analysis = %q, want empty on failure", res.Analysis)
	}
	if f.chatCalls != 1 {
		t.Errorf("calls = %d, want exactly 1 (no retry)", f.chatCalls)
	}
}

func TestNewClientVisionModelDefaultsToTextModel(t *testing.T) {
	f := &fakeProvider{resp: &llm.ChatResponse{Content: "ok", Model: "m"}}
	c := NewClient(f, "only-model", "")

	c.Analyze(context.Background(), Input{
		Content: "deck",
		Images:  []imageprep.Prepared{{EncodedPayload: "AAAA", MIMEType: "image/jpeg"}},
	})

	if f.lastVision.Model != "only-model" {
		t.Errorf("Model = %q, want fallback to text model", f.lastVision.Model)
	}
}

// ---------------------------------------------------------------------------
// Prompt assembly
// ---------------------------------------------------------------------------

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(Input{Content: "Acme raises $2M"})

	for _, want := range []string{
		"expert investment analyst",
		"**PITCH DECK CONTENT:**",
		"Acme raises $2M",
		"**COMPANY OVERVIEW**",
		"Total Addressable Market (TAM)",
		"**INVESTMENT RECOMMENDATION**",
		"(1-10 scale)",
		"**ADDITIONAL RESEARCH SUGGESTIONS**",
		"well-formatted markdown document",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	for _, unwanted := range []string{"LINKS AND CONTACTS", "INFORMATION FOUND ONLINE", "attached images"} {
		if strings.Contains(prompt, unwanted) {
			t.Errorf("prompt contains %q without matching input", unwanted)
		}
	}
}

func TestBuildPromptOptionalBlocks(t *testing.T) {
	prompt := BuildPrompt(Input{
		Content:      "deck text",
		LinksSummary: "Websites: acme.example",
		WebResearch:  "URL: https://acme.example\nTitle: Acme",
		Images:       []imageprep.Prepared{{EncodedPayload: "AAAA"}},
	})

	for _, want := range []string{
		"**LINKS AND CONTACTS FOUND IN THE DECK:**",
		"Websites: acme.example",
		"**INFORMATION FOUND ONLINE:**",
		"Title: Acme",
		"attached images are slides from the deck",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Deck content must come before the research blocks, rubric last.
	if strings.Index(prompt, "deck text") > strings.Index(prompt, "INFORMATION FOUND ONLINE") {
		t.Error("deck content should precede research blocks")
	}
	if strings.Index(prompt, "ANALYSIS REQUIREMENTS") < strings.Index(prompt, "INFORMATION FOUND ONLINE") {
		t.Error("rubric should come after research blocks")
	}
}
