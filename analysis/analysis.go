// Package analysis assembles the investment-analysis prompt and runs
// the single LLM exchange at the heart of the pipeline.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pitchlens/pitchlens/imageprep"
	"github.com/pitchlens/pitchlens/llm"
)

const (
	maxTokens   = 4000
	temperature = 0.7
)

// Input collects everything the prompt is built from. Only Content is
// required; the optional blocks enrich the prompt when present.
type Input struct {
	Content     string
	CompanyName string

	// LinksSummary is the formatted block of URLs and emails discovered
	// in the deck text.
	LinksSummary string

	// WebResearch is the formatted block of scraped page content.
	WebResearch string

	// Images are prepared deck images; their presence switches the
	// exchange to the vision model.
	Images []imageprep.Prepared
}

// Usage mirrors the token accounting reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the outcome of one analysis exchange. Transport and
// response-shape failures are reported here, not as Go errors, so the
// pipeline can still render a failure report.
type Result struct {
	Success   bool   `json:"success"`
	Analysis  string `json:"analysis,omitempty"`
	ModelUsed string `json:"model_used,omitempty"`
	Usage     Usage  `json:"usage"`
	Error     string `json:"error,omitempty"`
}

// Client runs analysis exchanges against an LLM provider.
type Client struct {
	provider    llm.VisionProvider
	textModel   string
	visionModel string
}

// NewClient creates an analysis client. visionModel is used whenever the
// input carries images; textModel otherwise.
func NewClient(provider llm.VisionProvider, textModel, visionModel string) *Client {
	if visionModel == "" {
		visionModel = textModel
	}
	return &Client{provider: provider, textModel: textModel, visionModel: visionModel}
}

// Analyze performs exactly one exchange. No retries: a transport failure
// surfaces as a failed Result immediately.
func (c *Client) Analyze(ctx context.Context, in Input) Result {
	prompt := BuildPrompt(in)

	var (
		resp *llm.ChatResponse
		err  error
	)
	if len(in.Images) > 0 {
		slog.Info("analysis: running multimodal exchange",
			"model", c.visionModel, "images", len(in.Images))
		resp, err = c.provider.ChatWithImages(ctx, visionRequest(c.visionModel, prompt, in.Images))
	} else {
		slog.Info("analysis: running text exchange", "model", c.textModel)
		resp, err = c.provider.Chat(ctx, llm.ChatRequest{
			Model:       c.textModel,
			Messages:    []llm.Message{{Role: "user", Content: prompt}},
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
	}

	if err != nil {
		slog.Error("analysis: exchange failed", "error", err)
		return Result{Success: false, Error: fmt.Sprintf("API request failed: %v", err)}
	}

	return Result{
		Success:   true,
		Analysis:  resp.Content,
		ModelUsed: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.CompletionTokens,
			TotalTokens:      resp.TotalTokens,
		},
	}
}

func visionRequest(model, prompt string, images []imageprep.Prepared) llm.VisionChatRequest {
	parts := make([]llm.ContentPart, 0, len(images)+1)
	parts = append(parts, llm.TextPart(prompt))
	for _, img := range images {
		parts = append(parts, llm.ImagePart(img.DataURL(), img.Detail))
	}
	return llm.VisionChatRequest{
		Model:       model,
		Messages:    []llm.VisionMessage{{Role: "user", Content: parts}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// BuildPrompt renders the full analysis prompt: the rubric, the deck
// content, and whichever optional research blocks the input carries.
func BuildPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("You are an expert investment analyst specializing in early-stage startup evaluation. ")
	b.WriteString("Analyze the following pitch deck content and provide a comprehensive investment analysis report.\n\n")

	b.WriteString("**PITCH DECK CONTENT:**\n")
	b.WriteString(in.Content)
	b.WriteString("\n")

	if in.LinksSummary != "" {
		b.WriteString("\n**LINKS AND CONTACTS FOUND IN THE DECK:**\n")
		b.WriteString(in.LinksSummary)
		b.WriteString("\n")
	}

	if in.WebResearch != "" {
		b.WriteString("\n**INFORMATION FOUND ONLINE:**\n")
		b.WriteString("The following information was gathered from websites referenced in the deck. ")
		b.WriteString("Incorporate it into your analysis and note any discrepancies with the deck's claims.\n\n")
		b.WriteString(in.WebResearch)
		b.WriteString("\n")
	}

	if len(in.Images) > 0 {
		b.WriteString("\nThe attached images are slides from the deck. ")
		b.WriteString("Use any charts, figures, and visual content in them as part of the analysis.\n")
	}

	b.WriteString(analysisRubric)
	return b.String()
}

const analysisRubric = `
**ANALYSIS REQUIREMENTS:**
Please provide a detailed analysis covering the following areas:

1. **COMPANY OVERVIEW**
   - Company name, mission, and vision
   - Industry and market sector
   - Stage of development (pre-seed, seed, Series A, etc.)
   - Geographic location and target markets

2. **BUSINESS MODEL ANALYSIS**
   - Revenue model and monetization strategy
   - Unit economics and pricing strategy
   - Customer acquisition strategy
   - Scalability potential

3. **MARKET ANALYSIS**
   - Total Addressable Market (TAM), Serviceable Addressable Market (SAM), Serviceable Obtainable Market (SOM)
   - Market trends and growth potential
   - Competitive landscape
   - Market timing and opportunity

4. **PRODUCT/SERVICE EVALUATION**
   - Product description and unique value proposition
   - Technology stack and innovation level
   - Product-market fit evidence
   - Competitive advantages and moats

5. **TEAM ASSESSMENT**
   - Founder backgrounds and expertise
   - Team composition and key personnel
   - Advisory board and investors
   - Execution capability assessment

6. **FINANCIAL ANALYSIS**
   - Current financial status
   - Revenue projections and growth trajectory
   - Funding requirements and use of funds
   - Key financial metrics and assumptions

7. **TRACTION AND MILESTONES**
   - Customer traction and user metrics
   - Revenue growth and key achievements
   - Partnerships and strategic relationships
   - Product development milestones

8. **RISK ASSESSMENT**
   - Market risks and competitive threats
   - Execution risks and operational challenges
   - Financial risks and funding concerns
   - Regulatory and compliance risks

9. **INVESTMENT RECOMMENDATION**
   - Overall investment attractiveness (1-10 scale)
   - Key strengths and opportunities
   - Major concerns and red flags
   - Recommended due diligence areas

10. **ADDITIONAL RESEARCH SUGGESTIONS**
    - Key questions for management team
    - Areas requiring deeper investigation
    - Comparable companies for benchmarking
    - Industry experts to consult

**OUTPUT FORMAT:**
Please structure your response as a well-formatted markdown document suitable for an investment manager. Use clear headings, bullet points, and professional language. Be specific and actionable in your recommendations.

If any information is missing from the pitch deck, clearly indicate what additional information would be valuable for a complete assessment.
`
