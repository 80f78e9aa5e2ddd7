package gemini

import (
	"strings"

	"github.com/leofalp/aitasks/providers/ai"
)

func requestToGemini(request ai.ChatRequest) generateContentRequest {
	req := generateContentRequest{Contents: make([]content, 0, len(request.Messages))}

	systemPrompt := request.SystemPrompt
	for _, msg := range request.Messages {
		if msg.Role == ai.RoleSystem {
			if systemPrompt == "" {
				systemPrompt = msg.Content
			}
			continue
		}
		req.Contents = append(req.Contents, content{Role: roleToGemini(msg.Role), Parts: messageParts(msg)})
	}
	if systemPrompt != "" {
		req.SystemInstruction = &systemInstruction{Parts: []part{{Text: systemPrompt}}}
	}

	cfg := &generationConfig{}
	if gc := request.GenerationConfig; gc != nil {
		cfg.Temperature = gc.Temperature
		if gc.TopP > 0 {
			cfg.TopP = &gc.TopP
		}
		if gc.MaxTokens > 0 {
			cfg.MaxOutputTokens = &gc.MaxTokens
		}
		if gc.N > 1 {
			cfg.CandidateCount = &gc.N
		}
		if gc.PresencePenalty != 0 {
			cfg.PresencePenalty = &gc.PresencePenalty
		}
		if gc.FrequencyPenalty != 0 {
			cfg.FrequencyPenalty = &gc.FrequencyPenalty
		}
	}
	if request.ResponseFormat != nil && request.ResponseFormat.Type == "json_object" {
		cfg.ResponseMimeType = "application/json"
	}
	if *cfg != (generationConfig{}) {
		req.GenerationConfig = cfg
	}

	return req
}

func roleToGemini(role ai.MessageRole) string {
	if role == ai.RoleAssistant {
		return "model"
	}
	return "user"
}

func messageParts(msg ai.Message) []part {
	if len(msg.ContentParts) == 0 {
		return []part{{Text: msg.Content}}
	}

	parts := make([]part, 0, len(msg.ContentParts))
	for _, cp := range msg.ContentParts {
		if cp.Type == ai.ContentTypeText {
			parts = append(parts, part{Text: cp.Text})
			continue
		}
		media := cp.Media()
		if media == nil {
			continue
		}
		if media.Data != "" {
			parts = append(parts, part{InlineData: &inlineData{MimeType: media.MimeType, Data: media.Data}})
		} else if media.URI != "" {
			parts = append(parts, part{FileData: &fileData{MimeType: media.MimeType, FileURI: media.URI}})
		}
	}
	return parts
}

// geminiToGeneric joins the non-thought text parts of each candidate.
func geminiToGeneric(resp generateContentResponse) *ai.ChatResponse {
	out := &ai.ChatResponse{Id: resp.ResponseID}

	texts := make([]string, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		var sb strings.Builder
		if c.Content != nil {
			for _, p := range c.Content.Parts {
				if !p.Thought {
					sb.WriteString(p.Text)
				}
			}
		}
		texts = append(texts, strings.TrimSpace(sb.String()))
	}

	out.Content = texts[0]
	out.FinishReason = mapFinishReason(resp.Candidates[0].FinishReason)
	if out.FinishReason == "content_filter" {
		out.Refusal = "response blocked: " + resp.Candidates[0].FinishReason
	}
	if len(texts) > 1 {
		out.Choices = texts
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = &ai.Usage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return out
}

func mapFinishReason(reason string) string {
	switch reason {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return "content_filter"
	}
	return strings.ToLower(reason)
}
