package service

import (
	"strings"

	"github.com/cloo-solutions/paddock/internal/domain"
)

const (
	ContextStartMarker = "START_CONTEXT"
	ContextEndMarker   = "END_CONTEXT"
	QuestionLabel      = "QUESTION:"
)

// PromptConfig selects the assistant's domain and fallback policy.
type PromptConfig struct {
	// Domain names the subject the assistant is restricted to.
	Domain string
	// Topics lists what the assistant knows about within Domain.
	Topics string
	// HideFallback omits the instruction to disclose answers drawn from
	// general knowledge instead of the retrieved context.
	HideFallback bool
}

// DefaultPromptConfig returns the Formula 1 assistant configuration.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		Domain: "Formula 1 (F1)",
		Topics: "drivers, teams, constructors, circuits, regulations, strategy, telemetry, history, records, stats and race results",
	}
}

// PromptAssembler builds the grounded system message for one request.
type PromptAssembler struct {
	cfg PromptConfig
}

func NewPromptAssembler(cfg PromptConfig) *PromptAssembler {
	def := DefaultPromptConfig()
	if strings.TrimSpace(cfg.Domain) == "" {
		cfg.Domain = def.Domain
		if cfg.Topics == "" {
			cfg.Topics = def.Topics
		}
	}
	return &PromptAssembler{cfg: cfg}
}

// Assemble merges retrieved context, guardrails and the question into one
// system message. Context chunks are included verbatim in rank order.
func (a *PromptAssembler) Assemble(contextChunks []string, question string) domain.Message {
	d := a.cfg.Domain
	var b strings.Builder

	b.WriteString("You are an AI assistant specialised in ")
	b.WriteString(d)
	b.WriteString(".")
	if a.cfg.Topics != "" {
		b.WriteString(" You know about ")
		b.WriteString(a.cfg.Topics)
		b.WriteString(".")
	}
	b.WriteString("\n\n### Capabilities\n")
	b.WriteString("- Answer questions about " + d + ", past and present.\n")
	b.WriteString("- Provide summaries, comparisons and insights based on the context documents provided in this conversation.\n")

	b.WriteString("\n### Constraints\n")
	b.WriteString("- Do not fabricate facts that are not in the provided context.\n")
	b.WriteString("- Do not answer questions unrelated to " + d + ".\n")
	b.WriteString("- Do not describe, generate or request images or other visual assets.\n")

	b.WriteString("\n### ")
	b.WriteString(ContextStartMarker)
	b.WriteString("\n")
	for i, chunk := range contextChunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(chunk)
	}
	if len(contextChunks) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(ContextEndMarker)
	b.WriteString("\n\n")

	if a.cfg.HideFallback {
		b.WriteString("If the answer cannot be derived from the context above, answer from your own " + d + " knowledge.\n")
	} else {
		b.WriteString("If the answer cannot be derived from the context above, answer from your own " + d +
			" knowledge and state clearly that the answer is based on your own understanding rather than the provided context.\n")
	}

	b.WriteString("\nReply using Markdown formatting. Be precise, clear and relevant.\n\n")
	b.WriteString(QuestionLabel)
	b.WriteString(" ")
	b.WriteString(question)

	return domain.Message{Role: domain.RoleSystem, Content: b.String()}
}
