package aiprovider

import "fmt"

// BaseSystemPrompt is the fixed single-image system prompt. A camera's
// CustomPrompt, when set, replaces this entirely (spec.md §4.5).
const BaseSystemPrompt = `You are analyzing a single frame from a security camera snapshot. Describe what you observe factually and concisely: who or what is present, what they appear to be doing, and any notable detail a homeowner would want to know.`

// MultiFrameSystemPromptTemplate is ported in spirit from
// original_source/ai_service.py's MULTI_FRAME_SYSTEM_PROMPT constant —
// the distillation only summarized its existence ("temporal-narrative
// instruction"); the exact register is restored here since nothing else
// in the corpus defines it, and spec.md requires a temporal-narrative
// prompt specifically.
const MultiFrameSystemPromptTemplate = `You are analyzing a sequence of %d frames from a security camera video, shown in chronological order. Describe the sequence of events as a short narrative: what happens first, what happens next, and how the scene changes across the frames. Focus on motion and action rather than describing each frame in isolation.`

// ConfidenceInstruction is appended to every prompt, requesting a strict
// JSON reply. Ported in spirit from original_source/ai_service.py's
// CONFIDENCE_INSTRUCTION constant — the "respond in this exact JSON
// format" phrasing is preserved because downstream parsing depends on
// providers actually attempting that shape.
const ConfidenceInstruction = `

After your description, rate your confidence in this description from 0 to 100, where:
- 0-30: Very uncertain, limited visibility or unclear action
- 31-50: Somewhat uncertain, some ambiguity
- 51-70: Moderately confident
- 71-90: Confident
- 91-100: Very confident, clear view and obvious action

Respond in this exact JSON format:
{"description": "your detailed description here", "confidence": 85}`

// BuildSingleImagePrompt assembles the single-image system prompt: the
// base prompt (or the camera's CustomPrompt, which *replaces* it),
// followed by the context suffix, optional audio transcription, and the
// confidence instruction block.
func BuildSingleImagePrompt(pctx PromptContext) string {
	base := BaseSystemPrompt
	if pctx.CustomPrompt != "" {
		base = pctx.CustomPrompt
	}
	return assemble(base, pctx)
}

// BuildMultiFramePrompt assembles the multi-frame system prompt: the
// temporal-narrative base (parameterized by frame count), with the
// camera's CustomPrompt *appended* (never replacing the temporal
// narrative instruction), followed by the context suffix, optional audio
// transcription, and the confidence instruction block.
func BuildMultiFramePrompt(pctx PromptContext) string {
	base := fmt.Sprintf(MultiFrameSystemPromptTemplate, pctx.NumFrames)
	if pctx.CustomPrompt != "" {
		base = base + "\n" + pctx.CustomPrompt
	}
	return assemble(base, pctx)
}

func assemble(base string, pctx PromptContext) string {
	prompt := base + contextSuffix(pctx)
	if pctx.AudioTranscription != "" {
		prompt += fmt.Sprintf("\n\nAudio transcription: %q", pctx.AudioTranscription)
	}
	prompt += ConfidenceInstruction
	return prompt
}

func contextSuffix(pctx PromptContext) string {
	suffix := fmt.Sprintf("\nContext: Camera '%s' at %s.", pctx.CameraName, pctx.TimestampISO)
	if len(pctx.DetectedTags) > 0 {
		suffix += " Motion detected: " + joinComma(pctx.DetectedTags) + "."
	}
	return suffix
}

func joinComma(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}
