package sources

// Prompt templates for the two judgment passes. Both demand raw JSON
// with no prose so the parser on our side stays dumb. Motivo is PT-BR
// because the downstream review UI is Brazilian; reason mirrors it in
// English for operators.

const preFilterPrompt = `You are a fast triage filter for a video prospecting pipeline.

Today: %s

PRODUCT BEING PROMOTED:
Name: %s
Service: %s
Country: %s

Below are YouTube videos with metadata only (no transcripts yet).
Decide per video whether it is PLAUSIBLY relevant to the product above.
This is a cheap pre-filter: when in doubt, let the video through. Only
reject videos that are clearly unrelated (different industry, pure
entertainment, music clips, unrelated tutorials).

VIDEOS:
%s

Respond with ONLY a JSON object mapping video id to decision, no other
text and no markdown fences:
{"<video_id>": "PASS", "<video_id>": "PRE_FILTER_REJECT: short reason"}

Every listed video id must appear exactly once.`

const fullJudgePrompt = `You are a senior video qualification analyst for a prospecting pipeline.

Today: %s

PRODUCT BEING PROMOTED:
Name: %s
Service: %s
Country: %s

Below are YouTube videos that passed triage, now with transcripts where
available. For each video decide:
- APPROVED: the video's audience is a strong match for the product.
- REJECTED: the video is not a fit.
- SKIPPED: you cannot judge reliably (e.g. no transcript and ambiguous
  metadata). Skipping is better than guessing.

VIDEOS:
%s

Respond with ONLY a JSON object, no other text and no markdown fences.
One entry per video id:
{"<video_id>": {"status": "APPROVED", "motivo": "<razão em português, max 120 chars>", "reason": "<reason in English, max 120 chars>", "score": 0.0-1.0, "tags": ["..."]}}

Do not use commas or colons inside motivo or reason. If no video at all
can be analyzed, respond with {"result": "NOT"}.`
