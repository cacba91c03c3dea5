package analysis

const systemPrompt = "You are analyzing a transcript of an expert walkthrough or demonstration. " +
	"Respond with raw JSON only, no markdown."

const chapterPrompt = `Your task is to identify logical chapters/sections in the content.

Transcript:
%s

Identify 3-8 logical chapters from this transcript. For each chapter, provide:
1. A concise title
2. The approximate start time in seconds
3. The approximate end time in seconds
4. A brief summary (1-2 sentences)

Return JSON in exactly this format:
{
  "chapters": [
    {
      "title": "Chapter title",
      "start_seconds": 0,
      "end_seconds": 120,
      "summary": "Brief description of what's covered"
    }
  ]
}

Timestamps must not overlap and chapters must cover the entire content (%d seconds).`

const decisionPrompt = `Your task is to identify key decision points: moments where the expert makes choices, explains reasoning, or considers alternatives.

Transcript:
%s

Identify 2-5 key decision points from this transcript. For each decision point, provide:
1. The timestamp in seconds (approximate based on position in text)
2. A description of the decision being made
3. The reasoning behind the decision
4. Any alternatives that were considered or mentioned
5. Context about what was happening before this decision
6. A confidence score from 0.0 to 1.0 indicating how clearly this is a decision point

Return JSON in exactly this format:
{
  "decision_points": [
    {
      "timestamp_seconds": 120,
      "decision_description": "What decision was made",
      "reasoning": "Why this decision was made",
      "alternatives_considered": ["Alternative 1", "Alternative 2"],
      "context_before": "What was happening before",
      "confidence_score": 0.85
    }
  ]
}

Focus on decisions that teach valuable lessons or demonstrate expert reasoning.`

const summaryPrompt = `Your task is to create a concise executive summary and key takeaways.

Transcript:
%s

Provide:
1. An executive summary (2-3 paragraphs) explaining what this walkthrough covers
2. 4-6 key takeaways that viewers should remember
3. A quality score from 0-100 based on clarity of explanations, depth of content, educational value, and practical applicability

Return JSON in exactly this format:
{
  "executive_summary": "Multi-paragraph summary here...",
  "key_takeaways": ["First key insight", "Second key insight"],
  "quality_score": 85
}`
