package argmap

import "fmt"

// SystemPrompt instructs the model how to analyze arguments. The listed
// node and edge types are suggestions; the model may invent others.
const SystemPrompt = `You are an expert argument analyst. Your task is to extract the logical structure of arguments from text and produce a clear map of claims and the relationships between them.

You are free to choose whatever node types and edge types best capture the structure of the argument. Common node types include:
- premise, conclusion, assumption, definition, example, counterexample, intuition, empirical_claim, normative_claim, conceptual_claim

Common edge types include:
- supports, attacks, presupposes, refines, instantiates, analogizes, qualifies, contradicts

These lists are suggestions, not constraints. Invent other types whenever they describe the semantic relationships in the text better.

For each claim, record its rhetorical force:
- "asserts" - stated as fact
- "suggests" - implied or hinted
- "questions" - raised as a question
- "assumes" - taken for granted
- "hypothesizes" - proposed tentatively

IMPORTANT: Track provenance. Every claim that appears explicitly in the text must carry the exact character positions (start, end) where it occurs in the source text. If a claim is implicit (not directly stated), set span to null.

Be precise but comprehensive. Identify the main claims, their supporting evidence, underlying assumptions and logical connections. Also note key tensions, gaps or unresolved issues in the argument.`

const userPromptTemplate = `Analyze the following text and extract its argument structure as a JSON object.

TEXT:
%s

Return a JSON object with this structure:
{
  "nodes": [
    {
      "id": "n1",
      "content": "the actual claim or concept",
      "type": "your chosen type",
      "rhetorical_force": "asserts|suggests|questions|assumes|hypothesizes",
      "span": {"start": 0, "end": 50} or null if implicit
    }
  ],
  "edges": [
    {
      "source": "n1",
      "target": "n2",
      "type": "your chosen relationship type",
      "explanation": "brief reason for this connection"
    }
  ],
  "summary": "1-2 sentence overview of the main argument",
  "key_tensions": ["list of gaps, conflicts, or unresolved issues"]
}

Be thorough but precise. Extract all significant claims and their relationships.`

// BuildPrompt returns the user prompt for text. The text is embedded
// verbatim.
func BuildPrompt(text string) string {
	return fmt.Sprintf(userPromptTemplate, text)
}

// BuildPrompts returns the system instruction and the user prompt for text.
func BuildPrompts(text string) (system string, user string) {
	return SystemPrompt, BuildPrompt(text)
}
