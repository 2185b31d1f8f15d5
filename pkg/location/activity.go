package location

import "strings"

// Activity labels what the user is doing around a location.
type Activity string

const (
	ActivityDebugging   Activity = "debugging"
	ActivityRefactoring Activity = "refactoring"
	ActivityReviewing   Activity = "reviewing"
	ActivityWriting     Activity = "writing"
	ActivityReading     Activity = "reading"
	ActivityUnknown     Activity = "unknown"
)

// InferenceSource records which precedence level produced an inference.
type InferenceSource string

const (
	SourceExplicit InferenceSource = "explicit"
	SourceKeyword  InferenceSource = "keyword"
	SourceTool     InferenceSource = "tool"
	SourceDefault  InferenceSource = "default"
)

// Inference is the result of activity inference.
type Inference struct {
	Activity   Activity        `json:"activity"`
	Source     InferenceSource `json:"source"`
	Confidence float64         `json:"confidence"`
}

// keywordRow is one row of the ordered keyword table. Earlier rows win.
type keywordRow struct {
	activity   Activity
	keywords   []string
	confidence float64
}

// keywordTable is checked top to bottom; the first row with any matching
// keyword wins regardless of tool hints.
var keywordTable = []keywordRow{
	{ActivityDebugging, []string{"debug", "fix", "bug", "issue", "error", "trace"}, 0.9},
	{ActivityRefactoring, []string{"refactor", "clean", "reorganize", "restructure"}, 0.9},
	{ActivityReviewing, []string{"review", "understand", "check", "examine", "audit"}, 0.8},
	{ActivityWriting, []string{"implement", "add", "create", "write", "build"}, 0.7},
	{ActivityReading, []string{"read", "look", "see", "view", "inspect"}, 0.6},
}

// toolTable maps tool names onto weak activity hints.
var toolTable = map[string]Activity{
	"Read":  ActivityReading,
	"Grep":  ActivityReading,
	"Glob":  ActivityReading,
	"Edit":  ActivityWriting,
	"Write": ActivityWriting,
}

const toolConfidence = 0.5

// InferActivity infers what the user is doing, with strict precedence:
// an explicit activity wins outright, then the first matching keyword row,
// then the tool hint, then the unknown default.
//
// Keyword matching is lowercased substring match against the context text.
func InferActivity(contextText, toolName string, explicit Activity) Inference {
	if explicit != "" {
		return Inference{Activity: explicit, Source: SourceExplicit, Confidence: 1.0}
	}

	lower := strings.ToLower(contextText)
	if lower != "" {
		for _, row := range keywordTable {
			for _, kw := range row.keywords {
				if strings.Contains(lower, kw) {
					return Inference{Activity: row.activity, Source: SourceKeyword, Confidence: row.confidence}
				}
			}
		}
	}

	if a, ok := toolTable[toolName]; ok {
		return Inference{Activity: a, Source: SourceTool, Confidence: toolConfidence}
	}

	return Inference{Activity: ActivityUnknown, Source: SourceDefault, Confidence: 0.0}
}
