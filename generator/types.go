package generator

import (
	"context"

	"auto_blog_writer/search"
)

// Settings tunes the stage processors.
type Settings struct {
	// WritingStyle is the house style guide fed to outline and draft prompts.
	WritingStyle string
	SearchDepth  search.Depth
	MaxResults   int

	ResearchTemperature float64
	WritingTemperature  float64
	EditingTemperature  float64
	ClarifyTemperature  float64
}

// DefaultSettings mirrors the values the pipeline ships with.
func DefaultSettings() Settings {
	return Settings{
		WritingStyle:        DefaultWritingStyle,
		SearchDepth:         search.DepthAdvanced,
		MaxResults:          10,
		ResearchTemperature: 0.3,
		WritingTemperature:  0.7,
		EditingTemperature:  0.5,
		ClarifyTemperature:  0.7,
	}
}

// DefaultWritingStyle 默认写作风格，可通过配置覆盖。
const DefaultWritingStyle = `**Voice**
1. Turn expertise into stories.
2. Earn trust with data, connect with emotion.
3. Share failures honestly.
4. Always end with practical action items.

**Structure**
- Hook: open with a vivid scene; the first three lines decide everything.
- Body: personal experience plus expert knowledge, with concrete numbers.
- Close: lessons learned, a checklist or practical tips, encouragement.

**Tone**
- Conversational questions to the reader.
- Candid language over stiff jargon.
- Prefer narrative prose to long lists.
- Sparing use of emoji.`

// KeywordResult pairs a keyword with the search response for it.
type KeywordResult struct {
	Keyword  string
	Response search.Response
}

// NotesSaver persists research notes next to the article output.
type NotesSaver interface {
	SaveNotes(ctx context.Context, research string, sources []string, topic string) (string, error)
}
