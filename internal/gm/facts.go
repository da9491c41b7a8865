package gm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jmercer/gamemaster/pkg/entity"
	"github.com/jmercer/gamemaster/pkg/tools"
)

// maxFactLen bounds the derived fact text; longer narrative fragments are
// compacted to the last full sentence that fits.
const maxFactLen = 160

// deriveWitnessFacts propagates knowledge after a turn that changed
// observable world state. Only entities physically co-located with the
// event are eligible: the player plus any character in the current
// location. Each witness records the (compacted) narrative fragment as a
// fact about the entity the action centered on.
func (g *GameMaster) deriveWitnessFacts(executed []tools.Result) {
	for _, result := range executed {
		if !result.StateChanged || result.Err != "" || result.SubjectID == "" || result.Narrative == "" {
			continue
		}

		fact := compactFact(result.Narrative)
		g.ledger.RecordFact(g.state.PlayerID, result.SubjectID, fact)

		for _, witness := range g.state.Surroundings() {
			if witness.Type != entity.TypeCharacter {
				continue
			}
			if g.ledger.RecordFact(witness.UniqueID, result.SubjectID, fact) {
				g.logger.Debug("Witness learned fact",
					"witness", witness.UniqueID, "subject", result.SubjectID)
			}
		}
	}
}

// compactFact trims a narrative fragment to a fact-sized summary, breaking
// at a sentence boundary where possible.
func compactFact(narrative string) string {
	s := strings.TrimSpace(narrative)
	if len(s) <= maxFactLen {
		return s
	}

	// Walk back to a rune boundary so the byte cut never splits a rune.
	end := maxFactLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	cut := s[:end]
	if idx := strings.LastIndexFunc(cut, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}); idx > 0 {
		return strings.TrimSpace(cut[:idx+1])
	}

	// No sentence boundary; break at the last word.
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
