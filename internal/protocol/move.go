package protocol

import (
	"encoding/json"
	"strings"

	"github.com/overfly42/found-gems/internal/grid"
)

// Highlight colours understood by the game viewer.
const (
	ColorGem       = "#FFFF00"
	ColorOpponent  = "#FF0000"
	ColorTarget    = "#00FF00"
	ColorCandidate = "#FF0000"
)

// Highlight marks one cell in the viewer. It encodes as [x, y, colour].
type Highlight struct {
	Cell  grid.Cell
	Color string
}

func (h Highlight) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{h.Cell.X, h.Cell.Y, h.Color})
}

type highlightEnvelope struct {
	Highlight []Highlight `json:"highlight"`
}

// EncodeMove renders the output line for a tick without the trailing newline.
// The highlight payload is appended only when highlights are supplied.
func EncodeMove(move grid.Move, highlights []Highlight) (string, error) {
	if highlights == nil {
		return move.Token(), nil
	}
	data, err := json.Marshal(highlightEnvelope{Highlight: highlights})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(data) + 6)
	b.WriteString(move.Token())
	b.WriteByte(' ')
	b.Write(data)
	return b.String(), nil
}
