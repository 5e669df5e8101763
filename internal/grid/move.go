package grid

import "fmt"

// Move is one of the five actions the agent may emit per tick.
type Move uint8

const (
	Wait Move = iota
	West
	East
	North
	South
)

// Directions lists the four stepping moves in the fixed tie-break order used by
// move selection: an earlier entry wins when values are equal.
var Directions = [...]Move{West, East, North, South}

type moveOffset struct {
	dx, dy int
}

var moveOffsets = [...]moveOffset{
	Wait:  {0, 0},
	West:  {-1, 0},
	East:  {1, 0},
	North: {0, -1},
	South: {0, 1},
}

// Token is the wire representation of the move.
func (m Move) Token() string {
	switch m {
	case West:
		return "W"
	case East:
		return "E"
	case North:
		return "N"
	case South:
		return "S"
	default:
		return "WAIT"
	}
}

func (m Move) String() string {
	return m.Token()
}

// Apply returns the cell reached by taking the move from c. Bounds are not checked.
func (m Move) Apply(c Cell) Cell {
	if int(m) >= len(moveOffsets) {
		return c
	}
	off := moveOffsets[m]
	return c.Add(off.dx, off.dy)
}

// ParseMove converts a wire token back into a Move.
func ParseMove(token string) (Move, bool) {
	switch token {
	case "W":
		return West, true
	case "E":
		return East, true
	case "N":
		return North, true
	case "S":
		return South, true
	case "WAIT":
		return Wait, true
	default:
		return Wait, false
	}
}

// Neighbors returns the four orthogonal neighbours of c in Directions order,
// including cells that fall outside the board.
func Neighbors(c Cell) [4]Cell {
	var out [4]Cell
	for i, m := range Directions {
		out[i] = m.Apply(c)
	}
	return out
}

// MarshalText encodes the move as its wire token.
func (m Move) MarshalText() ([]byte, error) {
	return []byte(m.Token()), nil
}

// UnmarshalText accepts a wire token.
func (m *Move) UnmarshalText(text []byte) error {
	parsed, ok := ParseMove(string(text))
	if !ok {
		return fmt.Errorf("grid: unknown move %q", text)
	}
	*m = parsed
	return nil
}
