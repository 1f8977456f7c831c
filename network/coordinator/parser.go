package coordinator

import (
	"fmt"
	"math"
	"shardman/utils"
	"strings"
)

// NodeCommand is one unit of a broadcast request.
type NodeCommand struct {
	Node int
	SQL  string
}

type parseState uint8

const (
	unitStart parseState = iota
	nodeID
	body
)

// ParseCommands splits a request of the form "ID:SQL;" or "{ID:SQL}" units.
// A braced unit ends at the next '}' so its SQL may contain ';', and a single
// ';' right after the brace is consumed.
func ParseCommands(commands string) ([]NodeCommand, error) {
	res := make([]NodeCommand, 0)
	rest := commands
	for {
		braced := strings.HasPrefix(rest, "{")
		term := byte(';')
		if braced {
			term = '}'
		}
		end := strings.IndexByte(rest, term)
		if end < 0 {
			break
		}
		unit := rest[:end]
		rest = rest[end+1:]
		if braced {
			unit = unit[1:]
			rest = strings.TrimPrefix(rest, ";")
		}
		cmd, ok := parseUnit(unit)
		if !ok {
			return nil, fmt.Errorf("%w: '%s' in '%s'", utils.ErrParse, unit, commands)
		}
		res = append(res, cmd)
	}
	if rest != "" {
		return nil, fmt.Errorf("%w: junk at end of command list: %s", utils.ErrParse, rest)
	}
	return res, nil
}

func parseUnit(unit string) (NodeCommand, bool) {
	cmd := NodeCommand{}
	state := unitStart
	for i := 0; i < len(unit) && state != body; i++ {
		b := unit[i]
		switch state {
		case unitStart:
			if isSpace(b) {
				continue
			}
			if !isDigit(b) {
				return cmd, false
			}
			cmd.Node = int(b - '0')
			state = nodeID
		case nodeID:
			if isDigit(b) {
				cmd.Node = cmd.Node*10 + int(b-'0')
				if cmd.Node > math.MaxInt32 {
					return cmd, false
				}
				continue
			}
			if b != ':' {
				return cmd, false
			}
			cmd.SQL = unit[i+1:]
			state = body
		}
	}
	return cmd, state == body
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// FormatCommands renders commands back into request form, bracing units whose SQL contains ';'.
func FormatCommands(cmds []NodeCommand) string {
	var sb strings.Builder
	for _, cmd := range cmds {
		if strings.Contains(cmd.SQL, ";") {
			fmt.Fprintf(&sb, "{%d:%s};", cmd.Node, cmd.SQL)
		} else {
			fmt.Fprintf(&sb, "%d:%s;", cmd.Node, cmd.SQL)
		}
	}
	return sb.String()
}
