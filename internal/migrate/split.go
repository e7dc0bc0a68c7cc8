package migrate

import "strings"

// SplitStatements splits SQL source into individual executable statements.
//
// It is a pure function with no I/O so the edge cases can be tested
// exhaustively. The scanner walks the source byte by byte:
//
//   - A doubled-dollar marker ($$) toggles "inside dollar block". Function
//     and trigger bodies are dollar-quoted, and semicolons inside them are
//     part of the body, not statement terminators.
//   - Outside a dollar block, "--" starts a single-line comment; text through
//     end-of-line is discarded. Inside a block the marker is body text and
//     kept verbatim.
//   - A ";" terminates a statement only outside a dollar block.
//   - Whitespace-only statements are dropped. A trailing statement with no
//     terminator is still included.
//
// Known simplification: comment markers inside string literals are treated
// as comments. Migration files avoid "--" inside literals.
func SplitStatements(src string) []string {
	var (
		stmts    []string
		cur      strings.Builder
		inDollar bool
	)

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(src); i++ {
		c := src[i]

		// $$ toggles the dollar block in both directions.
		if c == '$' && i+1 < len(src) && src[i+1] == '$' {
			inDollar = !inDollar
			cur.WriteString("$$")
			i++
			continue
		}

		if !inDollar {
			// Strip -- comments through end of line.
			if c == '-' && i+1 < len(src) && src[i+1] == '-' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
				if i < len(src) {
					cur.WriteByte('\n')
				}
				continue
			}
			if c == ';' {
				flush()
				continue
			}
		}

		cur.WriteByte(c)
	}

	flush()
	return stmts
}
