package cpu

import (
	"strconv"
	"strings"
)

// OperandKind tags the looser pre-resolution operand forms the parser
// produces. Label references only become addresses in pass 2.
type OperandKind int

const (
	OPERAND_REGISTER  = OperandKind(0)
	OPERAND_IMMEDIATE = OperandKind(1)
	OPERAND_LABEL     = OperandKind(2)
	OPERAND_STRING    = OperandKind(3)
)

// Operand is one parsed operand of an instruction line.
type Operand struct {
	Kind  OperandKind
	Reg   Register
	Value int    // immediate, as written (sign preserved)
	Label string // label reference
	Str   string // unquoted string literal
	Text  string // source spelling, for diagnostics
}

// statement is one instruction-bearing source line, tagged with the
// address assigned in pass 1.
type statement struct {
	LineNo   int
	Line     string
	Addr     uint16
	Opcode   string // canonical upper-case mnemonic or directive
	N, Z, P  bool   // BR condition suffix
	Operands []Operand
	Size     uint16 // emitted words
}

// registerMap resolves register operand spellings.
var registerMap = map[string]Register{
	"r0": REG_R0, "r1": REG_R1, "r2": REG_R2, "r3": REG_R3,
	"r4": REG_R4, "r5": REG_R5, "r6": REG_R6, "r7": REG_R7,
}

// splitComment removes a trailing ; comment, honoring string and
// character literals.
func splitComment(text string) string {
	quote := rune(0)
	for n, c := range text {
		switch {
		case quote != 0:
			if c == quote && (n == 0 || text[n-1] != '\\') {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ';':
			return text[:n]
		}
	}
	return text
}

// tokenize splits a comment-free line on whitespace and commas,
// keeping quoted strings and character literals as single tokens.
func tokenize(line string) (tokens []string) {
	var token strings.Builder
	quote := rune(0)
	escaped := false

	flush := func() {
		if token.Len() > 0 {
			tokens = append(tokens, token.String())
			token.Reset()
		}
	}

	for _, c := range line {
		switch {
		case quote != 0:
			token.WriteRune(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			token.WriteRune(c)
		case c == ' ' || c == '\t' || c == ',':
			flush()
		default:
			token.WriteRune(c)
		}
	}
	flush()

	return
}

// unquoteString resolves the escapes of a "..." literal.
func unquoteString(token string) (out string, err error) {
	if len(token) < 2 || token[0] != '"' || token[len(token)-1] != '"' {
		err = ErrParseNumber(token)
		return
	}

	body := token[1 : len(token)-1]
	var b strings.Builder
	escaped := false
	for _, c := range body {
		if !escaped {
			if c == '\\' {
				escaped = true
			} else {
				b.WriteRune(c)
			}
			continue
		}
		escaped = false
		switch c {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case 'e':
			b.WriteByte(0x1B)
		case '\\', '"', '\'':
			b.WriteRune(c)
		default:
			err = ErrParseNumber(token)
			return
		}
	}

	out = b.String()
	return
}

// parseNumber accepts the literal forms #dec, xHEX, 0xHEX, bare
// decimal, and 'c' character literals. The result must fit a 16-bit
// word as either a signed or an unsigned value.
func parseNumber(token string) (value int, err error) {
	text := token

	if strings.HasPrefix(text, "'") {
		str, qerr := unquoteCharacter(text)
		if qerr != nil {
			return 0, qerr
		}
		return int(str), nil
	}

	text = strings.TrimPrefix(text, "#")

	var v64 int64
	var perr error
	switch {
	case strings.HasPrefix(text, "x") || strings.HasPrefix(text, "X"):
		v64, perr = strconv.ParseInt(text[1:], 16, 32)
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		v64, perr = strconv.ParseInt(text[2:], 16, 32)
	default:
		v64, perr = strconv.ParseInt(text, 10, 32)
	}
	if perr != nil {
		return 0, ErrParseNumber(token)
	}

	if v64 < -0x8000 || v64 > 0xFFFF {
		return 0, ErrParseNumber(token)
	}

	return int(v64), nil
}

// unquoteCharacter resolves a 'c' literal to its byte value.
func unquoteCharacter(token string) (value byte, err error) {
	if len(token) < 3 || token[0] != '\'' || token[len(token)-1] != '\'' {
		return 0, ErrParseNumber(token)
	}

	body := token[1 : len(token)-1]
	if len(body) == 1 && body[0] != '\\' {
		return body[0], nil
	}

	str, qerr := unquoteString("\"" + body + "\"")
	if qerr != nil || len(str) != 1 {
		return 0, ErrParseNumber(token)
	}
	return str[0], nil
}

// isIdentifier reports whether the token is a well-formed label name.
func isIdentifier(token string) bool {
	if len(token) == 0 {
		return false
	}
	for n, c := range token {
		ok := c == '_' ||
			(c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(n > 0 && c >= '0' && c <= '9')
		if !ok {
			return false
		}
	}
	return true
}

// parseOperand classifies a single operand token. Registers win over
// labels, and anything that looks numeric is an immediate.
func parseOperand(token string) (opnd Operand, err error) {
	opnd.Text = token

	if reg, ok := registerMap[strings.ToLower(token)]; ok {
		opnd.Kind = OPERAND_REGISTER
		opnd.Reg = reg
		return
	}

	if strings.HasPrefix(token, "\"") {
		opnd.Kind = OPERAND_STRING
		opnd.Str, err = unquoteString(token)
		return
	}

	first := token[0]
	numeric := first == '#' || first == '\'' || first == '-' ||
		(first >= '0' && first <= '9')
	if !numeric && (first == 'x' || first == 'X') {
		_, herr := strconv.ParseInt(token[1:], 16, 32)
		numeric = herr == nil
	}
	if numeric {
		opnd.Kind = OPERAND_IMMEDIATE
		opnd.Value, err = parseNumber(token)
		return
	}

	if !isIdentifier(token) {
		err = ErrParseNumber(token)
		return
	}

	opnd.Kind = OPERAND_LABEL
	opnd.Label = token
	return
}
