package cpu

import (
	"bufio"
	"errors"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Assembler is a two-pass assembler for the LC-3 instruction set.
// Pass 1 assigns an address to every instruction-bearing line and
// collects the label table; pass 2 encodes with the complete table in
// hand. Assembly is all-or-nothing: any error suppresses the object,
// though independent errors are collected and reported together.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	Label  map[string]uint16 // Label table of the last Assemble call.
	Equate map[string]string // Equates visible to $() expressions.

	predefine map[string]string
}

// Predefined system equates: the memory-mapped device registers and
// the current source line.
var sysEquate = map[string]string{
	"LINENO": "0",
	"KBSR":   "xFE00",
	"KBDR":   "xFE02",
	"DSR":    "xFE04",
	"DDR":    "xFE06",
	"MCR":    "xFFFE",
}

// Predefine defines an equate before assembly, overriding any system
// equate of the same name.
func (asm *Assembler) Predefine(name string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{}
	}
	asm.predefine[name] = value
}

// opcodeOf maps the plain (non-BR, non-alias) mnemonics.
var opcodeOf = map[string]Op{
	"ADD": OP_ADD, "AND": OP_AND, "NOT": OP_NOT,
	"LD": OP_LD, "LDI": OP_LDI, "LDR": OP_LDR, "LEA": OP_LEA,
	"ST": OP_ST, "STI": OP_STI, "STR": OP_STR,
	"JMP": OP_JMP, "JSR": OP_JSR, "JSRR": OP_JSR,
	"RTI": OP_RTI, "TRAP": OP_TRAP,
}

// trapAlias maps service-routine aliases to their trap vectors.
var trapAlias = map[string]uint16{
	"GETC":  TRAP_GETC,
	"OUT":   TRAP_OUT,
	"PUTS":  TRAP_PUTS,
	"IN":    TRAP_IN,
	"PUTSP": TRAP_PUTSP,
	"HALT":  TRAP_HALT,
}

var directives = map[string]bool{
	".FILL": true, ".BLKW": true, ".STRINGZ": true,
}

// canonicalOpcode resolves a mnemonic token, folding case and the BR
// condition suffix. A bare BR branches unconditionally.
func canonicalOpcode(token string) (canon string, n, z, p bool, ok bool) {
	canon = strings.ToUpper(token)

	if _, ok = opcodeOf[canon]; ok {
		return
	}
	if _, ok = trapAlias[canon]; ok {
		return
	}
	if directives[canon] || canon == "RET" || canon == "NOP" {
		ok = true
		return
	}

	if strings.HasPrefix(canon, "BR") && len(canon) <= 5 {
		for _, c := range canon[2:] {
			switch c {
			case 'N':
				n = true
			case 'Z':
				z = true
			case 'P':
				p = true
			default:
				return "", false, false, false, false
			}
		}
		if !n && !z && !p {
			// No suffix means branch in every case.
			n, z, p = true, true, true
		}
		return "BR", n, z, p, true
	}

	return "", false, false, false, false
}

// isMnemonic reports whether the token names an opcode, alias, or
// directive; such names cannot be labels.
func isMnemonic(token string) bool {
	_, _, _, _, ok := canonicalOpcode(token)
	return ok
}

type pendingLabel struct {
	Name   string
	LineNo int
	Line   string
}

// Assemble parses and encodes a single .ORIG/.END section.
func (asm *Assembler) Assemble(input io.Reader) (prog *Program, err error) {
	asm.Label = make(map[string]uint16, 16)
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)

	var errs []error
	fail := func(lineno int, line string, ferr error) {
		errs = append(errs, &ErrSyntax{LineNo: lineno, Line: line, Err: ferr})
	}

	var stmts []*statement
	var pending []pendingLabel

	var addr, origin uint16
	originSet := false
	ended := false
	lineno := 0

	// define binds a label at the given address, rejecting duplicates
	// and names that collide with mnemonics or registers.
	define := func(name string, at uint16, srcLine int, src string) {
		if isMnemonic(name) {
			fail(srcLine, src, ErrLabelIsOpcode(name))
			return
		}
		if _, isReg := registerMap[strings.ToLower(name)]; isReg {
			fail(srcLine, src, ErrLabelIsOpcode(name))
			return
		}
		if _, dup := asm.Label[name]; dup {
			fail(srcLine, src, ErrDuplicateLabel(name))
			return
		}
		asm.Label[name] = at
	}

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		text := scanner.Text()
		lineno++
		asm.Equate["LINENO"] = strconv.Itoa(lineno)

		if asm.Verbose {
			log.Printf("lc3as: %v: %v", lineno, text)
		}

		line := strings.TrimSpace(splitComment(text))
		if line == "" {
			continue
		}

		line, xerr := asm.expandExpressions(line)
		if xerr != nil {
			fail(lineno, line, xerr)
			continue
		}

		tokens := tokenize(line)
		if len(tokens) == 0 {
			continue
		}

		if ended {
			if strings.EqualFold(tokens[0], ".ORIG") {
				fail(lineno, line, ErrOriginDuplicate)
			}
			continue
		}

		// .EQU NAME value
		if strings.EqualFold(tokens[0], ".EQU") {
			if len(tokens) != 3 {
				fail(lineno, line, ErrEquateSyntax)
				continue
			}
			if _, dup := asm.Equate[tokens[1]]; dup {
				fail(lineno, line, ErrEquateDuplicate)
				continue
			}
			asm.Equate[tokens[1]] = tokens[2]
			continue
		}

		if strings.EqualFold(tokens[0], ".ORIG") {
			if originSet {
				fail(lineno, line, ErrOriginDuplicate)
				continue
			}
			if len(tokens) != 2 {
				fail(lineno, line, &ErrOperand{Opcode: ".ORIG", Want: "an address"})
				continue
			}
			value, nerr := parseNumber(tokens[1])
			if nerr != nil || value < 0 {
				fail(lineno, line, ErrParseNumber(tokens[1]))
				continue
			}
			origin = uint16(value)
			addr = origin
			originSet = true
			continue
		}

		if strings.EqualFold(tokens[0], ".END") {
			ended = true
			continue
		}

		if !originSet {
			fail(lineno, line, ErrOriginMissing)
			continue
		}

		// Optional leading label: a colon always marks one, and so
		// does any first token that is not a mnemonic.
		if strings.HasSuffix(tokens[0], ":") || !isMnemonic(tokens[0]) {
			name := strings.TrimSuffix(tokens[0], ":")
			if !isIdentifier(name) {
				fail(lineno, line, ErrParseNumber(tokens[0]))
				continue
			}
			pending = append(pending, pendingLabel{Name: name, LineNo: lineno, Line: line})
			tokens = tokens[1:]
			if len(tokens) == 0 {
				// Floating label; binds to the next instruction.
				continue
			}
		}

		canon, n, z, p, known := canonicalOpcode(tokens[0])
		if !known {
			fail(lineno, line, ErrUnknownOpcode(tokens[0]))
			continue
		}

		operands := make([]Operand, 0, len(tokens)-1)
		bad := false
		for _, token := range tokens[1:] {
			if equate, ok := asm.Equate[token]; ok {
				token = equate
			}
			opnd, perr := parseOperand(token)
			if perr != nil {
				fail(lineno, line, perr)
				bad = true
				break
			}
			operands = append(operands, opnd)
		}
		if bad {
			continue
		}

		st := &statement{
			LineNo:   lineno,
			Line:     line,
			Addr:     addr,
			Opcode:   canon,
			N:        n,
			Z:        z,
			P:        p,
			Operands: operands,
		}

		size, serr := statementSize(st)
		if serr != nil {
			fail(lineno, line, serr)
			continue
		}
		st.Size = size

		for _, pl := range pending {
			define(pl.Name, addr, pl.LineNo, pl.Line)
		}
		pending = pending[:0]

		stmts = append(stmts, st)
		addr += size
	}

	if !originSet {
		errs = append(errs, ErrOriginMissing)
	} else if !ended {
		errs = append(errs, ErrEndMissing)
	} else if len(stmts) == 0 {
		errs = append(errs, ErrEmptyProgram)
	}

	// Labels trailing the last instruction bind to the end address.
	for _, pl := range pending {
		define(pl.Name, addr, pl.LineNo, pl.Line)
	}

	// Pass 2: encode with the complete label table. Skipped when pass
	// 1 failed, since a partial label table only produces noise.
	if len(errs) == 0 {
		prog = &Program{Origin: origin}
		for _, st := range stmts {
			words, eerr := asm.encodeStatement(st)
			if eerr != nil {
				fail(st.LineNo, st.Line, eerr)
				continue
			}
			for range words {
				prog.Lines = append(prog.Lines, st.LineNo)
			}
			prog.Words = append(prog.Words, words...)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return prog, nil
}

// statementSize is the number of words the statement will emit:
// 1 for instructions and .FILL, N for .BLKW, len+1 for .STRINGZ.
func statementSize(st *statement) (size uint16, err error) {
	switch st.Opcode {
	case ".BLKW":
		if len(st.Operands) != 1 || st.Operands[0].Kind != OPERAND_IMMEDIATE ||
			st.Operands[0].Value < 1 {
			err = &ErrOperand{Opcode: ".BLKW", Want: "a positive word count"}
			return
		}
		size = uint16(st.Operands[0].Value)
	case ".STRINGZ":
		if len(st.Operands) != 1 || st.Operands[0].Kind != OPERAND_STRING {
			err = &ErrOperand{Opcode: ".STRINGZ", Want: "a string literal"}
			return
		}
		size = uint16(len(st.Operands[0].Str)) + 1
	default:
		size = 1
	}
	return
}

// offsetOf resolves a branch/load/store operand to a PC-relative
// offset from the address of the next instruction, checked against the
// field width.
func (asm *Assembler) offsetOf(opnd Operand, addr uint16, f field) (offset uint16, err error) {
	switch opnd.Kind {
	case OPERAND_LABEL:
		target, ok := asm.Label[opnd.Label]
		if !ok {
			err = ErrLabelMissing(opnd.Label)
			return
		}
		offset = target - (addr + 1)
	case OPERAND_IMMEDIATE:
		offset = uint16(int16(opnd.Value))
	default:
		err = ErrParseNumber(opnd.Text)
		return
	}

	if ok, min, max := f.Fit(offset); !ok {
		err = &ErrFieldRange{
			What:  opnd.Text,
			Value: int(int16(offset)),
			Min:   min,
			Max:   max,
		}
	}
	return
}

// encodeStatement emits the words for one statement. Instruction
// statements go through Instruction.Encode so the assembler and the
// decoder share a single bit-layout table.
func (asm *Assembler) encodeStatement(st *statement) (words []uint16, err error) {
	ops := st.Operands

	regs := func(count int) bool {
		if len(ops) < count {
			return false
		}
		for n := 0; n < count; n++ {
			if ops[n].Kind != OPERAND_REGISTER {
				return false
			}
		}
		return true
	}

	encode := func(inst Instruction) {
		word, eerr := inst.Encode()
		if eerr != nil {
			var fr *ErrFieldRange
			if len(ops) > 0 && errors.As(eerr, &fr) && fr.What == "" {
				fr.What = ops[len(ops)-1].Text
			}
			err = eerr
			return
		}
		words = append(words, word)
	}

	switch st.Opcode {
	case "ADD", "AND":
		if len(ops) != 3 || !regs(2) {
			err = &ErrOperand{Opcode: st.Opcode, Want: "DR, SR1, SR2 or #imm5"}
			return
		}
		inst := Instruction{Op: opcodeOf[st.Opcode], DR: ops[0].Reg, SR1: ops[1].Reg}
		switch ops[2].Kind {
		case OPERAND_REGISTER:
			inst.SR2 = ops[2].Reg
		case OPERAND_IMMEDIATE:
			inst.Mode = MODE_IMMEDIATE
			inst.Imm = uint16(int16(ops[2].Value))
		default:
			err = &ErrOperand{Opcode: st.Opcode, Want: "DR, SR1, SR2 or #imm5"}
			return
		}
		encode(inst)

	case "NOT":
		if len(ops) != 2 || !regs(2) {
			err = &ErrOperand{Opcode: "NOT", Want: "DR, SR"}
			return
		}
		encode(Instruction{Op: OP_NOT, DR: ops[0].Reg, SR1: ops[1].Reg})

	case "BR":
		if len(ops) != 1 {
			err = &ErrOperand{Opcode: "BR", Want: "a label or offset"}
			return
		}
		offset, oerr := asm.offsetOf(ops[0], st.Addr, fieldOff9)
		if oerr != nil {
			err = oerr
			return
		}
		encode(Instruction{Op: OP_BR, N: st.N, Z: st.Z, P: st.P, Imm: offset})

	case "JSR":
		if len(ops) != 1 {
			err = &ErrOperand{Opcode: "JSR", Want: "a label or offset"}
			return
		}
		offset, oerr := asm.offsetOf(ops[0], st.Addr, fieldOff11)
		if oerr != nil {
			err = oerr
			return
		}
		encode(Instruction{Op: OP_JSR, Mode: MODE_IMMEDIATE, Imm: offset})

	case "JSRR", "JMP":
		if len(ops) != 1 || !regs(1) {
			err = &ErrOperand{Opcode: st.Opcode, Want: "a base register"}
			return
		}
		encode(Instruction{Op: opcodeOf[st.Opcode], SR1: ops[0].Reg})

	case "RET":
		if len(ops) != 0 {
			err = &ErrOperand{Opcode: "RET", Want: "no operands"}
			return
		}
		encode(Instruction{Op: OP_JMP, SR1: REG_R7})

	case "LD", "LDI", "LEA", "ST", "STI":
		if len(ops) != 2 || !regs(1) {
			err = &ErrOperand{Opcode: st.Opcode, Want: "a register and a label"}
			return
		}
		offset, oerr := asm.offsetOf(ops[1], st.Addr, fieldOff9)
		if oerr != nil {
			err = oerr
			return
		}
		encode(Instruction{Op: opcodeOf[st.Opcode], DR: ops[0].Reg, Imm: offset})

	case "LDR", "STR":
		if len(ops) != 3 || !regs(2) || ops[2].Kind != OPERAND_IMMEDIATE {
			err = &ErrOperand{Opcode: st.Opcode, Want: "DR, BaseR, #offset6"}
			return
		}
		encode(Instruction{
			Op:  opcodeOf[st.Opcode],
			DR:  ops[0].Reg,
			SR1: ops[1].Reg,
			Imm: uint16(int16(ops[2].Value)),
		})

	case "RTI":
		if len(ops) != 0 {
			err = &ErrOperand{Opcode: "RTI", Want: "no operands"}
			return
		}
		encode(Instruction{Op: OP_RTI})

	case "TRAP":
		if len(ops) != 1 || ops[0].Kind != OPERAND_IMMEDIATE {
			err = &ErrOperand{Opcode: "TRAP", Want: "a trap vector"}
			return
		}
		encode(Instruction{Op: OP_TRAP, Vect: uint16(ops[0].Value)})

	case "GETC", "OUT", "PUTS", "IN", "PUTSP", "HALT":
		if len(ops) != 0 {
			err = &ErrOperand{Opcode: st.Opcode, Want: "no operands"}
			return
		}
		encode(Instruction{Op: OP_TRAP, Vect: trapAlias[st.Opcode]})

	case "NOP":
		words = append(words, 0)

	case ".FILL":
		if len(ops) != 1 {
			err = &ErrOperand{Opcode: ".FILL", Want: "a value or label"}
			return
		}
		switch ops[0].Kind {
		case OPERAND_IMMEDIATE:
			words = append(words, uint16(int16(ops[0].Value)))
		case OPERAND_LABEL:
			target, ok := asm.Label[ops[0].Label]
			if !ok {
				err = ErrLabelMissing(ops[0].Label)
				return
			}
			words = append(words, target)
		default:
			err = &ErrOperand{Opcode: ".FILL", Want: "a value or label"}
		}

	case ".BLKW":
		words = make([]uint16, st.Size)

	case ".STRINGZ":
		for _, c := range []byte(ops[0].Str) {
			words = append(words, uint16(c))
		}
		words = append(words, 0)

	default:
		err = ErrUnknownOpcode(st.Opcode)
	}

	return
}

var exprRe = regexp.MustCompile(`\$\([^)]*\)`)

// expandExpressions substitutes the result of each compile-time
// $( ... ) expression into the line before tokenization.
func (asm *Assembler) expandExpressions(line string) (out string, err error) {
	if !strings.Contains(line, "$(") {
		return line, nil
	}

	out = exprRe.ReplaceAllStringFunc(line, func(match string) string {
		value, xerr := asm.evalExpression(match[2 : len(match)-1])
		if xerr != nil {
			err = xerr
			return match
		}
		return strconv.Itoa(value)
	})
	return
}

// evalExpression does compile-time $(...) evaluations. Numeric equates
// are bound as variables.
func (asm *Assembler) evalExpression(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}

	env := starlark.StringDict{}
	for key, str := range asm.Equate {
		num, nerr := parseNumber(str)
		if nerr != nil {
			// Non-numeric equates are not visible to expressions.
			continue
		}
		env[key] = starlark.MakeInt(num)
	}

	prog := "rc=" + expr + "\n"
	globals, xerr := starlark.ExecFileOptions(&opts, &thread, "expr", prog, env)
	if xerr != nil {
		return 0, ErrParseExpression(expr)
	}

	rc, ok := globals["rc"]
	if !ok {
		return 0, ErrParseExpression(expr)
	}
	rcInt, ok := rc.(starlark.Int)
	if !ok {
		return 0, ErrParseExpression(expr)
	}
	rc64, ok := rcInt.Int64()
	if !ok || rc64 < -0x8000 || rc64 > 0xFFFF {
		return 0, ErrParseExpression(expr)
	}

	return int(rc64), nil
}
