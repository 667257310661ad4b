// Package gcode holds the toolpath instruction model, the motion encoder that
// does all extrusion bookkeeping, and the text formatter for the resulting
// instruction stream.
package gcode

// Kind discriminates Instruction.
type Kind int

const (
	Travel Kind = iota
	Print
	Comment
	Directive
)

func (k Kind) String() string {
	switch k {
	case Travel:
		return "travel"
	case Print:
		return "print"
	case Comment:
		return "comment"
	case Directive:
		return "directive"
	default:
		return "unknown"
	}
}

// Instruction is one line of the toolpath. X, Y and Feed are set for Travel
// and Print, E only for Print, Text for Comment and Directive. Feed is in
// mm/min.
type Instruction struct {
	Kind Kind
	X, Y float64
	E    float64
	Feed float64
	Text string
}

// NewComment returns a Comment instruction.
func NewComment(text string) Instruction {
	return Instruction{Kind: Comment, Text: text}
}

// NewDirective returns a raw machine directive such as "M0".
func NewDirective(code string) Instruction {
	return Instruction{Kind: Directive, Text: code}
}

// Program is an append-only instruction sequence.
type Program struct {
	list []Instruction
}

func (p *Program) Add(in ...Instruction) {
	p.list = append(p.list, in...)
}

func (p *Program) Comment(text string) {
	p.Add(NewComment(text))
}

func (p *Program) Directive(code string) {
	p.Add(NewDirective(code))
}

func (p *Program) Len() int { return len(p.list) }

// Instructions returns a copy of the sequence.
func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.list))
	copy(out, p.list)
	return out
}

// Count returns how many instructions of kind k the program holds.
func (p *Program) Count(k Kind) int {
	n := 0
	for _, in := range p.list {
		if in.Kind == k {
			n++
		}
	}
	return n
}
