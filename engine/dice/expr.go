package dice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/spellcore/types"
)

var (
	// ErrInvalidExpression is returned for malformed dice expressions.
	ErrInvalidExpression = errors.New("invalid dice expression")
	// ErrInvalidDiceSpec is returned when a term has a non-positive count or sides.
	ErrInvalidDiceSpec = errors.New("dice count and sides must be positive")
)

// Term is one additive piece of a dice expression: either Count dice of
// Sides faces, or a constant when Sides is zero.
type Term struct {
	Count int
	Sides int
	Const int
	Neg   bool
}

// Expr is a parsed dice expression such as "8d6+1d6" or "1d4+1".
type Expr struct {
	Terms []Term
}

// Parse parses a dice expression. An empty string parses to an empty
// expression that always totals zero.
func Parse(s string) (Expr, error) {
	s = strings.ReplaceAll(strings.ToLower(s), " ", "")
	if s == "" {
		return Expr{}, nil
	}

	var expr Expr
	neg := false
	start := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != '+' && s[i] != '-' {
			continue
		}
		tok := s[start:i]
		if tok == "" {
			// Leading sign is allowed once; "1d6++2" is not.
			if i != 0 {
				return Expr{}, fmt.Errorf("%w: %q", ErrInvalidExpression, s)
			}
		} else {
			term, err := parseTerm(tok)
			if err != nil {
				return Expr{}, fmt.Errorf("%w: %q", err, s)
			}
			term.Neg = neg
			expr.Terms = append(expr.Terms, term)
		}
		if i < len(s) {
			neg = s[i] == '-'
		}
		start = i + 1
	}
	return expr, nil
}

func parseTerm(tok string) (Term, error) {
	d := strings.IndexByte(tok, 'd')
	if d < 0 {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return Term{}, ErrInvalidExpression
		}
		return Term{Const: n}, nil
	}

	count := 1
	if d > 0 {
		n, err := strconv.Atoi(tok[:d])
		if err != nil {
			return Term{}, ErrInvalidExpression
		}
		count = n
	}
	sides, err := strconv.Atoi(tok[d+1:])
	if err != nil {
		return Term{}, ErrInvalidExpression
	}
	if count <= 0 || sides <= 0 {
		return Term{}, ErrInvalidDiceSpec
	}
	return Term{Count: count, Sides: sides}, nil
}

// MustParse parses s and panics on error. For literals in tests and tables.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// String renders the expression in canonical form.
func (e Expr) String() string {
	var b strings.Builder
	for i, t := range e.Terms {
		switch {
		case t.Neg:
			b.WriteByte('-')
		case i > 0:
			b.WriteByte('+')
		}
		if t.Sides == 0 {
			b.WriteString(strconv.Itoa(t.Const))
		} else {
			fmt.Fprintf(&b, "%dd%d", t.Count, t.Sides)
		}
	}
	return b.String()
}

// Multiply returns the expression with every dice count and constant
// multiplied by n. A 1d6 term at n=2 becomes 2d6. n <= 0 yields an empty
// expression.
func (e Expr) Multiply(n int) Expr {
	if n <= 0 {
		return Expr{}
	}
	out := Expr{Terms: make([]Term, len(e.Terms))}
	for i, t := range e.Terms {
		t.Count *= n
		t.Const *= n
		out.Terms[i] = t
	}
	return out
}

// Concat appends o's terms after e's.
func (e Expr) Concat(o Expr) Expr {
	terms := make([]Term, 0, len(e.Terms)+len(o.Terms))
	terms = append(terms, e.Terms...)
	terms = append(terms, o.Terms...)
	return Expr{Terms: terms}
}

// Roll rolls every dice term through fn and returns the total and the
// individual die results in term order.
func (e Expr) Roll(fn types.DiceFunc) (int, []int) {
	total := 0
	var rolls []int
	for _, t := range e.Terms {
		v := t.Const
		if t.Sides > 0 {
			v = 0
			for _, r := range fn(t.Sides, t.Count) {
				v += r
				rolls = append(rolls, r)
			}
		}
		if t.Neg {
			v = -v
		}
		total += v
	}
	return total, rolls
}

// Scale multiplies the scaling expression by n and concatenates it onto
// base with "+". It is the string form used by upcasting.
func Scale(base, perLevel string, n int) (string, error) {
	b, err := Parse(base)
	if err != nil {
		return "", err
	}
	if n <= 0 || perLevel == "" {
		return b.String(), nil
	}
	p, err := Parse(perLevel)
	if err != nil {
		return "", err
	}
	return b.Concat(p.Multiply(n)).String(), nil
}
