// Package parser converts sandbox command strings into Command structs.
// Intentionally dumb: no NLP, just keyword matching.
package parser

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Command is a parsed sandbox command.
type Command struct {
	Verb    string
	Object  string   // spell name for cast, effect id for dispel
	Targets []string // target names, in the order given
	Level   int      // slot level, 0 for the spell's own level
	Count   int      // repetitions for tick
	Point   *mgl64.Vec3
	Err     string // malformed argument, reported instead of running
}

var verbAliases = map[string]string{
	"c":      "cast",
	"throw":  "cast",
	"invoke": "cast",

	"t":     "tick",
	"wait":  "tick",
	"step":  "tick",
	"z":     "tick",
	"pass":  "tick",
	"run":   "tick",
	"l":     "status",
	"look":  "status",
	"st":    "status",
	"stat":  "status",
	"ls":    "spells",
	"list":  "spells",
	"book":  "spells",
	"spell": "spells",

	"cancel": "dispel",
	"end":    "dispel",
	"stop":   "dispel",
	"drop":   "dispel",
}

// Keywords that open a cast argument.
const (
	kwTargets = "targets"
	kwLevel   = "level"
	kwPoint   = "point"
)

var keywords = map[string]string{
	"at":      kwTargets,
	"on":      kwTargets,
	"against": kwTargets,
	"level":   kwLevel,
	"lvl":     kwLevel,
	"using":   kwLevel,
	"to":      kwPoint,
	"toward":  kwPoint,
	"towards": kwPoint,
	"near":    kwPoint,
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true,
}

// Parse converts a raw command string into a Command.
func Parse(input string) Command {
	input = strings.TrimSpace(input)
	if input == "" {
		return Command{}
	}

	words := strings.Fields(strings.ToLower(input))

	// Apply verb aliases.
	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}
	cmd := Command{Verb: words[0]}
	rest := stripArticles(words[1:])

	switch cmd.Verb {
	case "cast":
		parseCast(&cmd, rest)
	case "tick":
		cmd.Count = 1
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil || n < 1 {
				cmd.Err = "tick count must be a positive number, got " + strconv.Quote(rest[0])
				break
			}
			cmd.Count = n
		}
	default:
		cmd.Object = strings.Join(rest, " ")
	}
	return cmd
}

// parseCast splits "cast <spell> [at t1, t2] [level N] [to x,y,z]" into
// its parts. Clauses may come in any order after the spell name.
func parseCast(cmd *Command, words []string) {
	clauses := map[string][]string{}
	var name []string
	current := ""
	for _, w := range words {
		if kw, ok := keywords[w]; ok {
			current = kw
			clauses[current] = clauses[current][:0]
			continue
		}
		if current == "" {
			name = append(name, w)
			continue
		}
		clauses[current] = append(clauses[current], w)
	}
	cmd.Object = strings.Join(name, " ")
	cmd.Targets = splitTargets(clauses[kwTargets])

	if lv, ok := clauses[kwLevel]; ok {
		n, err := parseLevel(strings.Join(lv, ""))
		if err != nil {
			cmd.Err = "level must be a number, got " + strconv.Quote(strings.Join(lv, " "))
			return
		}
		cmd.Level = n
	}
	if pt, ok := clauses[kwPoint]; ok {
		p, err := parsePoint(pt)
		if err != nil {
			cmd.Err = "point must be x,y[,z], got " + strconv.Quote(strings.Join(pt, " "))
			return
		}
		cmd.Point = &p
	}
}

// splitTargets splits "goblin, orc and hill giant" into names.
func splitTargets(words []string) []string {
	var out []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = nil
		}
	}
	for _, w := range words {
		if w == "and" || w == "," {
			flush()
			continue
		}
		parts := strings.Split(w, ",")
		for i, p := range parts {
			if i > 0 {
				flush()
			}
			if p != "" {
				cur = append(cur, p)
			}
		}
	}
	flush()
	return out
}

// parseLevel accepts "4" and ordinals such as "4th".
func parseLevel(s string) (int, error) {
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		s = strings.TrimSuffix(s, suffix)
	}
	return strconv.Atoi(s)
}

// parsePoint reads two or three coordinates separated by commas or spaces.
func parsePoint(words []string) (mgl64.Vec3, error) {
	fields := strings.Fields(strings.ReplaceAll(strings.Join(words, " "), ",", " "))
	if len(fields) < 2 || len(fields) > 3 {
		return mgl64.Vec3{}, strconv.ErrSyntax
	}
	var p mgl64.Vec3
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return mgl64.Vec3{}, err
		}
		p[i] = v
	}
	return p, nil
}

// stripArticles removes articles ("the", "a", "an") from the word list.
func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	return result
}
