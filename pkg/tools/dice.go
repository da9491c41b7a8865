package tools

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// diceNotation matches standard dice notation: NdS with an optional +/-
// modifier, e.g. "d20", "2d6", "3d8+2".
var diceNotation = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

const (
	maxDiceCount = 100
	maxDieSides  = 1000
)

func rollDiceTool() *Tool {
	return &Tool{
		Definition: Definition{
			Name:        "roll_dice",
			Description: "Roll dice in standard notation (e.g. d20, 2d6+1) when an action's outcome should be left to chance.",
			Params: []Param{
				{Name: "notation", Type: "string", Description: "Dice notation such as d20 or 2d6+1.", Required: true},
			},
		},
		Execute: func(tc *Context, args map[string]any) Result {
			notation, ok := stringArg(args, "notation")
			if !ok {
				return Failf("roll_dice requires dice notation")
			}

			total, rolls, err := rollNotation(notation)
			if err != nil {
				return Failf("cannot roll %q: %v", notation, err)
			}

			detail := ""
			if len(rolls) > 1 {
				parts := make([]string, len(rolls))
				for i, r := range rolls {
					parts[i] = strconv.Itoa(r)
				}
				detail = fmt.Sprintf(" (%s)", strings.Join(parts, ", "))
			}
			return Result{Narrative: fmt.Sprintf("The dice clatter: %s comes up %d%s.", notation, total, detail)}
		},
	}
}

func rollNotation(notation string) (int, []int, error) {
	m := diceNotation.FindStringSubmatch(strings.ToLower(strings.TrimSpace(notation)))
	if m == nil {
		return 0, nil, fmt.Errorf("not valid dice notation")
	}

	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	modifier := 0
	if m[3] != "" {
		modifier, _ = strconv.Atoi(m[3])
	}

	if count < 1 || count > maxDiceCount {
		return 0, nil, fmt.Errorf("dice count must be between 1 and %d", maxDiceCount)
	}
	if sides < 2 || sides > maxDieSides {
		return 0, nil, fmt.Errorf("die sides must be between 2 and %d", maxDieSides)
	}

	rolls := make([]int, count)
	total := modifier
	for i := range rolls {
		rolls[i] = rand.Intn(sides) + 1
		total += rolls[i]
	}
	return total, rolls, nil
}
