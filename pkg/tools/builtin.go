package tools

import (
	"fmt"
	"strings"

	"github.com/jmercer/gamemaster/pkg/entity"
	"github.com/jmercer/gamemaster/pkg/state"
)

// NewDefaultRegistry returns a registry populated with the canonical game
// actions.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(lookAroundTool())
	r.Register(examineTool())
	r.Register(moveTool())
	r.Register(takeTool())
	r.Register(giveTool())
	r.Register(giveMoneyTool())
	r.Register(talkTool())
	r.Register(useItemTool())
	r.Register(rollDiceTool())
	return r
}

func lookAroundTool() *Tool {
	return &Tool{
		Definition: Definition{
			Name:        "look_around",
			Description: "Describe the player's current location and everything visible in it.",
		},
		Execute: func(tc *Context, args map[string]any) Result {
			loc, err := tc.State.CurrentLocation()
			if err != nil {
				return Failf("the current location %q is not recognized", tc.State.CurrentLocationID)
			}

			var sb strings.Builder
			if desc := loc.Description(); desc != "" {
				sb.WriteString(desc)
			} else {
				sb.WriteString("You are in " + loc.Name() + ".")
			}

			for _, e := range tc.State.Surroundings() {
				// First sighting of an entity leaves a first-glance
				// impression in the player's knowledge.
				if !tc.Ledger.Knows(tc.State.PlayerID, e.UniqueID) {
					tc.Ledger.RecordFact(tc.State.PlayerID, e.UniqueID, firstGlance(e))
				}
				facts := tc.Ledger.FactsAbout(tc.State.PlayerID, e.UniqueID)
				sb.WriteString(" ")
				sb.WriteString(facts[0])
			}

			return Result{Narrative: sb.String()}
		},
	}
}

// firstGlance is the player's initial perception of an entity they have not
// seen before. Names are withheld until the entity is examined.
func firstGlance(e *entity.Entity) string {
	switch e.Type {
	case entity.TypeCharacter:
		return fmt.Sprintf("Someone is here; at a glance you would call them %q.", e.Name())
	case entity.TypeItem:
		return fmt.Sprintf("You notice what looks like a %s.", e.Name())
	default:
		return fmt.Sprintf("You can see %s from here.", e.Name())
	}
}

func examineTool() *Tool {
	return &Tool{
		Definition: Definition{
			Name:        "examine",
			Description: "Examine an object or character in the current location (or carried by the player), revealing more details.",
			Params: []Param{
				{Name: "target", Type: "string", Description: "What the player wants to examine, as they referred to it.", Required: true},
			},
		},
		Execute: func(tc *Context, args map[string]any) Result {
			target, ok := stringArg(args, "target")
			if !ok {
				return Failf("examine requires a target")
			}

			candidates := append(tc.State.Surroundings(), tc.State.Inventory()...)
			subject, err := tc.Resolver.Resolve(target, candidates)
			if err != nil {
				return Failf("nothing here matches %q", target)
			}

			playerID := tc.State.PlayerID
			for _, fact := range revealedFacts(subject) {
				tc.Ledger.RecordFact(playerID, subject.UniqueID, fact)
			}

			known := tc.Ledger.FactsAbout(playerID, subject.UniqueID)
			if len(known) == 0 {
				return Result{Narrative: fmt.Sprintf("You examine the %s and find nothing of interest.", subject.Name())}
			}
			return Result{
				Narrative: fmt.Sprintf("You examine the %s. %s", subject.Name(), strings.Join(known, " ")),
			}
		},
	}
}

// revealedFacts derives the facts a close look at an entity discloses from
// its objective data. The name is phrased as a statement, matching how
// knowledge accumulates from observation rather than omniscience.
func revealedFacts(e *entity.Entity) []string {
	facts := []string{fmt.Sprintf("It looks like what most people would call a %q.", e.Name())}
	if desc := e.Description(); desc != "" {
		facts = append(facts, desc)
	}
	for _, key := range []string{"purpose", "history", "value", "detail"} {
		if v, ok := e.Data[key].(string); ok && v != "" {
			facts = append(facts, v)
		}
	}
	return facts
}

func moveTool() *Tool {
	return &Tool{
		Definition: Definition{
			Name:        "move",
			Description: "Move the player to a different location.",
			Params: []Param{
				{Name: "destination", Type: "string", Description: "Where the player wants to go.", Required: true},
			},
		},
		Execute: func(tc *Context, args map[string]any) Result {
			dest, ok := stringArg(args, "destination")
			if !ok {
				return Failf("move requires a destination")
			}

			target, err := tc.Resolver.Resolve(dest, tc.Store.ListByType(entity.TypeLocation))
			if err != nil {
				return Failf("no place called %q is known", dest)
			}
			if target.UniqueID == tc.State.CurrentLocationID {
				return Result{Narrative: fmt.Sprintf("You are already at the %s.", target.Name())}
			}

			if err := tc.State.MovePlayerTo(target.UniqueID); err != nil {
				return Failf("cannot move to %q: %v", dest, err)
			}
			return Result{
				Narrative:    fmt.Sprintf("You make your way to the %s.", target.Name()),
				StateChanged: true,
				SubjectID:    target.UniqueID,
			}
		},
	}
}

func takeTool() *Tool {
	return &Tool{
		Definition: Definition{
			Name:        "take",
			Description: "Pick up an item from the current location and add it to the player's inventory.",
			Params: []Param{
				{Name: "item", Type: "string", Description: "The item the player wants to take.", Required: true},
			},
		},
		Execute: func(tc *Context, args map[string]any) Result {
			ref, ok := stringArg(args, "item")
			if !ok {
				return Failf("take requires an item")
			}

			item, err := tc.Resolver.Resolve(ref, tc.State.Surroundings())
			if err != nil {
				return Failf("there is no %q here to take", ref)
			}
			if item.Type != entity.TypeItem {
				return Failf("the %s cannot be picked up", item.Name())
			}

			item.SetLocationID(tc.State.PlayerID)
			return Result{
				Narrative:        fmt.Sprintf("You take the %s.", item.Name()),
				StateChanged:     true,
				InventoryChanged: true,
				SubjectID:        item.UniqueID,
			}
		},
	}
}

func giveTool() *Tool {
	return &Tool{
		Definition: Definition{
			Name:        "give",
			Description: "Give an item from the player's inventory to a character in the current location.",
			Params: []Param{
				{Name: "item", Type: "string", Description: "The item to give away.", Required: true},
				{Name: "recipient", Type: "string", Description: "Who should receive the item.", Required: true},
			},
		},
		Execute: func(tc *Context, args map[string]any) Result {
			itemRef, ok := stringArg(args, "item")
			if !ok {
				return Failf("give requires an item")
			}
			recipientRef, ok := stringArg(args, "recipient")
			if !ok {
				return Failf("give requires a recipient")
			}

			item, err := tc.Resolver.Resolve(itemRef, tc.State.Inventory())
			if err != nil {
				return Failf("you are not carrying %q", itemRef)
			}

			var characters []*entity.Entity
			for _, e := range tc.State.Surroundings() {
				if e.Type == entity.TypeCharacter {
					characters = append(characters, e)
				}
			}
			recipient, err := tc.Resolver.Resolve(recipientRef, characters)
			if err != nil {
				return Failf("there is no one called %q here", recipientRef)
			}

			item.SetLocationID(recipient.UniqueID)
			// The recipient learns of the item by receiving it.
			tc.Ledger.RecordFact(recipient.UniqueID, item.UniqueID,
				fmt.Sprintf("Received the %s from %s.", item.Name(), playerName(tc.State)))
			return Result{
				Narrative:        fmt.Sprintf("You hand the %s to %s.", item.Name(), recipient.Name()),
				StateChanged:     true,
				InventoryChanged: true,
				SubjectID:        item.UniqueID,
			}
		},
	}
}

func giveMoneyTool() *Tool {
	return &Tool{
		Definition: Definition{
			Name:        "give_money",
			Description: "Give gold from the player's purse to a character in the current location.",
			Params: []Param{
				{Name: "recipient", Type: "string", Description: "Who should receive the gold.", Required: true},
				{Name: "amount", Type: "integer", Description: "How many gold pieces to give.", Required: true},
			},
		},
		Execute: func(tc *Context, args map[string]any) Result {
			recipientRef, ok := stringArg(args, "recipient")
			if !ok {
				return Failf("give_money requires a recipient")
			}
			amount, ok := intArg(args, "amount")
			if !ok {
				return Failf("give_money requires a whole-number amount")
			}
			if amount <= 0 {
				return Failf("cannot give zero or negative gold")
			}

			player, err := tc.State.PlayerEntity()
			if err != nil {
				return Failf("the player is nowhere to be found")
			}
			if moneyOf(player) < amount {
				return Failf("%s does not have %d gold to give", playerName(tc.State), amount)
			}

			var characters []*entity.Entity
			for _, e := range tc.State.Surroundings() {
				if e.Type == entity.TypeCharacter {
					characters = append(characters, e)
				}
			}
			recipient, err := tc.Resolver.Resolve(recipientRef, characters)
			if err != nil {
				return Failf("there is no one called %q here", recipientRef)
			}

			player.Data["money"] = moneyOf(player) - amount
			recipient.Data["money"] = moneyOf(recipient) + amount
			tc.Ledger.RecordFact(recipient.UniqueID, player.UniqueID,
				fmt.Sprintf("Received %d gold from %s.", amount, playerName(tc.State)))
			return Result{
				Narrative:        fmt.Sprintf("You hand %d gold to %s.", amount, recipient.Name()),
				StateChanged:     true,
				InventoryChanged: true,
				SubjectID:        recipient.UniqueID,
			}
		},
	}
}

// moneyOf reads an entity's gold balance. World files decode numbers as
// float64, so both forms are accepted.
func moneyOf(e *entity.Entity) int {
	switch v := e.Data["money"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func talkTool() *Tool {
	return &Tool{
		Definition: Definition{
			Name:        "talk",
			Description: "Talk to a character in the current location, optionally about a specific subject.",
			Params: []Param{
				{Name: "target", Type: "string", Description: "Who the player wants to talk to.", Required: true},
				{Name: "topic", Type: "string", Description: "The subject of conversation, if any.", Required: false},
			},
		},
		Execute: func(tc *Context, args map[string]any) Result {
			targetRef, ok := stringArg(args, "target")
			if !ok {
				return Failf("talk requires a target")
			}

			var characters []*entity.Entity
			for _, e := range tc.State.Surroundings() {
				if e.Type == entity.TypeCharacter {
					characters = append(characters, e)
				}
			}
			target, err := tc.Resolver.Resolve(targetRef, characters)
			if err != nil {
				return Failf("there is no one called %q here to talk to", targetRef)
			}

			topic, hasTopic := stringArg(args, "topic")
			if !hasTopic {
				return Result{Narrative: fmt.Sprintf("%s turns to you, ready to talk.", target.Name())}
			}

			// What the target truthfully knows about the topic limits what
			// they can say.
			subject, err := tc.Resolver.Resolve(topic, tc.Store.All())
			if err != nil {
				return Result{Narrative: fmt.Sprintf("%s has never heard of %q.", target.Name(), topic)}
			}
			known := tc.Ledger.FactsAbout(target.UniqueID, subject.UniqueID)
			if len(known) == 0 {
				return Result{Narrative: fmt.Sprintf("%s knows nothing about the %s.", target.Name(), subject.Name())}
			}
			return Result{
				Narrative: fmt.Sprintf("%s tells you what they know about the %s: %s",
					target.Name(), subject.Name(), strings.Join(known, " ")),
			}
		},
	}
}

func useItemTool() *Tool {
	return &Tool{
		Definition: Definition{
			Name:        "use_item",
			Description: "Use an item the player is carrying, optionally on a target in the current location.",
			Params: []Param{
				{Name: "item", Type: "string", Description: "The item to use.", Required: true},
				{Name: "target", Type: "string", Description: "What to use the item on, if anything.", Required: false},
			},
		},
		Execute: func(tc *Context, args map[string]any) Result {
			itemRef, ok := stringArg(args, "item")
			if !ok {
				return Failf("use_item requires an item")
			}

			item, err := tc.Resolver.Resolve(itemRef, tc.State.Inventory())
			if err != nil {
				return Failf("you are not carrying %q", itemRef)
			}

			targetRef, hasTarget := stringArg(args, "target")
			if !hasTarget {
				if effect, ok := item.Data["use_effect"].(string); ok && effect != "" {
					return Result{Narrative: effect, StateChanged: true, SubjectID: item.UniqueID}
				}
				return Result{Narrative: fmt.Sprintf("You fiddle with the %s, but nothing happens.", item.Name())}
			}

			target, err := tc.Resolver.Resolve(targetRef, tc.State.Surroundings())
			if err != nil {
				return Failf("there is no %q here", targetRef)
			}

			// An item that unlocks its target changes the world; anything
			// else is flavor.
			if unlocks, ok := item.Data["unlocks"].(string); ok && unlocks == target.UniqueID {
				target.Data["locked"] = false
				return Result{
					Narrative:    fmt.Sprintf("The %s turns with a click; the %s is now unlocked.", item.Name(), target.Name()),
					StateChanged: true,
					SubjectID:    target.UniqueID,
				}
			}
			return Result{Narrative: fmt.Sprintf("Using the %s on the %s accomplishes nothing.", item.Name(), target.Name())}
		},
	}
}

func playerName(gs *state.GameState) string {
	if player, err := gs.PlayerEntity(); err == nil {
		return player.Name()
	}
	return "the player"
}
