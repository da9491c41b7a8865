// Package knowledge tracks what each character knows about every other
// entity in the world. Facts are accumulated belief, not currently-true
// state: a fact may go stale, but it is never retracted during play.
package knowledge

import "sync"

// pairKey identifies one (knower, subject) relationship.
type pairKey struct {
	Knower  string
	Subject string
}

// Ledger maps (knower, subject) pairs to an ordered list of fact strings.
// Absence of an entry means the knower has nothing recorded about the
// subject. Facts are append-only within a session.
type Ledger struct {
	mu    sync.RWMutex
	facts map[pairKey][]string
}

// NewLedger creates an empty knowledge ledger.
func NewLedger() *Ledger {
	return &Ledger{
		facts: make(map[pairKey][]string),
	}
}

// RecordFact appends a fact to what knower knows about subject. Recording
// the same fact text twice for the same pair is a no-op. Returns true if
// the fact was new.
func (l *Ledger) RecordFact(knowerID, subjectID, fact string) bool {
	if fact == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := pairKey{Knower: knowerID, Subject: subjectID}
	for _, existing := range l.facts[key] {
		if existing == fact {
			return false
		}
	}
	l.facts[key] = append(l.facts[key], fact)
	return true
}

// FactsAbout returns everything knower has recorded about subject, in the
// order the facts were learned. Returns an empty slice when nothing is
// known.
func (l *Ledger) FactsAbout(knowerID, subjectID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	facts := l.facts[pairKey{Knower: knowerID, Subject: subjectID}]
	out := make([]string, len(facts))
	copy(out, facts)
	return out
}

// Knows reports whether knower has at least one fact recorded about subject.
func (l *Ledger) Knows(knowerID, subjectID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.facts[pairKey{Knower: knowerID, Subject: subjectID}]) > 0
}

// SubjectsKnownBy returns the IDs of every subject the knower has facts
// about. Order is unspecified.
func (l *Ledger) SubjectsKnownBy(knowerID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []string
	for key := range l.facts {
		if key.Knower == knowerID && len(l.facts[key]) > 0 {
			out = append(out, key.Subject)
		}
	}
	return out
}
