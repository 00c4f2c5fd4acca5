// Package markov builds word-level Markov chains from corpus text and generates sentences from them.
package markov

import (
	"math/rand/v2"
	"strings"
)

const (
	// Order is the number of preceding words a transition depends on.
	Order = 2

	// boundary marks the start or end of a line in a state; Fields never yields empty tokens.
	boundary = ""

	maxWords = 500
)

type state [Order]string

type successors struct {
	counts map[string]int
	total  int
}

// Chain is an immutable order-2 word chain. It is safe for concurrent generation once built.
type Chain struct {
	transitions map[state]*successors
	lines       int
}

// Build feeds every non-empty line of text, lowercased, into a new chain.
func Build(text string) *Chain {
	chain := &Chain{transitions: make(map[state]*successors)}
	for _, line := range strings.Split(text, "\n") {
		chain.feed(strings.Fields(strings.ToLower(line)))
	}
	return chain
}

func (c *Chain) feed(tokens []string) {
	if len(tokens) == 0 {
		return
	}
	c.lines++

	current := state{boundary, boundary}
	for _, token := range append(tokens, boundary) {
		next, ok := c.transitions[current]
		if !ok {
			next = &successors{counts: make(map[string]int)}
			c.transitions[current] = next
		}
		next.counts[token]++
		next.total++

		current = state{current[1], token}
	}
}

// Lines returns how many non-empty lines were fed into the chain.
func (c *Chain) Lines() int {
	return c.lines
}

// Empty reports whether the chain has no transitions to generate from.
func (c *Chain) Empty() bool {
	return c == nil || len(c.transitions) == 0
}

// Generate produces a sentence from the start of a line.
func (c *Chain) Generate() string {
	if c.Empty() {
		return ""
	}
	return c.walk(state{boundary, boundary}, nil)
}

// GenerateFrom produces a sentence beginning with token. It returns an empty string when token
// never starts a line of the corpus.
func (c *Chain) GenerateFrom(token string) string {
	if c.Empty() || token == boundary {
		return ""
	}

	start := state{boundary, token}
	if _, ok := c.transitions[start]; !ok {
		return ""
	}
	return c.walk(start, []string{token})
}

func (c *Chain) walk(current state, words []string) string {
	for len(words) < maxWords {
		next, ok := c.transitions[current]
		if !ok {
			break
		}

		token := next.pick()
		if token == boundary {
			break
		}
		words = append(words, token)
		current = state{current[1], token}
	}
	return strings.Join(words, " ")
}

func (s *successors) pick() string {
	target := rand.IntN(s.total)
	for token, count := range s.counts {
		if target < count {
			return token
		}
		target -= count
	}
	return boundary
}
