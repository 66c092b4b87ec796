package world

import (
	"regexp"
	"strings"

	"github.com/kmh4500/ainspace/agent"
)

var mentionPattern = regexp.MustCompile(`@(\w+(?:\s+\w+)*)`)

// ExtractMentions returns every @-mention in content. A mention runs
// greedily over following words, so "@Patrol Bot report" yields
// "Patrol Bot report".
func ExtractMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	mentions := make([]string, 0, len(matches))
	for _, m := range matches {
		mentions = append(mentions, m[1])
	}
	return mentions
}

// MatchMentions returns the agents, in registry order, named by any mention.
// A mention matches a name when either contains the other ignoring case.
// Because mentions swallow the words after them, each leading run of words
// of a mention is tried too: "@Explorer hi" still reaches "Explorer Bot".
func MatchMentions(agents []agent.Agent, mentions []string) []agent.Agent {
	var candidates []string
	for _, m := range mentions {
		candidates = append(candidates, wordPrefixes(strings.ToLower(m))...)
	}

	var matched []agent.Agent
	for _, a := range agents {
		name := strings.ToLower(a.Name())
		if name == "" {
			continue
		}
		for _, c := range candidates {
			if strings.Contains(name, c) || strings.Contains(c, name) {
				matched = append(matched, a)
				break
			}
		}
	}
	return matched
}

// wordPrefixes lists "a b c", "a b", "a".
func wordPrefixes(mention string) []string {
	words := strings.Fields(mention)
	out := make([]string, 0, len(words))
	for n := len(words); n > 0; n-- {
		out = append(out, strings.Join(words[:n], " "))
	}
	return out
}
