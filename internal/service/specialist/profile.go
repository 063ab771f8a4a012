// Package specialist implements the optimist, realist and planner personas.
// All three share one adapter; what differs between them is table data in
// their Profile.
package specialist

import (
	"fmt"
	"strings"

	"github.com/triad-ai/triad/internal/core"
)

// KeywordBonus adds Weight to the confidence when any of Words appears in
// the user input.
type KeywordBonus struct {
	Words  []string
	Weight float64
}

// Profile is the per-persona configuration of an Adapter.
type Profile struct {
	Agent core.Agent
	// Base is the starting confidence per topic; unknown topics start at 0.
	Base    map[core.Topic]float64
	Bonuses []KeywordBonus
	// ContextBonus applies when retrieval returned something.
	ContextBonus float64
	// Queries holds a search template per topic with one %s for the input.
	// Topics without a template search for the raw input.
	Queries map[core.Topic]string
	// Template names the prompt template under prompts/.
	Template           string
	FallbackText       string
	FallbackConfidence float64
	// CiteSources appends the retrieved context to the response.
	CiteSources bool
}

// Query returns the retrieval query for a topic.
func (p Profile) Query(topic core.Topic, input string) string {
	tmpl, ok := p.Queries[topic]
	if !ok {
		return input
	}
	return fmt.Sprintf(tmpl, input)
}

// Score computes the confidence of a response. It depends only on its
// arguments, never decreases when a keyword is added, and is clamped to [0,1].
func Score(p Profile, topic core.Topic, input, webContext string) float64 {
	score := p.Base[topic]
	lower := strings.ToLower(input)
	for _, b := range p.Bonuses {
		if containsAny(lower, b.Words) {
			score += b.Weight
		}
	}
	if strings.TrimSpace(webContext) != "" {
		score += p.ContextBonus
	}
	return core.ClampConfidence(score)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// OptimistProfile returns the optimist persona.
func OptimistProfile() Profile {
	return Profile{
		Agent: core.AgentOptimist,
		Base: map[core.Topic]float64{
			core.TopicCareer:    0.3,
			core.TopicEducation: 0.3,
			core.TopicTechnical: 0.2,
			core.TopicGeneral:   0.2,
		},
		Bonuses: []KeywordBonus{
			{Weight: 0.4, Words: []string{
				"want", "hope", "dream", "future", "better", "improve", "learn",
				"grow", "opportunity", "excited", "interested", "passion", "goal",
			}},
			{Weight: 0.3, Words: []string{
				"success", "achieve", "potential", "possible", "can", "will",
				"progress", "advance", "develop", "master", "excel",
			}},
		},
		Queries: map[core.Topic]string{
			core.TopicCareer:    "success stories %s positive outcomes career growth",
			core.TopicEducation: "benefits advantages %s student success stories",
			core.TopicTechnical: "exciting developments %s future potential innovations",
		},
		Template: "optimist",
		FallbackText: "Looking at this optimistically, both internships and final year projects offer amazing opportunities! " +
			"Would you like to explore the exciting potential of each path?",
		FallbackConfidence: 0.5,
	}
}

// RealistProfile returns the realist persona.
func RealistProfile() Profile {
	return Profile{
		Agent: core.AgentRealist,
		Base: map[core.Topic]float64{
			core.TopicCareer:    0.3,
			core.TopicEducation: 0.3,
			core.TopicTechnical: 0.2,
			core.TopicGeneral:   0.2,
		},
		Bonuses: []KeywordBonus{
			{Weight: 0.4, Words: []string{
				"how", "what steps", "practical", "realistic", "actually", "really",
				"implementation", "specific", "detail", "consider", "challenge",
			}},
		},
		ContextBonus: 0.3,
		Queries: map[core.Topic]string{
			core.TopicCareer:    "latest statistics %s job market data practical considerations",
			core.TopicEducation: "practical advice %s student experiences requirements costs",
			core.TopicTechnical: "real-world usage %s industry adoption challenges comparison",
		},
		Template:           "realist",
		FallbackText:       "I'm having trouble processing that right now.",
		FallbackConfidence: 0.1,
		CiteSources:        true,
	}
}

// PlannerProfile returns the planner persona.
func PlannerProfile() Profile {
	return Profile{
		Agent: core.AgentPlanner,
		Base: map[core.Topic]float64{
			core.TopicCareer:    0.3,
			core.TopicEducation: 0.3,
			core.TopicTechnical: 0.4,
			core.TopicGeneral:   0.2,
		},
		Bonuses: []KeywordBonus{
			{Weight: 0.3, Words: []string{
				"how", "compare", "difference", "best", "recommend", "explain",
				"analyze", "steps", "guide", "learn", "implement",
			}},
		},
		ContextBonus: 0.3,
		Queries: map[core.Topic]string{
			core.TopicCareer:    "career planning methodology %s expert advice steps timeline",
			core.TopicEducation: "learning path methodology %s expert guidance timeline",
			core.TopicTechnical: "technical implementation guide %s best practices timeline",
			core.TopicGeneral:   "step by step guide %s methodology timeline",
		},
		Template:           "planner",
		FallbackText:       "I need more information to provide expert guidance. Could you provide more details?",
		FallbackConfidence: 0.3,
	}
}

// Profiles returns the three personas in slot order.
func Profiles() []Profile {
	return []Profile{OptimistProfile(), RealistProfile(), PlannerProfile()}
}
