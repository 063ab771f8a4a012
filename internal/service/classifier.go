package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/triad-ai/triad/internal/core"
	"github.com/triad-ai/triad/internal/logging"
)

// indicatorGroup maps a topic to the substrings that select it.
type indicatorGroup struct {
	topic    core.Topic
	keywords []string
}

// topicIndicators is evaluated in order; the first matching group wins.
var topicIndicators = []indicatorGroup{
	{topic: core.TopicCareer, keywords: []string{"internship", "job"}},
	{topic: core.TopicEducation, keywords: []string{"study", "course"}},
	{topic: core.TopicTechnical, keywords: []string{"programming", "software", "technology", "code"}},
}

// defaultTopic is used when no indicator matches.
const defaultTopic = core.TopicCareer

// careerBiasWords pre-seed the career topic before routing starts.
var careerBiasWords = []string{"internship", "project", "job", "career", "work"}

// KeywordClassifier assigns topics by case-insensitive substring matching.
// It is deterministic and has no side effects.
type KeywordClassifier struct {
	groups []indicatorGroup
}

// NewKeywordClassifier creates a classifier with the default indicator table.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{groups: topicIndicators}
}

// Classify returns the first topic whose indicators appear in text, or
// career when nothing matches.
func (c *KeywordClassifier) Classify(_ context.Context, text string) core.Topic {
	lower := strings.ToLower(text)
	for _, g := range c.groups {
		if containsAny(lower, g.keywords) {
			return g.topic
		}
	}
	return defaultTopic
}

// careerBias reports whether input should be pre-seeded as a career topic.
func careerBias(input string) bool {
	return containsAny(strings.ToLower(input), careerBiasWords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

const classifyPrompt = `Classify the user's message into exactly one topic.

Topics:
- career: jobs, internships, professional growth
- education: studying, courses, academic choices
- technical: programming, software, technology

Answer with the topic name only.

Message: %s`

// DefaultClassifierTimeout bounds one classification call.
const DefaultClassifierTimeout = 15 * time.Second

// ModelClassifier asks a text generator for the topic and falls back to a
// keyword classifier when the answer is unusable.
type ModelClassifier struct {
	generator core.Generator
	fallback  core.Classifier
	timeout   time.Duration
	logger    *logging.Logger
}

// NewModelClassifier creates a model-backed classifier.
func NewModelClassifier(gen core.Generator, fallback core.Classifier, timeout time.Duration, logger *logging.Logger) *ModelClassifier {
	if fallback == nil {
		fallback = NewKeywordClassifier()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	return &ModelClassifier{
		generator: gen,
		fallback:  fallback,
		timeout:   timeout,
		logger:    logger.WithComponent("classifier"),
	}
}

// Classify implements core.Classifier.
func (c *ModelClassifier) Classify(ctx context.Context, text string) core.Topic {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	answer, err := c.generator.Generate(ctx, fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		c.logger.Warn("topic generation failed, using keywords", "error", err)
		return c.fallback.Classify(ctx, text)
	}

	topic, ok := parseTopicAnswer(answer)
	if !ok {
		c.logger.Debug("unusable topic answer, using keywords", "answer", answer)
		return c.fallback.Classify(ctx, text)
	}
	return topic
}

// parseTopicAnswer extracts a classifiable topic from a model answer. Only
// career, education and technical are accepted.
func parseTopicAnswer(answer string) (core.Topic, bool) {
	word := strings.FieldsFunc(strings.ToLower(answer), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(word) == 0 {
		return "", false
	}
	switch t := core.Topic(word[0]); t {
	case core.TopicCareer, core.TopicEducation, core.TopicTechnical:
		return t, true
	default:
		return "", false
	}
}
