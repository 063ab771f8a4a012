package core

import "strings"

// Topic is the classification bucket that controls specialist order.
type Topic string

const (
	TopicCareer    Topic = "career"
	TopicEducation Topic = "education"
	TopicTechnical Topic = "technical"
	TopicGeneral   Topic = "general"
)

// ValidTopics returns all topics in declaration order.
func ValidTopics() []Topic {
	return []Topic{TopicCareer, TopicEducation, TopicTechnical, TopicGeneral}
}

// IsValid reports whether t is one of the known topics.
func (t Topic) IsValid() bool {
	switch t {
	case TopicCareer, TopicEducation, TopicTechnical, TopicGeneral:
		return true
	default:
		return false
	}
}

// String returns the topic name.
func (t Topic) String() string {
	return string(t)
}

// ParseTopic normalizes a topic name. Empty input stays unset; anything
// unrecognised becomes TopicGeneral.
func ParseTopic(s string) Topic {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	t := Topic(s)
	if !t.IsValid() {
		return TopicGeneral
	}
	return t
}
