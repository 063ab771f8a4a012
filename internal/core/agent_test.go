package core

import "testing"

func TestParseAgent(t *testing.T) {
	tests := []struct {
		in     string
		want   Agent
		wantOK bool
	}{
		{"optimist", AgentOptimist, true},
		{" Realist ", AgentRealist, true},
		{"PLANNER", AgentPlanner, true},
		{"system", AgentSystem, true},
		{"pessimist", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseAgent(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseAgent(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAgent_IsSpecialist(t *testing.T) {
	for _, a := range Specialists {
		if !a.IsSpecialist() {
			t.Errorf("%s should be a specialist", a)
		}
	}
	if AgentSystem.IsSpecialist() {
		t.Error("system is not a specialist")
	}
}

func TestPersonaFor(t *testing.T) {
	p, ok := PersonaFor(AgentRealist)
	if !ok || p.Label != "Realist Agent" || p.Tone != "in a factual tone" {
		t.Fatalf("PersonaFor(realist) = %+v, %v", p, ok)
	}
	if _, ok := PersonaFor("nobody"); ok {
		t.Fatal("unknown agent should have no persona")
	}
}

func TestParseTopic(t *testing.T) {
	tests := map[string]Topic{
		"":           "",
		"career":     TopicCareer,
		" Technical": TopicTechnical,
		"EDUCATION":  TopicEducation,
		"general":    TopicGeneral,
		"cooking":    TopicGeneral,
	}
	for in, want := range tests {
		if got := ParseTopic(in); got != want {
			t.Errorf("ParseTopic(%q) = %q, want %q", in, got, want)
		}
	}
	if len(ValidTopics()) != 4 {
		t.Fatalf("expected four topics")
	}
}
