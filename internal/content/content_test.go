package content

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if c.Len() != 7 {
		t.Fatalf("topics = %d, want 7", c.Len())
	}
	if len(c.Exercises) != 15 {
		t.Fatalf("exercises = %d, want 15", len(c.Exercises))
	}
	g, ok := c.Topic("greetings")
	if !ok || len(g.Phrases) != 6 {
		t.Fatalf("greetings topic = %+v, ok=%v", g, ok)
	}
	if _, ok := g.Phrase(6); ok {
		t.Fatal("phrase index 6 must be out of range")
	}
	if p, _ := g.Phrase(0); p.Target != "Привіт!" {
		t.Fatalf("first phrase = %q", p.Target)
	}
	first := c.Exercises[0]
	if first.Native != "Привет, как дела?" || first.Target != "Привіт, як справи?" {
		t.Fatalf("first exercise = %+v", first)
	}
	if c.Title("nope") != "nope" {
		t.Fatal("unknown topic title should fall back to the id")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no topics":    "exercises: [{native: a, target: b}]",
		"no exercises": "topics: [{id: a, title: A, phrases: [{target: x}]}]",
		"underscore":   "topics: [{id: a_b, title: A, phrases: [{target: x}]}]\nexercises: [{native: a, target: b}]",
		"duplicate":    "topics: [{id: a, phrases: [{target: x}]}, {id: a, phrases: [{target: y}]}]\nexercises: [{native: a, target: b}]",
		"empty topic":  "topics: [{id: a, title: A}]\nexercises: [{native: a, target: b}]",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); !errors.Is(err, ErrInvalidCatalog) {
			t.Fatalf("%s: err = %v, want ErrInvalidCatalog", name, err)
		}
	}
}

func TestSelectorAvoidsImmediateRepeat(t *testing.T) {
	exercises := []Exercise{{Native: "a", Target: "a"}, {Native: "b", Target: "b"}, {Native: "c", Target: "c"}}
	s := NewSelector(exercises, true)
	rng := rand.New(rand.NewPCG(1, 2))
	prev := -1
	for i := 0; i < 200; i++ {
		idx, ex := s.Pick(rng, prev)
		if idx == prev {
			t.Fatalf("picked %d twice in a row", idx)
		}
		if exercises[idx] != ex {
			t.Fatalf("index %d does not match exercise %+v", idx, ex)
		}
		prev = idx
	}
}

func TestSelectorCoversTable(t *testing.T) {
	exercises := []Exercise{{Native: "a"}, {Native: "b"}, {Native: "c"}, {Native: "d"}}
	s := NewSelector(exercises, false)
	rng := rand.New(rand.NewPCG(7, 7))
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		idx, _ := s.Pick(rng, 0)
		seen[idx] = true
	}
	if len(seen) != len(exercises) {
		t.Fatalf("seen %d distinct exercises, want %d", len(seen), len(exercises))
	}
}

func TestSelectorSingleEntry(t *testing.T) {
	s := NewSelector([]Exercise{{Native: "only"}}, true)
	rng := rand.New(rand.NewPCG(3, 4))
	if idx, _ := s.Pick(rng, 0); idx != 0 {
		t.Fatalf("idx = %d, want 0", idx)
	}
	if idx, _ := NewSelector(nil, true).Pick(rng, -1); idx != -1 {
		t.Fatalf("empty selector idx = %d, want -1", idx)
	}
}
