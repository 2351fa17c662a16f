package session

import (
	"sync"
	"testing"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	st := NewStore(Options{})
	a := st.GetOrCreate(1)
	b := st.GetOrCreate(1)
	if a != b {
		t.Fatal("expected the same session on repeat access")
	}
	if a.Mode != Choosing {
		t.Fatalf("mode = %v, want choosing", a.Mode)
	}
	if a.CompletedTopics.Len() != 0 || a.Dialog.Len() != 0 {
		t.Fatal("fresh session must be empty")
	}
	if st.Len() != 1 {
		t.Fatalf("Len = %d, want 1", st.Len())
	}
}

func TestWithSerializesOneUser(t *testing.T) {
	st := NewStore(Options{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.With(7, func(s *Session) {
				s.TotalCount++
			})
		}()
	}
	wg.Wait()
	st.With(7, func(s *Session) {
		if s.TotalCount != 50 {
			t.Fatalf("TotalCount = %d, want 50", s.TotalCount)
		}
	})
}

func TestMaxSessionsEvictsOldest(t *testing.T) {
	var evicted []int64
	st := NewStore(Options{MaxSessions: 2, OnEvict: func(id int64) { evicted = append(evicted, id) }})
	st.GetOrCreate(1)
	st.GetOrCreate(2)
	st.GetOrCreate(1)
	st.GetOrCreate(3)
	if st.Len() != 2 {
		t.Fatalf("Len = %d, want 2", st.Len())
	}
	if len(evicted) != 1 || evicted[0] != 2 {
		t.Fatalf("evicted = %v, want [2]", evicted)
	}
}

func TestInterruptBumpsGeneration(t *testing.T) {
	st := NewStore(Options{})
	st.With(1, func(s *Session) {
		s.Mode = Dialog
		s.Interrupt(Choosing)
		if s.Generation != 1 || s.Mode != Choosing {
			t.Fatalf("unexpected session after interrupt: gen=%d mode=%v", s.Generation, s.Mode)
		}
	})
}

func TestTopicSet(t *testing.T) {
	var set TopicSet
	if !set.Add("greetings") || set.Add("greetings") || set.Add("") {
		t.Fatal("Add should accept each non-empty id once")
	}
	set.Add("cafe")
	if got := set.List(); len(got) != 2 || got[0] != "greetings" || got[1] != "cafe" {
		t.Fatalf("List = %v", got)
	}
	copied := func() Session { return Session{CompletedTopics: set} }
	if !copied().CompletedTopics.Has("cafe") || copied().CompletedTopics.Len() != 2 {
		t.Fatal("a copied session must report its topics")
	}
}

func TestAccuracy(t *testing.T) {
	s := &Session{}
	if s.Accuracy() != 0 {
		t.Fatal("accuracy without answers must be 0")
	}
	s.CorrectCount, s.TotalCount = 1, 4
	if s.Accuracy() != 25 {
		t.Fatalf("Accuracy = %v, want 25", s.Accuracy())
	}
}
