package session

import (
	"sync"
	"testing"

	"github.com/shodh-ai/voxagent/pkg/persona"
	"github.com/shodh-ai/voxagent/pkg/tool"
)

func TestGetOrCreateIdempotent(t *testing.T) {
	store := NewStore()

	first, created := store.GetOrCreate("room-1")
	if !created {
		t.Error("first GetOrCreate() should report creation")
	}
	second, created := store.GetOrCreate("room-1")
	if created {
		t.Error("second GetOrCreate() should not report creation")
	}
	if first != second {
		t.Error("GetOrCreate() should return the same instance for a room")
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1", store.Count())
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	store := NewStore()

	const goroutines = 32
	states := make([]*State, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			states[i], _ = store.GetOrCreate("room-1")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if states[i] != states[0] {
			t.Fatal("concurrent GetOrCreate() produced distinct states for one room")
		}
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1", store.Count())
	}
}

func TestRemove(t *testing.T) {
	store := NewStore()
	store.GetOrCreate("room-1")

	if !store.Remove("room-1") {
		t.Error("Remove() of existing session should return true")
	}
	if store.Remove("room-1") {
		t.Error("Remove() of absent session should return false")
	}
	if _, err := store.Get("room-1"); err == nil {
		t.Error("Get() after Remove() should fail")
	}
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
}

func TestGetNotFound(t *testing.T) {
	store := NewStore()
	if _, err := store.Get("ghost"); err == nil {
		t.Error("Get() on empty store should return an error")
	}
}

func TestApplyContextAtomic(t *testing.T) {
	store := NewStore()
	state, _ := store.GetOrCreate("room-1")

	speaking := persona.Config{Identity: "speaking-teacher-default"}
	writing := persona.Config{Identity: "writing-teacher-default"}
	speakingTools := []tool.Descriptor{{Name: "startTimer"}, {Name: "stopTimer"}}
	writingTools := []tool.Descriptor{{Name: "saveCanvas"}}

	state.ApplyContext(speaking, "speakingpage", "task-1", speakingTools)

	// Hammer swaps while a reader snapshots the context. A torn read
	// would pair the speaking persona with writing tools or vice versa.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				state.ApplyContext(writing, "writingpage", "task-2", writingTools)
			} else {
				state.ApplyContext(speaking, "speakingpage", "task-1", speakingTools)
			}
		}
	}()

	for i := 0; i < 500; i++ {
		snap := state.Context()
		switch snap.Persona.Identity {
		case "speaking-teacher-default":
			if snap.PageType != "speakingpage" || len(snap.Tools) != 2 || snap.Tools[0].Name != "startTimer" {
				t.Fatalf("torn context: persona %q with page %q and tools %v",
					snap.Persona.Identity, snap.PageType, snap.Tools)
			}
		case "writing-teacher-default":
			if snap.PageType != "writingpage" || len(snap.Tools) != 1 || snap.Tools[0].Name != "saveCanvas" {
				t.Fatalf("torn context: persona %q with page %q and tools %v",
					snap.Persona.Identity, snap.PageType, snap.Tools)
			}
		default:
			t.Fatalf("unexpected persona %q", snap.Persona.Identity)
		}
	}
	<-done
}

func TestToolsReturnsCopy(t *testing.T) {
	state := newState("room-1")
	state.SetTools([]tool.Descriptor{{Name: "startTimer"}})

	tools := state.Tools()
	tools[0].Name = "mutated"

	if state.Tools()[0].Name != "startTimer" {
		t.Error("Tools() must return a copy, not the backing slice")
	}
}

func TestHistoryBounded(t *testing.T) {
	state := newState("room-1")

	for i := 0; i < maxHistory+50; i++ {
		state.AppendTurn("user", "turn")
	}

	history := state.History()
	if len(history) != maxHistory {
		t.Errorf("history length = %d, want %d", len(history), maxHistory)
	}
}

func TestAppendTurnOrder(t *testing.T) {
	state := newState("room-1")
	state.AppendTurn("user", "hello")
	state.AppendTurn("agent", "hi there")

	history := state.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Speaker != "user" || history[1].Speaker != "agent" {
		t.Errorf("history order wrong: %v", history)
	}
	if history[0].At.IsZero() {
		t.Error("turns should be timestamped")
	}
}
