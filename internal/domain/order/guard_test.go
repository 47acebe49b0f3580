package order

import (
	"runtime"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestVisitGuard_SerializesSameVisit(t *testing.T) {
	var g visitGuard
	visitID := uuid.New()

	const workers = 8
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := g.lock(visitID)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}

func TestVisitGuard_EvictsIdleEntries(t *testing.T) {
	var g visitGuard

	a, b := uuid.New(), uuid.New()
	unlockA := g.lock(a)
	unlockB := g.lock(b)
	unlockA()
	unlockB()

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.locks) != 0 {
		t.Errorf("expected empty lock table after release, got %d entries", len(g.locks))
	}
}

func TestVisitGuard_ContendedEntrySurvivesUntilLastHolder(t *testing.T) {
	var g visitGuard
	visitID := uuid.New()

	unlock := g.lock(visitID)

	acquired := make(chan func())
	go func() {
		acquired <- g.lock(visitID)
	}()

	// Wait for the second holder to register before releasing.
	for {
		g.mu.Lock()
		refs := 0
		if e, ok := g.locks[visitID]; ok {
			refs = e.refs
		}
		g.mu.Unlock()
		if refs == 2 {
			break
		}
		runtime.Gosched()
	}

	unlock()
	second := <-acquired
	second()

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.locks) != 0 {
		t.Errorf("expected empty lock table, got %d entries", len(g.locks))
	}
}
