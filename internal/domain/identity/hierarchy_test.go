package identity

import (
	"context"
	"testing"
)

func chainLookup(chain map[string]string) ManagerLookup {
	return func(_ context.Context, userID string) (string, error) {
		return chain[userID], nil
	}
}

func TestWouldCreateCycleSelfManager(t *testing.T) {
	cyclic, err := WouldCreateCycle(context.Background(), "u1", "u1", chainLookup(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cyclic {
		t.Fatal("expected self-assignment to be cyclic")
	}
}

func TestWouldCreateCycleIndirect(t *testing.T) {
	// u3 reports to u2 reports to u1; assigning u3 as u1's manager loops
	chain := map[string]string{"u2": "u1", "u3": "u2"}
	cyclic, err := WouldCreateCycle(context.Background(), "u1", "u3", chainLookup(chain))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cyclic {
		t.Fatal("expected indirect cycle to be detected")
	}
}

func TestWouldCreateCycleValidAssignment(t *testing.T) {
	chain := map[string]string{"u2": "u1"}
	cyclic, err := WouldCreateCycle(context.Background(), "u3", "u2", chainLookup(chain))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cyclic {
		t.Fatal("did not expect cycle for a valid assignment")
	}
}

func TestWouldCreateCycleNoManager(t *testing.T) {
	cyclic, err := WouldCreateCycle(context.Background(), "u1", "", chainLookup(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cyclic {
		t.Fatal("clearing the manager can never be cyclic")
	}
}
