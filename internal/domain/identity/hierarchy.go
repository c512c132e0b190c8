package identity

import "context"

// ManagerLookup resolves a user id to their direct manager id ("" when
// the user has no manager).
type ManagerLookup func(ctx context.Context, userID string) (string, error)

// WouldCreateCycle walks the manager chain upward from the proposed
// manager. Assigning managerID to userID is cyclic when the walk reaches
// userID again. The chain is a forest, so the walk terminates at a root
// unless a cycle already exists; maxChainDepth bounds the walk anyway.
const maxChainDepth = 256

func WouldCreateCycle(ctx context.Context, userID, managerID string, lookup ManagerLookup) (bool, error) {
	if managerID == "" {
		return false, nil
	}
	if managerID == userID {
		return true, nil
	}
	seen := map[string]bool{userID: true}
	current := managerID
	for depth := 0; current != "" && depth < maxChainDepth; depth++ {
		if seen[current] {
			return true, nil
		}
		seen[current] = true
		next, err := lookup(ctx, current)
		if err != nil {
			return false, err
		}
		current = next
	}
	return false, nil
}
