package persist

import "context"

// Store persists save-game snapshots under caller-chosen ids.
// Implementations must keep Save atomic: a failed write never leaves a
// corrupt slot behind.
type Store interface {
	Save(ctx context.Context, id string, save *SaveGame) error
	Load(ctx context.Context, id string) (*SaveGame, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}
