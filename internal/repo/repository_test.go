package repo_test

import (
	"testing"

	"github.com/hamed0406/slotwatch/internal/repo"
	"github.com/hamed0406/slotwatch/internal/repo/memory"
	pg "github.com/hamed0406/slotwatch/internal/repo/postgres"
	"github.com/hamed0406/slotwatch/internal/repo/sqlite"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.AlertLog = memory.New(10)
	var _ repo.AlertLog = (*pg.Store)(nil)
	var _ repo.AlertLog = (*sqlite.Store)(nil)
}
