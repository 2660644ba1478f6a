package cpdlc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogHasNoDuplicateKeys(t *testing.T) {
	seen := make(map[catalogKey]bool)
	for _, tmpl := range DefaultCatalog.All() {
		k := catalogKey{Dir: tmpl.Dir, TypeKey: tmpl.TypeKey}
		require.False(t, seen[k], "duplicate catalog entry %s%s", tmpl.Dir, tmpl.TypeKey)
		seen[k] = true
	}
}

func TestCatalogLookupMissReturnsFalse(t *testing.T) {
	_, ok := DefaultCatalog.Lookup(Uplink, TypeKey{Num: 99999})
	require.False(t, ok)
}

func TestDL67SubtypesAreDistinctEntries(t *testing.T) {
	b, ok := DefaultCatalog.Lookup(Downlink, TypeKey{Num: 67, Subtype: 'b'})
	require.True(t, ok)
	c, ok := DefaultCatalog.Lookup(Downlink, TypeKey{Num: 67, Subtype: 'c'})
	require.True(t, ok)
	require.NotEqual(t, b.Name, c.Name)
}

func TestTypeKeyString(t *testing.T) {
	require.Equal(t, "20", TypeKey{Num: 20}.String())
	require.Equal(t, "67b", TypeKey{Num: 67, Subtype: 'b'}.String())
}

func TestNewCatalogPanicsOnDuplicate(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected NewCatalog to panic on a duplicate (dir, type) entry")
	}()
	NewCatalog([]*Template{
		{Dir: Uplink, TypeKey: TypeKey{Num: 1}, Name: "A"},
		{Dir: Uplink, TypeKey: TypeKey{Num: 1}, Name: "B"},
	})
}

func TestRoleTagsAreMutuallyConsistentWithRespCategory(t *testing.T) {
	// WILCO/UNABLE/AFFIRM/NEGATIVE/ERROR/STANDBY/DISREGARD all answer for
	// themselves and carry RespNotRequired; a role-tagged template that
	// itself demanded a reply would leave msglist's status engine with no
	// way to close the loop.
	for _, tmpl := range DefaultCatalog.All() {
		if tmpl.IsAccept || tmpl.IsReject || tmpl.IsStandby || tmpl.IsDisregard {
			require.Equal(t, RespNotRequired, tmpl.RespCat,
				"%s%s is role-tagged but expects a reply", tmpl.Dir, tmpl.TypeKey)
		}
	}
}
