package cpdlc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendSegmentRejectsUnknownType(t *testing.T) {
	m := AllocMessage(PacketCPDLC)
	_, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 99999})
	require.ErrorIs(t, err, ErrUnknownSegment)
}

func TestAppendSegmentEnforcesMaxSegments(t *testing.T) {
	m := AllocMessage(PacketCPDLC)
	for i := 0; i < MaxSegments; i++ {
		_, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 3}) // ROGER, no args
		require.NoError(t, err)
	}
	_, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 3})
	require.ErrorIs(t, err, ErrTooManySegments)
}

func TestSetArgRejectsKindMismatch(t *testing.T) {
	m := AllocMessage(PacketCPDLC)
	segIdx, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 20}) // CLIMB TO: Altitude
	require.NoError(t, err)

	err = m.SetArg(segIdx, 0, Arg{Kind: ArgSpeed, Speed: Speed{Value: 250}})
	require.ErrorIs(t, err, ErrArgMismatch)
}

func TestSetArgRejectsOutOfRangeIndices(t *testing.T) {
	m := AllocMessage(PacketCPDLC)
	segIdx, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 20})
	require.NoError(t, err)

	require.ErrorIs(t, m.SetArg(segIdx+1, 0, Arg{Kind: ArgAltitude}), ErrArgMismatch)
	require.ErrorIs(t, m.SetArg(segIdx, 5, Arg{Kind: ArgAltitude}), ErrArgMismatch)
}

func TestCloneIsIndependent(t *testing.T) {
	m := AllocMessage(PacketCPDLC)
	m.SetFrom("N12345")
	m.AddOption("PLAIN", "")
	segIdx, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 20})
	require.NoError(t, err)
	require.NoError(t, m.SetArg(segIdx, 0, Arg{Kind: ArgAltitude, Altitude: Altitude{FL: true, Feet: 35000}}))

	clone := m.Clone()
	clone.SetFrom("N99999")
	clone.Options[0].Name = "VER"
	clone.Segments[0].Args[0].Altitude.Feet = 10000

	require.Equal(t, "N12345", m.From)
	require.Equal(t, "PLAIN", m.Options[0].Name)
	require.Equal(t, 35000, m.Segments[0].Args[0].Altitude.Feet)
}

func TestHasOption(t *testing.T) {
	m := AllocMessage(PacketCPDLC)
	require.False(t, m.HasOption("PLAIN"))
	m.AddOption("PLAIN", "")
	require.True(t, m.HasOption("PLAIN"))
	require.False(t, m.HasOption("VER"))
}
