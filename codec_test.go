package cpdlc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  *Message
	}{
		{
			name: "climb clearance",
			msg: func() *Message {
				m := AllocMessage(PacketCPDLC)
				m.SetFrom("KZOA")
				m.SetTo("N12345")
				m.SetMIN(7)
				segIdx, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 20})
				require.NoError(t, err)
				require.NoError(t, m.SetArg(segIdx, 0, Arg{Kind: ArgAltitude, Altitude: Altitude{FL: true, Feet: 35000}}))
				return m
			}(),
		},
		{
			name: "downlink reply with MRN",
			msg: func() *Message {
				m := AllocMessage(PacketCPDLC)
				m.SetFrom("N12345")
				m.SetTo("KZOA")
				m.SetMIN(8)
				m.SetMRN(7)
				_, err := m.AppendSegment(DefaultCatalog, Downlink, keyWilco)
				require.NoError(t, err)
				return m
			}(),
		},
		{
			name: "proceed direct to a place-bearing-distance fix",
			msg: func() *Message {
				m := AllocMessage(PacketCPDLC)
				m.SetFrom("KZOA")
				m.SetTo("N12345")
				m.SetMIN(9)
				segIdx, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 44})
				require.NoError(t, err)
				require.NoError(t, m.SetArg(segIdx, 0, Arg{
					Kind: ArgPosition,
					Position: Position{
						Kind: PosPBD,
						PBD:  PBD{Fix: "OAK", BearingT: 123, DistNM: 45.6},
					},
				}))
				return m
			}(),
		},
		{
			name: "logon",
			msg: func() *Message {
				m := AllocMessage(PacketCPDLC)
				m.SetFrom("N12345")
				m.SetTo("KZOA")
				m.SetLogon("opaque-credential-blob")
				return m
			}(),
		},
		{
			name: "logoff",
			msg: func() *Message {
				m := AllocMessage(PacketCPDLC)
				m.SetFrom("N12345")
				m.SetLogoff()
				return m
			}(),
		},
		{
			name: "options and multiple segments",
			msg: func() *Message {
				m := AllocMessage(PacketCPDLC)
				m.SetFrom("KZOA")
				m.SetTo("N12345")
				m.SetMIN(10)
				m.AddOption("PLAIN", "")
				m.AddOption("VER", "1")
				segIdx, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 20})
				require.NoError(t, err)
				require.NoError(t, m.SetArg(segIdx, 0, Arg{Kind: ArgAltitude, Altitude: Altitude{FL: true, Feet: 35000}}))
				segIdx, err = m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 74})
				require.NoError(t, err)
				require.NoError(t, m.SetArg(segIdx, 0, Arg{Kind: ArgICAOName, ICAOName: ICAOName{Facility: "KZOA", Function: "CTR"}}))
				require.NoError(t, m.SetArg(segIdx, 1, Arg{Kind: ArgFrequency, Frequency: 128.35}))
				return m
			}(),
		},
		{
			name: "next data authority with no function suffix",
			msg: func() *Message {
				m := AllocMessage(PacketCPDLC)
				m.SetFrom("KZOA")
				m.SetTo("N12345")
				m.SetMIN(11)
				segIdx, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 160})
				require.NoError(t, err)
				require.NoError(t, m.SetArg(segIdx, 0, Arg{Kind: ArgICAOName, ICAOName: ICAOName{Facility: "KZOA"}}))
				return m
			}(),
		},
		{
			name: "contact with no function suffix ahead of a frequency",
			msg: func() *Message {
				m := AllocMessage(PacketCPDLC)
				m.SetFrom("KZOA")
				m.SetTo("N12345")
				m.SetMIN(12)
				segIdx, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 74})
				require.NoError(t, err)
				require.NoError(t, m.SetArg(segIdx, 0, Arg{Kind: ArgICAOName, ICAOName: ICAOName{Facility: "KZOA"}}))
				require.NoError(t, m.SetArg(segIdx, 1, Arg{Kind: ArgFrequency, Frequency: 128.35}))
				return m
			}(),
		},
		{
			name: "pdc with no freetext suffix",
			msg: func() *Message {
				m := AllocMessage(PacketCPDLC)
				m.SetFrom("KZOA")
				m.SetTo("N12345")
				m.SetMIN(13)
				segIdx, err := m.AppendSegment(DefaultCatalog, Uplink, TypeKey{Num: 182})
				require.NoError(t, err)
				require.NoError(t, m.SetArg(segIdx, 0, Arg{Kind: ArgPDC, PDC: PDC{Clearance: "CLRNC1A"}}))
				return m
			}(),
		},
		{
			name: "ping",
			msg:  AllocMessage(PacketPing),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := Encode(tc.msg)
			require.NoError(t, err)

			got, n, err := Decode(buf, DefaultCatalog)
			require.NoError(t, err)
			require.Equal(t, len(buf), n)

			if diff := cmp.Diff(tc.msg, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeIncompleteFrame(t *testing.T) {
	_, n, err := Decode([]byte("PKT=CPDLC/FROM=N12345"), DefaultCatalog)
	require.ErrorIs(t, err, ErrIncomplete)
	require.Equal(t, 0, n)
}

func TestDecodeUnknownSegment(t *testing.T) {
	_, _, err := Decode([]byte("PKT=CPDLC/DATA=UM9999\n"), DefaultCatalog)
	require.ErrorIs(t, err, ErrUnknownSegment)
}

func TestDecodeTooManySegments(t *testing.T) {
	var toks []byte
	toks = append(toks, []byte("PKT=CPDLC")...)
	for i := 0; i < MaxSegments+1; i++ {
		toks = append(toks, []byte("/DATA=UM3")...) // ROGER: no arguments
	}
	toks = append(toks, '\n')
	_, _, err := Decode(toks, DefaultCatalog)
	require.ErrorIs(t, err, ErrTooManySegments)
}

func TestDecodeMalformedFrame(t *testing.T) {
	_, _, err := Decode([]byte("garbage\n"), DefaultCatalog)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeDuplicateMIN(t *testing.T) {
	_, _, err := Decode([]byte("PKT=CPDLC/MIN=1/MIN=2\n"), DefaultCatalog)
	require.ErrorIs(t, err, ErrMalformed)
	require.True(t, errors.Is(err, ErrMalformed))
}
