package cpdlc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFreetextEscapeRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"CLIMB WHEN READY",
		"REQUEST DIRECT OAK/123/45.0",
		"100% READY, OVER.",
		"line\nwith\tcontrol\x01chars",
		"slash/and/percent%mix",
	}
	for _, s := range cases {
		a := Arg{Kind: ArgFreetext, Freetext: s}
		text, err := a.EncodeText()
		require.NoError(t, err)

		got, err := DecodeArgText(ArgFreetext, text)
		require.NoError(t, err)
		require.Equal(t, s, got.Freetext)
	}
}

func TestEscapePercentKeepsWireDelimitersSafe(t *testing.T) {
	// A freetext argument must never itself produce an unescaped '/' that
	// could be mistaken for a wire token boundary by the frame tokenizer
	// (spec 4.2). Spaces are left unescaped.
	text, err := (Arg{Kind: ArgFreetext, Freetext: "A/B DATA=FAKE"}).EncodeText()
	require.NoError(t, err)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '/' {
			t.Fatalf("escaped freetext %q still contains a bare '/'", text)
		}
	}
}

func TestUnescapePercentRejectsTruncated(t *testing.T) {
	_, err := unescapePercent("abc%4")
	require.Error(t, err)
}

func TestAltitudeEncodeDecode(t *testing.T) {
	cases := []Altitude{
		{FL: true, Feet: 35000},
		{FL: false, Feet: 4500},
		{FL: true, Metric: true, Feet: 10600},
	}
	for _, alt := range cases {
		text, err := (Arg{Kind: ArgAltitude, Altitude: alt}).EncodeText()
		require.NoError(t, err)
		got, err := DecodeArgText(ArgAltitude, text)
		require.NoError(t, err)
		require.Equal(t, alt, got.Altitude, "round trip of %q", text)
	}
}

func TestPositionPBDEncodeDecode(t *testing.T) {
	p := Position{Kind: PosPBD, PBD: PBD{Fix: "OAK", BearingT: 123, DistNM: 45.6}}
	text, err := (Arg{Kind: ArgPosition, Position: p}).EncodeText()
	require.NoError(t, err)
	require.Equal(t, "OAK/123/45.6", text)

	got, err := DecodeArgText(ArgPosition, text)
	require.NoError(t, err)
	require.Equal(t, p, got.Position)
}

func TestSquawkValidation(t *testing.T) {
	_, err := DecodeArgText(ArgSquawk, "1234")
	require.NoError(t, err)

	_, err = DecodeArgText(ArgSquawk, "89AB")
	require.ErrorIs(t, err, ErrBadArgValue)

	_, err = DecodeArgText(ArgSquawk, "12")
	require.ErrorIs(t, err, ErrBadArgValue)
}

func TestICAONameEncodeDecode(t *testing.T) {
	n := ICAOName{Facility: "KZOA", Function: "CTR"}
	text, err := (Arg{Kind: ArgICAOName, ICAOName: n}).EncodeText()
	require.NoError(t, err)
	require.Equal(t, "KZOA CTR", text)
	require.Equal(t, icaoNameTokens, argTokenCount(ArgICAOName))

	got, err := DecodeArgText(ArgICAOName, text)
	require.NoError(t, err)
	require.Equal(t, n, got.ICAOName)
}

func TestRouteEncodeDecode(t *testing.T) {
	route := []RouteElem{
		{Kind: RouteWaypoint, Name: "OAK"},
		{Kind: RoutePBD, PBD: PBD{Fix: "SFO", BearingT: 90, DistNM: 12.0}},
	}
	text, err := (Arg{Kind: ArgRoute, Route: route}).EncodeText()
	require.NoError(t, err)

	got, err := DecodeArgText(ArgRoute, text)
	require.NoError(t, err)
	require.Equal(t, route, got.Route)
}
