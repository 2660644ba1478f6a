package cpdlc

import (
	"fmt"
	"strconv"
	"strings"
)

// ArgKind tags the variant carried by an Arg. The set and their canonical
// text forms are fixed by spec 4.2; grounded on cpdlc_data_types.h's
// cpdlc_arg_type_t enum (original_source).
type ArgKind int

const (
	ArgAltitude ArgKind = iota
	ArgSpeed
	ArgTime
	ArgTimeDur
	ArgPosition
	ArgDirection
	ArgDistance
	ArgDistanceOffset
	ArgVVI
	ArgToFrom
	ArgRoute
	ArgProcedure
	ArgSquawk
	ArgICAOID
	ArgICAOName
	ArgFrequency
	ArgDegrees
	ArgBaro
	ArgFreetext
	ArgPersons
	ArgPosReport
	ArgPDC
	ArgTP4Table
	ArgErrInfo
	ArgVersion
	ArgAtisCode
	ArgLegType
)

func (k ArgKind) String() string {
	names := [...]string{
		"Altitude", "Speed", "Time", "TimeDur", "Position", "Direction",
		"Distance", "DistanceOffset", "VVI", "ToFrom", "Route",
		"Procedure", "Squawk", "ICAOID", "ICAOName", "Frequency",
		"Degrees", "Baro", "Freetext", "Persons", "PosReport", "PDC",
		"TP4Table", "ErrInfo", "Version", "AtisCode", "LegType",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return fmt.Sprintf("ArgKind(%d)", int(k))
	}
	return names[k]
}

// Direction is the CPDLC direction/side argument (spec 4.2).
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirEither
	DirNorth
	DirSouth
	DirEast
	DirWest
	DirNE
	DirNW
	DirSE
	DirSW
)

var dirText = map[Direction]string{
	DirLeft: "L", DirRight: "R", DirEither: "EITHER",
	DirNorth: "N", DirSouth: "S", DirEast: "E", DirWest: "W",
	DirNE: "NE", DirNW: "NW", DirSE: "SE", DirSW: "SW",
}

func (d Direction) String() string {
	if s, ok := dirText[d]; ok {
		return s
	}
	return "?"
}

func parseDirection(s string) (Direction, error) {
	for d, t := range dirText {
		if t == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: bad direction %q", ErrBadArgValue, s)
}

// PosKind selects the concrete representation a Position argument holds.
type PosKind int

const (
	PosFixname PosKind = iota
	PosAirport
	PosNavaid
	PosLatLon
	PosPBD
)

// LatLon is a compact latitude/longitude pair in decimal degrees.
type LatLon struct {
	Lat, Lon float64
}

// PBD is a place/bearing/distance position: FIX/bbb/dd.d.
type PBD struct {
	Fix      string
	BearingT int
	DistNM   float64
}

// Position is the tagged union backing ArgPosition.
type Position struct {
	Kind    PosKind
	Name    string // fixname / ICAO airport / navaid identifier
	LatLon  LatLon
	PBD     PBD
}

// RouteElemKind distinguishes the elements making up a Route argument.
type RouteElemKind int

const (
	RouteAirway RouteElemKind = iota
	RouteWaypoint
	RoutePBD
	RouteLatLon
)

// RouteElem is one space-delimited element of a Route argument.
type RouteElem struct {
	Kind   RouteElemKind
	Name   string
	PBD    PBD
	LatLon LatLon
}

// Procedure is a SID/STAR/approach clearance reference.
type Procedure struct {
	Type  string // "SID", "STAR", "APPCH"
	Name  string
	Trans string
}

// ICAOName is a facility name plus function suffix (e.g. "KZOA CTR").
type ICAOName struct {
	Facility string
	Function string
}

// PosReport is the nested DM48 position-report structure (spec 6).
type PosReport struct {
	TimeHHMM   string
	Pos        Position
	Alt        Altitude
	CrzClbDes  string // "", "CRZ CLB", "CLB", or "DES"
	CrzClbAlt  Altitude
	HasCrzClb  bool
	Spd        Speed
	HasOffset  bool
	OffsetDir  Direction
	OffsetDist float64
	HasPrev    bool
	PrevName   string
	PrevTime   string
	PrevAlt    Altitude
	PrevSpd    Speed
	HasNext    bool
	NextName   string
	NextTime   string
	HasNextP1  bool
	NextP1Name string
	HasDest    bool
	DestName   string
	DestETA    string
	HasWind    bool
	WindDegT   int
	WindSpdKT  int
	HasOAT     bool
	OATC       int
}

// PDC is a pre-departure clearance record.
type PDC struct {
	Clearance string
	Freetext  string
}

// LegType is a holding-pattern leg specified either by time or by
// distance; exactly one of the two is set.
type LegType struct {
	IsDistance bool
	Minutes    int
	NM         float64
}

// Altitude is FLnnn (flight level) or nnnn (raw feet), optionally metric.
type Altitude struct {
	FL     bool
	Metric bool
	Feet   int
}

// Speed is Mach (1/1000ths) or knots, with true/ground markers.
type Speed struct {
	Mach  bool
	True  bool
	Ground bool
	Value int // knots, or 1/1000ths of Mach
}

// Time is an HH:MM time of day; Hours < 0 denotes the NOW sentinel.
type Time struct {
	Hours, Minutes int
}

// IsNow reports whether this Time is the NOW sentinel.
func (t Time) IsNow() bool { return t.Hours < 0 }

// Degrees is a heading/track/bearing, true or magnetic.
type Degrees struct {
	Value int
	True  bool // false => magnetic
}

// Baro is an altimeter setting in hPa or inHg.
type Baro struct {
	HPa   bool
	Value float64
}

// DistanceOffset is a signed NM offset with a direction.
type DistanceOffset struct {
	Dir Direction
	NM  float64
}

// ErrInfoAppError is the ErrInfo enumeration value the msglist thread
// tracker sends in a DM62 ERROR segment when a response timeout expires
// (spec 4.6.2 rule 6, 7, original_source's CPDLC_ERRINFO_APP_ERROR).
const ErrInfoAppError = "APP_ERROR"

// Arg is a tagged-union CPDLC argument value. Only the field(s)
// corresponding to Kind are meaningful; this mirrors the C union of
// cpdlc_arg_t but as a flat struct, which is the idiomatic Go rendition of
// a small closed set of variants that don't justify per-kind types plus an
// interface (see DESIGN.md).
type Arg struct {
	Kind ArgKind

	Altitude       Altitude
	Speed          Speed
	Time           Time
	TimeDur        int // minutes
	Position       Position
	Direction      Direction
	Distance       float64
	DistanceOffset DistanceOffset
	VVI            int
	ToFrom         bool // true = TO, false = FROM
	Route          []RouteElem
	Procedure      Procedure
	Squawk         string
	ICAOID         string
	ICAOName       ICAOName
	Frequency      float64
	Degrees        Degrees
	Baro           Baro
	Freetext       string
	Persons        int
	PosReport      PosReport
	PDC            PDC
	TP4Table       string
	ErrInfo        string
	Version        string
	AtisCode       string
	LegType        LegType
}

// EncodeText renders the argument's canonical wire text form (spec 4.2).
func (a Arg) EncodeText() (string, error) {
	switch a.Kind {
	case ArgAltitude:
		return encodeAltitude(a.Altitude), nil
	case ArgSpeed:
		return encodeSpeed(a.Speed), nil
	case ArgTime:
		return encodeTime(a.Time), nil
	case ArgTimeDur:
		return strconv.Itoa(a.TimeDur), nil
	case ArgPosition:
		return encodePosition(a.Position)
	case ArgDirection:
		return a.Direction.String(), nil
	case ArgDistance:
		return strconv.FormatFloat(a.Distance, 'f', -1, 64), nil
	case ArgDistanceOffset:
		sign := "R"
		if a.DistanceOffset.Dir == DirLeft {
			sign = "L"
		}
		return fmt.Sprintf("%s%s", sign, strconv.FormatFloat(a.DistanceOffset.NM, 'f', -1, 64)), nil
	case ArgVVI:
		return strconv.Itoa(a.VVI), nil
	case ArgToFrom:
		if a.ToFrom {
			return "TO", nil
		}
		return "FROM", nil
	case ArgRoute:
		return encodeRoute(a.Route)
	case ArgProcedure:
		return fmt.Sprintf("%s:%s.%s", a.Procedure.Type, a.Procedure.Name, a.Procedure.Trans), nil
	case ArgSquawk:
		return a.Squawk, nil
	case ArgICAOID:
		return a.ICAOID, nil
	case ArgICAOName:
		return strings.TrimSpace(a.ICAOName.Facility + " " + a.ICAOName.Function), nil
	case ArgFrequency:
		return strconv.FormatFloat(a.Frequency, 'f', 3, 64), nil
	case ArgDegrees:
		marker := "M"
		if a.Degrees.True {
			marker = "T"
		}
		return fmt.Sprintf("%03d%s", a.Degrees.Value, marker), nil
	case ArgBaro:
		if a.Baro.HPa {
			return fmt.Sprintf("Q%04d", int(a.Baro.Value)), nil
		}
		return fmt.Sprintf("A%04d", int(a.Baro.Value*100)), nil
	case ArgFreetext:
		return escapePercent(a.Freetext), nil
	case ArgPersons:
		return strconv.Itoa(a.Persons), nil
	case ArgPosReport:
		return encodePosReport(a.PosReport)
	case ArgPDC:
		return escapePercent(a.PDC.Clearance) + " " + escapePercent(a.PDC.Freetext), nil
	case ArgTP4Table:
		return a.TP4Table, nil
	case ArgErrInfo:
		return a.ErrInfo, nil
	case ArgVersion:
		return a.Version, nil
	case ArgAtisCode:
		return a.AtisCode, nil
	case ArgLegType:
		if a.LegType.IsDistance {
			return strconv.FormatFloat(a.LegType.NM, 'f', -1, 64) + "NM", nil
		}
		return strconv.Itoa(a.LegType.Minutes) + "MIN", nil
	default:
		return "", fmt.Errorf("%w: unhandled arg kind %v", ErrBadArgValue, a.Kind)
	}
}

// DecodeArgText parses one wire token into an Arg of the given kind.
func DecodeArgText(kind ArgKind, text string) (Arg, error) {
	a := Arg{Kind: kind}
	var err error
	switch kind {
	case ArgAltitude:
		a.Altitude, err = decodeAltitude(text)
	case ArgSpeed:
		a.Speed, err = decodeSpeed(text)
	case ArgTime:
		a.Time, err = decodeTime(text)
	case ArgTimeDur:
		a.TimeDur, err = strconv.Atoi(text)
	case ArgPosition:
		a.Position, err = decodePosition(text)
	case ArgDirection:
		a.Direction, err = parseDirection(text)
	case ArgDistance:
		a.Distance, err = strconv.ParseFloat(text, 64)
	case ArgDistanceOffset:
		a.DistanceOffset, err = decodeDistanceOffset(text)
	case ArgVVI:
		a.VVI, err = strconv.Atoi(text)
	case ArgToFrom:
		switch text {
		case "TO":
			a.ToFrom = true
		case "FROM":
			a.ToFrom = false
		default:
			err = fmt.Errorf("%w: bad tofrom %q", ErrBadArgValue, text)
		}
	case ArgRoute:
		a.Route, err = decodeRoute(text)
	case ArgProcedure:
		a.Procedure, err = decodeProcedure(text)
	case ArgSquawk:
		if len(text) != 4 || !isOctal(text) {
			err = fmt.Errorf("%w: bad squawk %q", ErrBadArgValue, text)
		}
		a.Squawk = text
	case ArgICAOID:
		if len(text) != 4 {
			err = fmt.Errorf("%w: bad icao id %q", ErrBadArgValue, text)
		}
		a.ICAOID = text
	case ArgICAOName:
		a.ICAOName = decodeICAOName(text)
	case ArgFrequency:
		a.Frequency, err = strconv.ParseFloat(text, 64)
	case ArgDegrees:
		a.Degrees, err = decodeDegrees(text)
	case ArgBaro:
		a.Baro, err = decodeBaro(text)
	case ArgFreetext:
		a.Freetext, err = unescapePercent(text)
	case ArgPersons:
		a.Persons, err = strconv.Atoi(text)
	case ArgPosReport:
		a.PosReport, err = decodePosReport(text)
	case ArgPDC:
		a.PDC, err = decodePDC(text)
	case ArgTP4Table:
		a.TP4Table = text
	case ArgErrInfo:
		a.ErrInfo = text
	case ArgVersion:
		a.Version = text
	case ArgAtisCode:
		a.AtisCode = text
	case ArgLegType:
		a.LegType, err = decodeLegType(text)
	default:
		err = fmt.Errorf("%w: unhandled arg kind %v", ErrBadArgValue, kind)
	}
	if err != nil {
		return Arg{}, fmt.Errorf("%w: %v", ErrBadArgValue, err)
	}
	return a, nil
}

func encodeAltitude(a Altitude) string {
	if a.FL {
		s := fmt.Sprintf("FL%03d", a.Feet/100)
		if a.Metric {
			s += "M"
		}
		return s
	}
	s := strconv.Itoa(a.Feet)
	if a.Metric {
		s += "M"
	}
	return s
}

func decodeAltitude(s string) (Altitude, error) {
	metric := strings.HasSuffix(s, "M")
	if metric {
		s = strings.TrimSuffix(s, "M")
	}
	if strings.HasPrefix(s, "FL") {
		n, err := strconv.Atoi(strings.TrimPrefix(s, "FL"))
		if err != nil {
			return Altitude{}, err
		}
		return Altitude{FL: true, Metric: metric, Feet: n * 100}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Altitude{}, err
	}
	return Altitude{Metric: metric, Feet: n}, nil
}

func encodeSpeed(s Speed) string {
	prefix := ""
	if s.True {
		prefix = "T"
	} else if s.Ground {
		prefix = "G"
	}
	if s.Mach {
		return fmt.Sprintf("%sM%03d", prefix, s.Value)
	}
	return fmt.Sprintf("%s%d", prefix, s.Value)
}

func decodeSpeed(s string) (Speed, error) {
	var out Speed
	if strings.HasPrefix(s, "T") {
		out.True = true
		s = s[1:]
	} else if strings.HasPrefix(s, "G") {
		out.Ground = true
		s = s[1:]
	}
	if strings.HasPrefix(s, "M") {
		out.Mach = true
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return Speed{}, err
		}
		out.Value = n
		return out, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Speed{}, err
	}
	out.Value = n
	return out, nil
}

func encodeTime(t Time) string {
	if t.IsNow() {
		return "NOW"
	}
	return fmt.Sprintf("%02d:%02d", t.Hours, t.Minutes)
}

func decodeTime(s string) (Time, error) {
	if s == "NOW" {
		return Time{Hours: -1}, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Time{}, fmt.Errorf("bad time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Time{}, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Time{}, fmt.Errorf("bad minute in %q", s)
	}
	return Time{Hours: h, Minutes: m}, nil
}

func decodeDegrees(s string) (Degrees, error) {
	if len(s) < 2 {
		return Degrees{}, fmt.Errorf("bad degrees %q", s)
	}
	marker := s[len(s)-1]
	if marker != 'T' && marker != 'M' {
		return Degrees{}, fmt.Errorf("bad degrees marker in %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return Degrees{}, err
	}
	return Degrees{Value: n, True: marker == 'T'}, nil
}

func decodeBaro(s string) (Baro, error) {
	if len(s) < 2 {
		return Baro{}, fmt.Errorf("bad baro %q", s)
	}
	switch s[0] {
	case 'Q':
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return Baro{}, err
		}
		return Baro{HPa: true, Value: float64(n)}, nil
	case 'A':
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return Baro{}, err
		}
		return Baro{Value: float64(n) / 100}, nil
	default:
		return Baro{}, fmt.Errorf("bad baro marker in %q", s)
	}
}

func decodeDistanceOffset(s string) (DistanceOffset, error) {
	if len(s) < 2 {
		return DistanceOffset{}, fmt.Errorf("bad distance offset %q", s)
	}
	var dir Direction
	switch s[0] {
	case 'L':
		dir = DirLeft
	case 'R':
		dir = DirRight
	default:
		return DistanceOffset{}, fmt.Errorf("bad offset direction in %q", s)
	}
	nm, err := strconv.ParseFloat(s[1:], 64)
	if err != nil {
		return DistanceOffset{}, err
	}
	return DistanceOffset{Dir: dir, NM: nm}, nil
}

func encodePosition(p Position) (string, error) {
	switch p.Kind {
	case PosFixname, PosAirport, PosNavaid:
		return p.Name, nil
	case PosLatLon:
		return encodeLatLon(p.LatLon), nil
	case PosPBD:
		return fmt.Sprintf("%s/%03d/%s", p.PBD.Fix, p.PBD.BearingT,
			strconv.FormatFloat(p.PBD.DistNM, 'f', 1, 64)), nil
	default:
		return "", fmt.Errorf("%w: unknown position kind", ErrBadArgValue)
	}
}

func decodePosition(s string) (Position, error) {
	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) != 3 {
			return Position{}, fmt.Errorf("bad pbd %q", s)
		}
		brg, err := strconv.Atoi(parts[1])
		if err != nil {
			return Position{}, err
		}
		dist, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return Position{}, err
		}
		return Position{Kind: PosPBD, PBD: PBD{Fix: parts[0], BearingT: brg, DistNM: dist}}, nil
	}
	if len(s) > 0 && (s[0] == 'N' || s[0] == 'S') {
		if ll, ok := tryDecodeLatLon(s); ok {
			return Position{Kind: PosLatLon, LatLon: ll}, nil
		}
	}
	return Position{Kind: PosFixname, Name: s}, nil
}

func encodeLatLon(ll LatLon) string {
	latH := "N"
	lat := ll.Lat
	if lat < 0 {
		latH = "S"
		lat = -lat
	}
	lonH := "E"
	lon := ll.Lon
	if lon < 0 {
		lonH = "W"
		lon = -lon
	}
	latDeg := int(lat)
	latMin := (lat - float64(latDeg)) * 60
	lonDeg := int(lon)
	lonMin := (lon - float64(lonDeg)) * 60
	return fmt.Sprintf("%s%02d%05.2f%s%03d%05.2f", latH, latDeg, latMin, lonH, lonDeg, lonMin)
}

func tryDecodeLatLon(s string) (LatLon, bool) {
	// Compact form: Nddmm.mmEdddmm.mm
	if len(s) < 2 {
		return LatLon{}, false
	}
	latHemi := s[0]
	if latHemi != 'N' && latHemi != 'S' {
		return LatLon{}, false
	}
	idx := strings.IndexAny(s[1:], "EW")
	if idx < 0 {
		return LatLon{}, false
	}
	idx++ // account for offset
	latPart := s[1:idx]
	lonHemi := s[idx]
	lonPart := s[idx+1:]
	if len(latPart) < 4 {
		return LatLon{}, false
	}
	latDeg, err := strconv.Atoi(latPart[:2])
	if err != nil {
		return LatLon{}, false
	}
	latMin, err := strconv.ParseFloat(latPart[2:], 64)
	if err != nil {
		return LatLon{}, false
	}
	if len(lonPart) < 5 {
		return LatLon{}, false
	}
	lonDeg, err := strconv.Atoi(lonPart[:3])
	if err != nil {
		return LatLon{}, false
	}
	lonMin, err := strconv.ParseFloat(lonPart[3:], 64)
	if err != nil {
		return LatLon{}, false
	}
	lat := float64(latDeg) + latMin/60
	if latHemi == 'S' {
		lat = -lat
	}
	lon := float64(lonDeg) + lonMin/60
	if lonHemi == 'W' {
		lon = -lon
	}
	return LatLon{Lat: lat, Lon: lon}, true
}

func encodeRoute(elems []RouteElem) (string, error) {
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		switch e.Kind {
		case RouteAirway, RouteWaypoint:
			parts = append(parts, e.Name)
		case RoutePBD:
			parts = append(parts, fmt.Sprintf("%s/%03d/%s", e.PBD.Fix, e.PBD.BearingT,
				strconv.FormatFloat(e.PBD.DistNM, 'f', 1, 64)))
		case RouteLatLon:
			parts = append(parts, encodeLatLon(e.LatLon))
		default:
			return "", fmt.Errorf("%w: bad route element", ErrBadArgValue)
		}
	}
	return strings.Join(parts, " "), nil
}

func decodeRoute(s string) ([]RouteElem, error) {
	toks := strings.Fields(s)
	out := make([]RouteElem, 0, len(toks))
	for _, t := range toks {
		if strings.Contains(t, "/") {
			parts := strings.Split(t, "/")
			if len(parts) != 3 {
				return nil, fmt.Errorf("bad route pbd %q", t)
			}
			brg, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, err
			}
			dist, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return nil, err
			}
			out = append(out, RouteElem{Kind: RoutePBD, PBD: PBD{Fix: parts[0], BearingT: brg, DistNM: dist}})
			continue
		}
		if ll, ok := tryDecodeLatLon(t); ok {
			out = append(out, RouteElem{Kind: RouteLatLon, LatLon: ll})
			continue
		}
		out = append(out, RouteElem{Kind: RouteWaypoint, Name: t})
	}
	return out, nil
}

func decodeProcedure(s string) (Procedure, error) {
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return Procedure{}, fmt.Errorf("bad procedure %q", s)
	}
	typ := s[:colon]
	rest := s[colon+1:]
	dot := strings.IndexByte(rest, '.')
	name, trans := rest, ""
	if dot >= 0 {
		name, trans = rest[:dot], rest[dot+1:]
	}
	return Procedure{Type: typ, Name: name, Trans: trans}, nil
}

func decodeICAOName(s string) ICAOName {
	parts := strings.SplitN(s, " ", 2)
	if len(parts) == 2 {
		return ICAOName{Facility: parts[0], Function: parts[1]}
	}
	return ICAOName{Facility: s}
}

func decodeLegType(s string) (LegType, error) {
	if strings.HasSuffix(s, "NM") {
		nm, err := strconv.ParseFloat(strings.TrimSuffix(s, "NM"), 64)
		if err != nil {
			return LegType{}, err
		}
		return LegType{IsDistance: true, NM: nm}, nil
	}
	if strings.HasSuffix(s, "MIN") {
		m, err := strconv.Atoi(strings.TrimSuffix(s, "MIN"))
		if err != nil {
			return LegType{}, err
		}
		return LegType{Minutes: m}, nil
	}
	return LegType{}, fmt.Errorf("bad leg type %q", s)
}

func decodePDC(s string) (PDC, error) {
	parts := strings.SplitN(s, " ", 2)
	clr, err := unescapePercent(parts[0])
	if err != nil {
		return PDC{}, err
	}
	if len(parts) == 1 {
		return PDC{Clearance: clr}, nil
	}
	txt, err := unescapePercent(parts[1])
	if err != nil {
		return PDC{}, err
	}
	return PDC{Clearance: clr, Freetext: txt}, nil
}

// encodePosReport renders the DM48 position-report fixed field order
// (spec 6).
func encodePosReport(p PosReport) (string, error) {
	var b strings.Builder
	b.WriteString(p.TimeHHMM)
	b.WriteByte('Z')
	posText, err := encodePosition(p.Pos)
	if err != nil {
		return "", err
	}
	b.WriteByte(' ')
	b.WriteString(posText)
	b.WriteByte(' ')
	b.WriteString(encodeAltitude(p.Alt))
	if p.HasCrzClb {
		b.WriteByte(' ')
		b.WriteString(p.CrzClbDes)
		b.WriteByte(' ')
		b.WriteString(encodeAltitude(p.CrzClbAlt))
	}
	b.WriteByte(' ')
	b.WriteString(encodeSpeed(p.Spd))
	if p.HasOffset {
		dir := "R"
		if p.OffsetDir == DirLeft {
			dir = "L"
		}
		fmt.Fprintf(&b, " OFFSET %s%s", dir, strconv.FormatFloat(p.OffsetDist, 'f', -1, 64))
	}
	if p.HasPrev {
		fmt.Fprintf(&b, " PREV %s %sZ %s %s", p.PrevName, p.PrevTime,
			encodeAltitude(p.PrevAlt), encodeSpeed(p.PrevSpd))
	}
	if p.HasNext {
		fmt.Fprintf(&b, " NEXT %s %sZ", p.NextName, p.NextTime)
	}
	if p.HasNextP1 {
		fmt.Fprintf(&b, " NEXT+1 %s", p.NextP1Name)
	}
	if p.HasDest {
		fmt.Fprintf(&b, " DEST %s ETA %sZ", p.DestName, p.DestETA)
	}
	if p.HasWind {
		fmt.Fprintf(&b, " WIND %03d%03dKT", p.WindDegT, p.WindSpdKT)
	}
	if p.HasOAT {
		fmt.Fprintf(&b, " OAT %+03d", p.OATC)
	}
	return b.String(), nil
}

func decodePosReport(s string) (PosReport, error) {
	toks := strings.Fields(s)
	if len(toks) < 3 {
		return PosReport{}, fmt.Errorf("bad posreport %q", s)
	}
	var p PosReport
	if !strings.HasSuffix(toks[0], "Z") {
		return PosReport{}, fmt.Errorf("bad posreport time %q", toks[0])
	}
	p.TimeHHMM = strings.TrimSuffix(toks[0], "Z")
	pos, err := decodePosition(toks[1])
	if err != nil {
		return PosReport{}, err
	}
	p.Pos = pos
	alt, err := decodeAltitude(toks[2])
	if err != nil {
		return PosReport{}, err
	}
	p.Alt = alt
	i := 3
	if i < len(toks) && (toks[i] == "CRZ" || toks[i] == "CLB" || toks[i] == "DES") {
		p.HasCrzClb = true
		if toks[i] == "CRZ" && i+1 < len(toks) && toks[i+1] == "CLB" {
			p.CrzClbDes = "CRZ CLB"
			i += 2
		} else {
			p.CrzClbDes = toks[i]
			i++
		}
		if i >= len(toks) {
			return PosReport{}, fmt.Errorf("bad posreport: missing crz/clb altitude")
		}
		ca, err := decodeAltitude(toks[i])
		if err != nil {
			return PosReport{}, err
		}
		p.CrzClbAlt = ca
		i++
	}
	if i >= len(toks) {
		return PosReport{}, fmt.Errorf("bad posreport: missing speed")
	}
	spd, err := decodeSpeed(toks[i])
	if err != nil {
		return PosReport{}, err
	}
	p.Spd = spd
	i++
	for i < len(toks) {
		switch toks[i] {
		case "OFFSET":
			i++
			if i >= len(toks) {
				return PosReport{}, fmt.Errorf("bad posreport offset")
			}
			off, err := decodeDistanceOffset(toks[i])
			if err != nil {
				return PosReport{}, err
			}
			p.HasOffset = true
			p.OffsetDir = off.Dir
			p.OffsetDist = off.NM
			i++
		case "PREV":
			if i+4 >= len(toks) {
				return PosReport{}, fmt.Errorf("bad posreport prev")
			}
			p.HasPrev = true
			p.PrevName = toks[i+1]
			p.PrevTime = strings.TrimSuffix(toks[i+2], "Z")
			alt, err := decodeAltitude(toks[i+3])
			if err != nil {
				return PosReport{}, err
			}
			p.PrevAlt = alt
			spd, err := decodeSpeed(toks[i+4])
			if err != nil {
				return PosReport{}, err
			}
			p.PrevSpd = spd
			i += 5
		case "NEXT":
			if i+2 >= len(toks) {
				return PosReport{}, fmt.Errorf("bad posreport next")
			}
			p.HasNext = true
			p.NextName = toks[i+1]
			p.NextTime = strings.TrimSuffix(toks[i+2], "Z")
			i += 3
		case "NEXT+1":
			if i+1 >= len(toks) {
				return PosReport{}, fmt.Errorf("bad posreport next+1")
			}
			p.HasNextP1 = true
			p.NextP1Name = toks[i+1]
			i += 2
		case "DEST":
			if i+3 >= len(toks) || toks[i+2] != "ETA" {
				return PosReport{}, fmt.Errorf("bad posreport dest")
			}
			p.HasDest = true
			p.DestName = toks[i+1]
			p.DestETA = strings.TrimSuffix(toks[i+3], "Z")
			i += 4
		case "WIND":
			if i+1 >= len(toks) || len(toks[i+1]) < 6 {
				return PosReport{}, fmt.Errorf("bad posreport wind")
			}
			w := strings.TrimSuffix(toks[i+1], "KT")
			if len(w) < 6 {
				return PosReport{}, fmt.Errorf("bad posreport wind value")
			}
			deg, err := strconv.Atoi(w[:3])
			if err != nil {
				return PosReport{}, err
			}
			spd, err := strconv.Atoi(w[3:])
			if err != nil {
				return PosReport{}, err
			}
			p.HasWind = true
			p.WindDegT = deg
			p.WindSpdKT = spd
			i += 2
		case "OAT":
			if i+1 >= len(toks) {
				return PosReport{}, fmt.Errorf("bad posreport oat")
			}
			oat, err := strconv.Atoi(toks[i+1])
			if err != nil {
				return PosReport{}, err
			}
			p.HasOAT = true
			p.OATC = oat
			i += 2
		default:
			return PosReport{}, fmt.Errorf("bad posreport field %q", toks[i])
		}
	}
	return p, nil
}

func isOctal(s string) bool {
	for _, c := range s {
		if c < '0' || c > '7' {
			return false
		}
	}
	return true
}

// percentSafe reports whether a byte may appear unescaped on the wire
// (spec 4.2: spaces, letters, digits, comma and period survive as-is).
func percentSafe(c byte) bool {
	return c == ' ' || c == ',' || c == '.' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}

// escapePercent percent-escapes (lowercase %hh) every byte that is not
// percentSafe, grounded on libcpdlc's escape_percent (original_source
// cpdlc.c).
func escapePercent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if percentSafe(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02x", c)
		}
	}
	return b.String()
}

// unescapePercent reverses escapePercent.
func unescapePercent(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' {
			if i+2 >= len(s) {
				return "", fmt.Errorf("truncated percent escape in %q", s)
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("bad percent escape in %q: %w", s, err)
			}
			b.WriteByte(byte(v))
			i += 2
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}
