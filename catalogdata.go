package cpdlc

import "time"

// defaultTemplates is the built-in message catalog. libcpdlc's own table
// (cpdlc_ul_infos / cpdlc_dl_infos) spans uplink types 0..182 and downlink
// types 0..80; this table is a representative subset spanning every
// argument kind, every response category except RespRequired, and every
// message named by a
// scenario in this repository's documentation, rather than a full
// transcription (see DESIGN.md).
const (
	respTimeoutShort = 100 * time.Second
	respTimeoutLong  = 300 * time.Second
)

var (
	keyWilco    = TypeKey{Num: 0}
	keyUnable   = TypeKey{Num: 1}
	keyAffirm   = TypeKey{Num: 4}
	keyNegative = TypeKey{Num: 5}
)

var defaultTemplates = []*Template{
	// --- Uplink: link management / standalone acknowledgements ---
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 0}, Name: "FREE TEXT",
		ArgKinds: []ArgKind{ArgFreetext}, RespCat: RespOperational,
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 1}, Name: "STANDBY",
		RespCat: RespNotRequired, IsStandby: true,
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 3}, Name: "ROGER",
		RespCat: RespNotRequired, IsLinkMgmt: true,
	},

	// --- Uplink: clearances (wilco/unable family) ---
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 19}, Name: "MAINTAIN",
		ArgKinds: []ArgKind{ArgAltitude}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 20}, Name: "CLIMB TO",
		ArgKinds: []ArgKind{ArgAltitude}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 23}, Name: "AT TIME CLIMB TO",
		ArgKinds: []ArgKind{ArgTime, ArgAltitude}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 26}, Name: "DESCEND TO",
		ArgKinds: []ArgKind{ArgAltitude}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 30}, Name: "EXPECT FURTHER CLEARANCE",
		ArgKinds: []ArgKind{ArgTimeDur}, RespCat: RespRoger,
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 34}, Name: "TURN DEGREES",
		ArgKinds: []ArgKind{ArgDirection, ArgDegrees}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 44}, Name: "PROCEED DIRECT TO",
		ArgKinds: []ArgKind{ArgPosition}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 74}, Name: "CONTACT",
		ArgKinds: []ArgKind{ArgICAOName, ArgFrequency}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 78}, Name: "REPORT DISTANCE",
		ArgKinds: []ArgKind{ArgDistance}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 117}, Name: "CROSS POSITION AT AND MAINTAIN",
		ArgKinds: []ArgKind{ArgPosition, ArgAltitude}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 120}, Name: "HOLD AT",
		ArgKinds: []ArgKind{ArgPosition, ArgLegType, ArgDirection}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 128}, Name: "EXPECT BACK ON ROUTE",
		ArgKinds: []ArgKind{ArgRoute}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 133}, Name: "SQUAWK",
		ArgKinds: []ArgKind{ArgSquawk}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 140}, Name: "FLY PROCEDURE",
		ArgKinds: []ArgKind{ArgProcedure}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyWilco, keyUnable},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 150}, Name: "ALTIMETER",
		ArgKinds: []ArgKind{ArgBaro}, RespCat: RespRoger,
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 175}, Name: "CONFIRM ATIS CODE",
		ArgKinds: []ArgKind{ArgAtisCode}, RespCat: RespAffirmNegative,
		Timeout: respTimeoutShort, ValidResponses: []TypeKey{keyAffirm, keyNegative},
	},

	// --- Uplink: link transfer / end of service ---
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 160}, Name: "NEXT DATA AUTHORITY",
		ArgKinds: []ArgKind{ArgICAOName}, RespCat: RespNotRequired, IsLinkMgmt: true,
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 161}, Name: "END OF SERVICE",
		RespCat: RespNotRequired, IsLinkMgmt: true,
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 168}, Name: "DISREGARD",
		RespCat: RespNotRequired, IsDisregard: true,
	},

	// --- Uplink: ARINC-622 version announcement ---
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 180}, Name: "CPDLC VERSION REQUEST",
		ArgKinds: []ArgKind{ArgVersion}, RespCat: RespOperational,
		ValidResponses: []TypeKey{{Num: 79}},
	},
	{
		Dir: Uplink, TypeKey: TypeKey{Num: 182}, Name: "PDC",
		ArgKinds: []ArgKind{ArgPDC}, RespCat: RespOperational,
	},

	// --- Downlink: link management / standalone acknowledgements ---
	{
		Dir: Downlink, TypeKey: keyWilco, Name: "WILCO",
		RespCat: RespNotRequired, IsAccept: true,
	},
	{
		Dir: Downlink, TypeKey: keyUnable, Name: "UNABLE",
		RespCat: RespNotRequired, IsReject: true,
	},
	{
		Dir: Downlink, TypeKey: keyAffirm, Name: "AFFIRM",
		RespCat: RespNotRequired, IsAccept: true,
	},
	{
		Dir: Downlink, TypeKey: keyNegative, Name: "NEGATIVE",
		RespCat: RespNotRequired, IsReject: true,
	},

	// --- Downlink: requests (wilco/unable family) ---
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 6}, Name: "REQUEST ALTITUDE",
		ArgKinds: []ArgKind{ArgAltitude}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 9}, Name: "REQUEST CLIMB TO",
		ArgKinds: []ArgKind{ArgAltitude}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 18}, Name: "REQUEST DIRECT TO",
		ArgKinds: []ArgKind{ArgPosition}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 22}, Name: "REQUEST SPEED",
		ArgKinds: []ArgKind{ArgSpeed}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 24}, Name: "REQUEST VOICE CONTACT",
		ArgKinds: []ArgKind{ArgICAOName, ArgFrequency}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 32}, Name: "REQUEST VVI",
		ArgKinds: []ArgKind{ArgVVI}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 33}, Name: "REPORT POSITION",
		ArgKinds: []ArgKind{ArgToFrom, ArgPosition}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 34}, Name: "OFFSET",
		ArgKinds: []ArgKind{ArgDistanceOffset}, RespCat: RespWilcoUnable,
		Timeout: respTimeoutShort,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 40}, Name: "REPORT FACILITY",
		ArgKinds: []ArgKind{ArgICAOID}, RespCat: RespNotRequired,
	},

	// --- Downlink: position report ---
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 48}, Name: "POSITION REPORT",
		ArgKinds: []ArgKind{ArgPosReport}, RespCat: RespNotRequired,
	},

	// --- Downlink: error / authority gating ---
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 62}, Name: "ERROR",
		ArgKinds: []ArgKind{ArgErrInfo}, RespCat: RespNotRequired,
		IsReject: true, IsErrorSeg: true,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 63}, Name: "NOT CURRENT DATA AUTHORITY",
		RespCat: RespNotRequired,
	},

	// --- Downlink: DL67 subtype family ('b'..'i' reuse code 67) ---
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 67, Subtype: 'b'}, Name: "WE CAN ACCEPT",
		ArgKinds: []ArgKind{ArgAltitude}, RespCat: RespOperational,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 67, Subtype: 'c'}, Name: "WE CANNOT ACCEPT",
		ArgKinds: []ArgKind{ArgAltitude}, RespCat: RespOperational,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 67, Subtype: 'd'}, Name: "WHEN CAN WE EXPECT",
		ArgKinds: []ArgKind{ArgAltitude}, RespCat: RespOperational,
	},

	// --- Downlink: miscellaneous / ARINC-622 version reply ---
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 69}, Name: "REQUEST PDC",
		RespCat: RespOperational,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 70}, Name: "FREE TEXT",
		ArgKinds: []ArgKind{ArgFreetext}, RespCat: RespOperational,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 75}, Name: "NUMBER OF PERSONS",
		ArgKinds: []ArgKind{ArgPersons}, RespCat: RespNotRequired,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 79}, Name: "CPDLC VERSION",
		ArgKinds: []ArgKind{ArgVersion}, RespCat: RespOperational,
	},
	{
		Dir: Downlink, TypeKey: TypeKey{Num: 80}, Name: "TP4 TABLE UPDATE",
		ArgKinds: []ArgKind{ArgTP4Table}, RespCat: RespOperational,
	},
}
