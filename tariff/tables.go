package tariff

// Regulated distribution fees per (year, area, rate class), CZK/kWh.
// The per-year system component (transmission, system services, OTE
// fee) is charged on top of the area fee in both bands.
//
// ERU price decision for 2025; CEZ tables embed the interval variants
// the distributor publishes for its named schedules.

var systemFees = map[int]float64{
	2025: 0.49500 + 0.17092 + 0.02830,
}

type rateEntry struct {
	T1   float64
	T2   float64 // 0 when the rate class has no off-peak band
	Name string  // embedded interval family, e.g. "EV" for D57d

	// Embedded interval variants keyed by suffix ("V1"...), applying
	// when the tariff code is Name+suffix.
	Variants map[string]Schedule
}

func (e rateEntry) hasT2() bool { return e.Name != "" || e.T2 != 0 }

var aku8Variants = map[string]Schedule{
	"V1": shared(span(0, 6), span(19, 21)),
	"V2": shared(span(0, 5), span(18, 20), span(23, 24)),
	"V3": shared(span(0, 4), span(17, 19), span(22, 24)),
	"V4": shared(span(0, 6), span(22, 24)),
	"V5": shared(span(1, 6), span(18, 21)),
	"V6": shared(span(3, 6), span(15, 18), span(21, 23)),
}

var rateTables = map[int]map[string]map[string]rateEntry{
	2025: {
		"cez": {
			"D01d": {T1: 2.80318},
			"D02d": {T1: 2.09963},
			"D25d": {T1: 2.26711, T2: 0.20600, Name: "AKU8", Variants: aku8Variants},
			"D26d": {T1: 1.04600, T2: 0.20600, Name: "AKU8", Variants: aku8Variants},
			"D27d": {T1: 2.26711, T2: 0.20600, Name: "EMO", Variants: map[string]Schedule{
				"V1": shared(span(2, 6), span(20, 24)),
			}},
			"D35d": {T1: 0.72145, T2: 0.20600, Name: "AKU16", Variants: map[string]Schedule{
				"V1": shared(span(0, 8), span(13, 16), span(19, 24)),
			}},
			"D45d": {T1: 0.72145, T2: 0.20600, Name: "PT", Variants: map[string]Schedule{
				"V1": shared(span(0, 9), span(10, 11), span(12, 13), span(14, 16), span(17, 24)),
				"V2": shared(span(0, 6), span(7, 9), span(10, 13), span(14, 16), span(17, 24)),
				"V3": shared(span(0, 8), span(9, 12), span(13, 15), span(16, 19), span(20, 24)),
				"V4": shared(span(0, 10), span(11, 12), span(13, 14), span(15, 17), span(18, 24)),
			}},
			"D56d": {T1: 0.72145, T2: 0.20600, Name: "TC", Variants: map[string]Schedule{
				"V1": shared(span(0, 9), span(10, 12), span(14, 24)),
			}},
			"D57d": {T1: 0.72145, T2: 0.20600, Name: "EV", Variants: map[string]Schedule{
				"V1": shared(span(0, 6), span(7, 9), span(10, 13), span(14, 16), span(17, 24)),
				"V2": shared(span(0, 8), span(9, 12), span(13, 15), span(16, 19), span(20, 24)),
				"V3": shared(span(0, 10), span(11, 12), span(13, 14), span(15, 17), span(18, 24)),
			}},
			"D61d": {T1: 3.28260, T2: 0.20600, Name: "VIK", Variants: map[string]Schedule{
				"V1": weekdays(nil, nil, nil, nil,
					[]Interval{span(12, 24)},
					[]Interval{span(0, 24)},
					[]Interval{span(0, 22)}),
			}},
		},
		"egd": {
			"D01d": {T1: 2.69479},
			"D02d": {T1: 2.17145},
			"D25d": {T1: 2.12308, T2: 0.22264},
			"D26d": {T1: 0.95821, T2: 0.22264},
			"D27d": {T1: 2.12308, T2: 0.22264},
			"D35d": {T1: 0.71876, T2: 0.22264},
			"D45d": {T1: 0.71876, T2: 0.22264},
			"D56d": {T1: 0.71876, T2: 0.22264},
			"D57d": {T1: 0.71876, T2: 0.22264},
			"D61d": {T1: 3.17899, T2: 0.22264},
		},
		"pre": {
			"D01d": {T1: 1.82339},
			"D02d": {T1: 1.40558},
			"D25d": {T1: 1.53998, T2: 0.11444},
			"D26d": {T1: 0.73991, T2: 0.11444},
			"D27d": {T1: 1.53998, T2: 0.11444},
			"D35d": {T1: 0.29685, T2: 0.11444},
			"D45d": {T1: 0.29685, T2: 0.11444},
			"D56d": {T1: 0.29685, T2: 0.11444},
			"D57d": {T1: 0.29685, T2: 0.11444},
			"D61d": {T1: 2.19927, T2: 0.11444},
		},
	},
}

// Generic named interval sets, used when the tariff code does not match
// the rate class's embedded family but is a known published schedule.
var namedSchedules = map[string]Schedule{
	"AKU8V1":  shared(span(0, 6), span(19, 21)),
	"AKU8V2":  shared(span(0, 5), span(18, 20), span(23, 24)),
	"AKU8V3":  shared(span(0, 4), span(17, 19), span(22, 24)),
	"AKU8V4":  shared(span(0, 6), span(22, 24)),
	"AKU8V5":  shared(span(1, 6), span(18, 21)),
	"AKU8V6":  shared(span(3, 6), span(15, 18), span(21, 23)),
	"EMOV1":   shared(span(2, 6), span(20, 24)),
	"AKU16V1": shared(span(0, 8), span(13, 16), span(19, 24)),
	"PTV1":    shared(span(0, 9), span(10, 11), span(12, 13), span(14, 16), span(17, 24)),
	"PTV2":    shared(span(0, 6), span(7, 9), span(10, 13), span(14, 16), span(17, 24)),
	"PTV3":    shared(span(0, 8), span(9, 12), span(13, 15), span(16, 19), span(20, 24)),
	"PTV4":    shared(span(0, 10), span(11, 12), span(13, 14), span(15, 17), span(18, 24)),
	"TCV1":    shared(span(0, 9), span(10, 12), span(14, 24)),
	"EVV1":    shared(span(0, 6), span(7, 9), span(10, 13), span(14, 16), span(17, 24)),
	"EVV2":    shared(span(0, 8), span(9, 12), span(13, 15), span(16, 19), span(20, 24)),
	"EVV3":    shared(span(0, 10), span(11, 12), span(13, 14), span(15, 17), span(18, 24)),
	"VIKV1": weekdays(nil, nil, nil, nil,
		[]Interval{span(12, 24)},
		[]Interval{span(0, 24)},
		[]Interval{span(0, 22)}),
	"CHLV1": shared(span(3, 23)),
	"CHLV2": shared(span(0, 4), span(6, 22)),
	"CHLV3": shared(Interval{Start: 0, End: 4*60 + 30}, Interval{Start: 8*60 + 30, End: 24 * 60}),
	"CHLV4": shared(span(0, 14), span(18, 24)),
	"ZAV1": weekdays(
		[]Interval{span(0, 6), span(10, 24)},
		[]Interval{span(0, 6), span(10, 24)},
		[]Interval{span(0, 6), span(10, 24)},
		[]Interval{span(0, 6), span(10, 24)},
		[]Interval{span(0, 6), span(10, 24)},
		[]Interval{span(0, 24)},
		[]Interval{span(0, 24)}),
	"ZAV2": weekdays(
		[]Interval{span(0, 3), span(7, 24)},
		[]Interval{span(0, 3), span(7, 24)},
		[]Interval{span(0, 3), span(7, 24)},
		[]Interval{span(0, 3), span(7, 24)},
		[]Interval{span(0, 3), span(7, 24)},
		[]Interval{span(0, 24)},
		[]Interval{span(0, 24)}),
	"VYRV1": shared(span(0, 6), span(10, 16), span(20, 24)),
	"VYRV2": shared(span(0, 7), span(15, 24)),
	"VYRV3": shared(span(0, 7), span(10, 18), span(23, 24)),
}
