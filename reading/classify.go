package reading

// Classification is the ISO 14644-1 class and the matching FED-STD-209E class
type Classification struct {
	ISO    int `json:"iso_class"`
	FedStd int `json:"clean_class"`
}

var (
	ISO7 = Classification{ISO: 7, FedStd: 10000}
	ISO8 = Classification{ISO: 8, FedStd: 100000}
	ISO9 = Classification{ISO: 9, FedStd: 1000000}
)

// Particle limits per cubic metre. Upper bounds are exclusive.
const (
	iso7Limit05 = 352000
	iso7Limit25 = 11720
	iso8Limit05 = 3520000
	iso8Limit25 = 117200
)

// Classify derives the cleanliness class from the 0.5 um and 2.5 um counts.
// Both counts must be in the same volumetric unit. A missing count gives
// the loosest class.
func Classify(c05, c25 Value[float64]) Classification {
	a, ok05 := c05.Get()
	b, ok25 := c25.Get()
	if !ok05 || !ok25 {
		return ISO9
	}

	switch {
	case a < iso7Limit05 && b < iso7Limit25:
		return ISO7
	case a < iso8Limit05 && b < iso8Limit25:
		return ISO8
	default:
		return ISO9
	}
}
