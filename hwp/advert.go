package hwp

import "strings"

// HuaweiCompanyID is the Bluetooth SIG company identifier Huawei keys its
// manufacturer-specific advertisement data with.
const HuaweiCompanyID = 0x0156

var advertNamePrefixes = []string{
	"HUAWEI FreeBuds",
	"FreeBuds",
}

// MatchAdvertisement reports whether a BLE advertisement looks like a
// FreeBuds device: a known name prefix, or manufacturer data keyed by
// Huawei's company ID.
func MatchAdvertisement(name string, companyIDs []uint16) bool {
	for _, p := range advertNamePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, id := range companyIDs {
		if id == HuaweiCompanyID {
			return true
		}
	}
	return false
}
