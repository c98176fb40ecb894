package stats

import "strings"

// RegionOther is the fallback label for missing or malformed region codes.
const RegionOther = "Other"

// seoulOther labels Seoul codes that are not in the district table.
const seoulOther = "Seoul (other)"

// seoulDistricts maps the leading five digits of a Seoul administrative
// code (11xxx) to the district name.
var seoulDistricts = map[string]string{
	"11110": "Jongno-gu",
	"11140": "Jung-gu",
	"11170": "Yongsan-gu",
	"11200": "Seongdong-gu",
	"11215": "Gwangjin-gu",
	"11230": "Dongdaemun-gu",
	"11260": "Jungnang-gu",
	"11290": "Seongbuk-gu",
	"11305": "Gangbuk-gu",
	"11320": "Dobong-gu",
	"11350": "Nowon-gu",
	"11380": "Eunpyeong-gu",
	"11410": "Seodaemun-gu",
	"11440": "Mapo-gu",
	"11470": "Yangcheon-gu",
	"11500": "Gangseo-gu",
	"11530": "Guro-gu",
	"11545": "Geumcheon-gu",
	"11560": "Yeongdeungpo-gu",
	"11590": "Dongjak-gu",
	"11620": "Gwanak-gu",
	"11650": "Seocho-gu",
	"11680": "Gangnam-gu",
	"11710": "Songpa-gu",
	"11740": "Gangdong-gu",
}

// RegionName maps an administrative region code to a display name.
// Short or empty codes fall back to a generic label; Seoul codes not in
// the table get a Seoul-wide label; anything else passes through as-is.
func RegionName(code string) string {
	if len(code) < 5 {
		return RegionOther
	}
	if strings.HasPrefix(code, "11") {
		if name, ok := seoulDistricts[code[:5]]; ok {
			return name
		}
		return seoulOther
	}
	return code
}
