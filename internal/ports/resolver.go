package ports

import "strings"

// Resolution is the outcome of resolving free-text origin/destination text.
// Exactly one of three shapes: a full port match (Resolved), a country-level
// match only (CountryOnly, meaning the customer named a country but not a
// port), or neither (text present but unvalidated).
type Resolution struct {
	Raw         string
	Code        string
	Country     string
	Resolved    bool
	CountryOnly bool
}

// Resolver maps raw location text to a canonical port code. The semantic
// lookup service lives outside this system; this interface is its seam.
type Resolver interface {
	Resolve(raw string) Resolution
}

type portEntry struct {
	code    string
	country string
}

// StaticResolver resolves against a built-in table of major container ports
// and country names. It covers the routes the desk actually quotes; anything
// else comes back unresolved and is surfaced as a validation warning.
type StaticResolver struct{}

func NewStaticResolver() *StaticResolver { return &StaticResolver{} }

func (r *StaticResolver) Resolve(raw string) Resolution {
	res := Resolution{Raw: raw}
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return res
	}

	for _, candidate := range candidates(text) {
		if entry, ok := portTable[candidate]; ok {
			res.Code = entry.code
			res.Country = entry.country
			res.Resolved = true
			return res
		}
	}
	for _, candidate := range candidates(text) {
		if country, ok := countryTable[candidate]; ok {
			res.Country = country
			res.CountryOnly = true
			return res
		}
	}
	return res
}

// candidates splits "Shanghai, China" style text into matchable tokens,
// longest first.
func candidates(text string) []string {
	out := []string{text}
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" && p != text {
			out = append(out, p)
		}
	}
	return out
}

var portTable = map[string]portEntry{
	"shanghai":      {"CNSHA", "China"},
	"ningbo":        {"CNNGB", "China"},
	"shenzhen":      {"CNSZX", "China"},
	"qingdao":       {"CNTAO", "China"},
	"hong kong":     {"HKHKG", "Hong Kong"},
	"singapore":     {"SGSIN", "Singapore"},
	"busan":         {"KRPUS", "South Korea"},
	"tokyo":         {"JPTYO", "Japan"},
	"yokohama":      {"JPYOK", "Japan"},
	"kaohsiung":     {"TWKHH", "Taiwan"},
	"los angeles":   {"USLAX", "USA"},
	"long beach":    {"USLGB", "USA"},
	"new york":      {"USNYC", "USA"},
	"savannah":      {"USSAV", "USA"},
	"oakland":       {"USOAK", "USA"},
	"seattle":       {"USSEA", "USA"},
	"houston":       {"USHOU", "USA"},
	"rotterdam":     {"NLRTM", "Netherlands"},
	"antwerp":       {"BEANR", "Belgium"},
	"hamburg":       {"DEHAM", "Germany"},
	"bremerhaven":   {"DEBRV", "Germany"},
	"felixstowe":    {"GBFXT", "United Kingdom"},
	"southampton":   {"GBSOU", "United Kingdom"},
	"le havre":      {"FRLEH", "France"},
	"genoa":         {"ITGOA", "Italy"},
	"valencia":      {"ESVLC", "Spain"},
	"piraeus":       {"GRPIR", "Greece"},
	"jebel ali":     {"AEJEA", "UAE"},
	"dubai":         {"AEJEA", "UAE"},
	"nhava sheva":   {"INNSA", "India"},
	"mumbai":        {"INNSA", "India"},
	"chennai":       {"INMAA", "India"},
	"colombo":       {"LKCMB", "Sri Lanka"},
	"port klang":    {"MYPKG", "Malaysia"},
	"laem chabang":  {"THLCH", "Thailand"},
	"ho chi minh":   {"VNSGN", "Vietnam"},
	"haiphong":      {"VNHPH", "Vietnam"},
	"tanjung priok": {"IDTPP", "Indonesia"},
	"jakarta":       {"IDTPP", "Indonesia"},
	"santos":        {"BRSSZ", "Brazil"},
	"sydney":        {"AUSYD", "Australia"},
	"melbourne":     {"AUMEL", "Australia"},
	"durban":        {"ZADUR", "South Africa"},
}

var countryTable = map[string]string{
	"china":          "China",
	"usa":            "USA",
	"united states":  "USA",
	"us":             "USA",
	"germany":        "Germany",
	"netherlands":    "Netherlands",
	"belgium":        "Belgium",
	"france":         "France",
	"italy":          "Italy",
	"spain":          "Spain",
	"greece":         "Greece",
	"uk":             "United Kingdom",
	"united kingdom": "United Kingdom",
	"india":          "India",
	"sri lanka":      "Sri Lanka",
	"malaysia":       "Malaysia",
	"thailand":       "Thailand",
	"vietnam":        "Vietnam",
	"indonesia":      "Indonesia",
	"japan":          "Japan",
	"south korea":    "South Korea",
	"taiwan":         "Taiwan",
	"uae":            "UAE",
	"brazil":         "Brazil",
	"australia":      "Australia",
	"south africa":   "South Africa",
}
