package ports

import "testing"

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver()

	tests := []struct {
		name        string
		raw         string
		wantCode    string
		wantCountry string
		resolved    bool
		countryOnly bool
	}{
		{"port with country suffix", "Shanghai, China", "CNSHA", "China", true, false},
		{"bare port name", "rotterdam", "NLRTM", "Netherlands", true, false},
		{"city alias", "Mumbai", "INNSA", "India", true, false},
		{"country only", "USA", "", "USA", false, true},
		{"country only long form", "United States", "", "USA", false, true},
		{"unresolvable free text", "the usual warehouse", "", "", false, false},
		{"blank", "  ", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.raw)
			if got.Code != tt.wantCode || got.Country != tt.wantCountry ||
				got.Resolved != tt.resolved || got.CountryOnly != tt.countryOnly {
				t.Errorf("Resolve(%q) = %+v, want code=%q country=%q resolved=%v countryOnly=%v",
					tt.raw, got, tt.wantCode, tt.wantCountry, tt.resolved, tt.countryOnly)
			}
		})
	}
}

func TestStaticResolver_PortBeatsCountry(t *testing.T) {
	// "Singapore" is both a port and a country; the port match wins.
	got := NewStaticResolver().Resolve("Singapore")
	if !got.Resolved || got.Code != "SGSIN" {
		t.Errorf("Resolve(Singapore) = %+v, want port SGSIN", got)
	}
}
