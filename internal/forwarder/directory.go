package forwarder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Forwarder is one entry in the freight forwarder directory.
type Forwarder struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Country string `json:"country"`
	Global  bool   `json:"global,omitempty"` // can quote any lane
}

// Directory assigns forwarders to a lane by country coverage. Candidates
// covering either end of the lane are preferred; global forwarders are the
// fallback when no country match exists.
type Directory struct {
	byCountry map[string][]Forwarder
	global    []Forwarder
	ranker    *Ranker
	logger    *slog.Logger
}

// Load reads the forwarder directory from a JSON file of the form
// {"forwarders": [{"name": ..., "email": ..., "country": ...}]}.
func Load(path string, logger *slog.Logger) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read forwarder directory: %w", err)
	}
	var file struct {
		Forwarders []Forwarder `json:"forwarders"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse forwarder directory: %w", err)
	}
	return New(file.Forwarders, logger), nil
}

func New(forwarders []Forwarder, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Directory{
		byCountry: map[string][]Forwarder{},
		ranker:    NewRanker(),
		logger:    logger,
	}
	for _, f := range forwarders {
		if f.Global {
			d.global = append(d.global, f)
			continue
		}
		key := normalizeCountry(f.Country)
		d.byCountry[key] = append(d.byCountry[key], f)
	}
	logger.Info("forwarder directory loaded", "forwarders", len(forwarders), "countries", len(d.byCountry))
	return d
}

// Ranker exposes the directory's reliability ranker so quote outcomes can
// feed back into future assignments.
func (d *Directory) Ranker() *Ranker { return d.ranker }

// Assign returns the forwarders to engage for a lane, best ranked first.
// Either endpoint country may be empty (unresolved); a lane with no country
// coverage at all falls back to the global forwarders.
func (d *Directory) Assign(originCountry, destinationCountry string) []Forwarder {
	lane := Lane(originCountry, destinationCountry)

	seen := map[string]bool{}
	var out []Forwarder
	add := func(fwds []Forwarder) {
		for _, f := range fwds {
			if !seen[f.Email] {
				seen[f.Email] = true
				out = append(out, f)
			}
		}
	}
	add(d.byCountry[normalizeCountry(originCountry)])
	add(d.byCountry[normalizeCountry(destinationCountry)])
	if len(out) == 0 {
		add(d.global)
	}

	d.ranker.Sort(out, lane)
	d.logger.Info("forwarders assigned", "lane", lane, "candidates", len(out))
	return out
}

// Lane is the canonical key for an origin/destination country pair.
func Lane(origin, destination string) string {
	return normalizeCountry(origin) + ">" + normalizeCountry(destination)
}

func normalizeCountry(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
