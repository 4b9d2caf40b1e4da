package synthetic

import "github.com/geo-drilldown/internal/domain"

// NameTables maps a parent (by code, falling back to name) to the names of
// its children, per child level.
type NameTables struct {
	Provinces      map[string][]string
	Municipalities map[string][]string
}

// Lookup returns the names for parent's children at childLevel.
func (t NameTables) Lookup(parent domain.GeoFeature, childLevel domain.AdminLevel) ([]string, bool) {
	var table map[string][]string
	switch childLevel {
	case domain.LevelProvince:
		table = t.Provinces
	case domain.LevelMunicipality:
		table = t.Municipalities
	default:
		return nil, false
	}
	if names, ok := table[parent.Code]; ok && len(names) > 0 {
		return names, true
	}
	if names, ok := table[parent.Name]; ok && len(names) > 0 {
		return names, true
	}
	return nil, false
}

// DefaultNameTables returns the bundled Philippine name lists.
func DefaultNameTables() NameTables {
	return NameTables{
		Provinces: map[string][]string{
			"NCR":  {"Manila", "Quezon City", "Makati", "Pasig", "Taguig"},
			"III":  {"Bulacan", "Pampanga", "Bataan", "Nueva Ecija", "Tarlac", "Zambales"},
			"IV-A": {"Cavite", "Laguna", "Batangas", "Rizal", "Quezon"},
			"CAR":  {"Benguet", "Ifugao", "Kalinga", "Mountain Province", "Abra", "Apayao"},
			"I":    {"Ilocos Norte", "Ilocos Sur", "La Union", "Pangasinan"},
			"V":    {"Albay", "Camarines Norte", "Camarines Sur", "Catanduanes", "Masbate", "Sorsogon"},
			"VI":   {"Aklan", "Antique", "Capiz", "Guimaras", "Iloilo", "Negros Occidental"},
			"VII":  {"Bohol", "Cebu", "Negros Oriental", "Siquijor"},
			"XI":   {"Davao de Oro", "Davao del Norte", "Davao del Sur", "Davao Occidental", "Davao Oriental"},
		},
		Municipalities: map[string][]string{
			"Manila":  {"Binondo", "Ermita", "Malate", "Paco", "Pandacan", "Port Area", "Quiapo", "Sampaloc"},
			"Cavite":  {"Bacoor", "Dasmariñas", "Imus", "Tagaytay", "Trece Martires", "General Trias"},
			"Cebu":    {"Cebu City", "Lapu-Lapu", "Mandaue", "Talisay", "Danao", "Carcar"},
			"Laguna":  {"Calamba", "San Pablo", "Santa Rosa", "Biñan", "Cabuyao", "Los Baños"},
			"Iloilo":  {"Iloilo City", "Passi", "Oton", "Pavia", "Santa Barbara"},
			"Benguet": {"Baguio", "La Trinidad", "Itogon", "Tuba", "Sablan"},
		},
	}
}
