package research

// Outlet is one whitelisted review publication. Weight feeds the evidence
// score; nothing outside this list is searched.
type Outlet struct {
	Name   string
	Domain string
	Weight float64
}

// Outlets is the trusted source set, heaviest first.
var Outlets = []Outlet{
	{Name: "Wirecutter", Domain: "nytimes.com/wirecutter", Weight: 3.0},
	{Name: "RTINGS", Domain: "rtings.com", Weight: 2.5},
	{Name: "Tom's Guide", Domain: "tomsguide.com", Weight: 2.0},
	{Name: "PCMag", Domain: "pcmag.com", Weight: 2.0},
	{Name: "The Verge", Domain: "theverge.com", Weight: 2.0},
	{Name: "CNET", Domain: "cnet.com", Weight: 2.0},
	{Name: "TechRadar", Domain: "techradar.com", Weight: 1.5},
	{Name: "Good Housekeeping", Domain: "goodhousekeeping.com", Weight: 1.5},
	{Name: "Popular Mechanics", Domain: "popularmechanics.com", Weight: 1.5},
}

// OutletWeight returns the weight for a source name, defaulting to 1.0 for
// anything off-list.
func OutletWeight(name string) float64 {
	for _, o := range Outlets {
		if o.Name == name {
			return o.Weight
		}
	}
	return 1.0
}
