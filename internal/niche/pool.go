package niche

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ranklab-media/studio-cli/internal/model"
)

// DefaultPool is the curated niche pool. Scores are 1..5 per axis; the
// static score tops out at 70. A YAML override can replace the whole pool.
var DefaultPool = []model.NicheCandidate{
	// Audio
	{Keyword: "wireless earbuds", Category: "electronics", Subcategory: "audio", Intent: model.IntentGeneral, PriceMin: 30, PriceMax: 300, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 4},
	{Keyword: "noise cancelling headphones", Category: "electronics", Subcategory: "audio", Intent: model.IntentWork, PriceMin: 80, PriceMax: 450, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 5},
	{Keyword: "budget bluetooth speakers", Category: "electronics", Subcategory: "audio", Intent: model.IntentGeneral, PriceMin: 20, PriceMax: 120, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "soundbars under 300", Category: "electronics", Subcategory: "audio", Intent: model.IntentGeneral, PriceMin: 100, PriceMax: 300, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 4},
	{Keyword: "open ear headphones", Category: "electronics", Subcategory: "audio", Intent: model.IntentFitness, PriceMin: 50, PriceMax: 200, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 3},
	{Keyword: "kids headphones", Category: "electronics", Subcategory: "audio", Intent: model.IntentGeneral, PriceMin: 15, PriceMax: 80, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 3},
	{Keyword: "usb microphones", Category: "electronics", Subcategory: "audio", Intent: model.IntentCreative, PriceMin: 40, PriceMax: 250, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 4},
	{Keyword: "turntables for beginners", Category: "electronics", Subcategory: "audio", Intent: model.IntentCreative, PriceMin: 80, PriceMax: 400, ReviewCoverage: 3, AmazonDepth: 3, Monetization: 3},

	// Computing
	{Keyword: "mechanical keyboards", Category: "electronics", Subcategory: "computing", Intent: model.IntentWork, PriceMin: 50, PriceMax: 250, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 4},
	{Keyword: "ergonomic mice", Category: "electronics", Subcategory: "computing", Intent: model.IntentWork, PriceMin: 25, PriceMax: 130, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 3},
	{Keyword: "ultrawide monitors", Category: "electronics", Subcategory: "computing", Intent: model.IntentWork, PriceMin: 250, PriceMax: 1200, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 5},
	{Keyword: "budget laptops for students", Category: "electronics", Subcategory: "computing", Intent: model.IntentWork, PriceMin: 300, PriceMax: 800, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 5},
	{Keyword: "usb c docking stations", Category: "electronics", Subcategory: "computing", Intent: model.IntentWork, PriceMin: 60, PriceMax: 300, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 4},
	{Keyword: "external ssd drives", Category: "electronics", Subcategory: "computing", Intent: model.IntentCreative, PriceMin: 60, PriceMax: 350, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 4},
	{Keyword: "webcams for streaming", Category: "electronics", Subcategory: "computing", Intent: model.IntentCreative, PriceMin: 40, PriceMax: 250, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 3},
	{Keyword: "wifi 7 routers", Category: "electronics", Subcategory: "computing", Intent: model.IntentGeneral, PriceMin: 150, PriceMax: 600, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 5},
	{Keyword: "laptop stands", Category: "electronics", Subcategory: "computing", Intent: model.IntentWork, PriceMin: 20, PriceMax: 90, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},

	// Gaming
	{Keyword: "gaming headsets", Category: "electronics", Subcategory: "gaming", Intent: model.IntentGaming, PriceMin: 40, PriceMax: 350, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 4},
	{Keyword: "gaming chairs", Category: "furniture", Subcategory: "gaming", Intent: model.IntentGaming, PriceMin: 120, PriceMax: 550, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 4},
	{Keyword: "gaming monitors 144hz", Category: "electronics", Subcategory: "gaming", Intent: model.IntentGaming, PriceMin: 150, PriceMax: 700, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 5},
	{Keyword: "gaming controllers for pc", Category: "electronics", Subcategory: "gaming", Intent: model.IntentGaming, PriceMin: 30, PriceMax: 200, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "capture cards", Category: "electronics", Subcategory: "gaming", Intent: model.IntentCreative, PriceMin: 80, PriceMax: 300, ReviewCoverage: 3, AmazonDepth: 3, Monetization: 4},
	{Keyword: "handheld gaming consoles", Category: "electronics", Subcategory: "gaming", Intent: model.IntentGaming, PriceMin: 200, PriceMax: 800, ReviewCoverage: 4, AmazonDepth: 3, Monetization: 5},

	// Smart home
	{Keyword: "robot vacuums", Category: "home", Subcategory: "smart_home", Intent: model.IntentGeneral, PriceMin: 150, PriceMax: 1000, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 5},
	{Keyword: "video doorbells", Category: "home", Subcategory: "smart_home", Intent: model.IntentGeneral, PriceMin: 60, PriceMax: 300, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 4},
	{Keyword: "smart thermostats", Category: "home", Subcategory: "smart_home", Intent: model.IntentGeneral, PriceMin: 80, PriceMax: 300, ReviewCoverage: 4, AmazonDepth: 3, Monetization: 4},
	{Keyword: "smart plugs", Category: "home", Subcategory: "smart_home", Intent: model.IntentGeneral, PriceMin: 10, PriceMax: 50, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "indoor security cameras", Category: "home", Subcategory: "smart_home", Intent: model.IntentGeneral, PriceMin: 30, PriceMax: 200, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "smart light bulbs", Category: "home", Subcategory: "smart_home", Intent: model.IntentGeneral, PriceMin: 15, PriceMax: 80, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},

	// Kitchen
	{Keyword: "air fryers", Category: "home", Subcategory: "kitchen", Intent: model.IntentGeneral, PriceMin: 60, PriceMax: 250, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 4},
	{Keyword: "espresso machines under 500", Category: "home", Subcategory: "kitchen", Intent: model.IntentGeneral, PriceMin: 150, PriceMax: 500, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 5},
	{Keyword: "coffee grinders", Category: "home", Subcategory: "kitchen", Intent: model.IntentGeneral, PriceMin: 30, PriceMax: 300, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 3},
	{Keyword: "chef knives", Category: "home", Subcategory: "kitchen", Intent: model.IntentGeneral, PriceMin: 30, PriceMax: 250, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 3},
	{Keyword: "stand mixers", Category: "home", Subcategory: "kitchen", Intent: model.IntentGeneral, PriceMin: 150, PriceMax: 600, ReviewCoverage: 4, AmazonDepth: 3, Monetization: 4},
	{Keyword: "blenders for smoothies", Category: "home", Subcategory: "kitchen", Intent: model.IntentFitness, PriceMin: 40, PriceMax: 400, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "rice cookers", Category: "home", Subcategory: "kitchen", Intent: model.IntentGeneral, PriceMin: 30, PriceMax: 200, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 3},
	{Keyword: "cast iron skillets", Category: "home", Subcategory: "kitchen", Intent: model.IntentGeneral, PriceMin: 20, PriceMax: 150, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 2},
	{Keyword: "sous vide cookers", Category: "home", Subcategory: "kitchen", Intent: model.IntentGeneral, PriceMin: 60, PriceMax: 250, ReviewCoverage: 3, AmazonDepth: 3, Monetization: 3},

	// Home comfort
	{Keyword: "air purifiers", Category: "home", Subcategory: "comfort", Intent: model.IntentGeneral, PriceMin: 60, PriceMax: 500, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 4},
	{Keyword: "dehumidifiers", Category: "home", Subcategory: "comfort", Intent: model.IntentGeneral, PriceMin: 50, PriceMax: 300, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 3},
	{Keyword: "tower fans", Category: "home", Subcategory: "comfort", Intent: model.IntentGeneral, PriceMin: 40, PriceMax: 150, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "space heaters", Category: "home", Subcategory: "comfort", Intent: model.IntentGeneral, PriceMin: 30, PriceMax: 150, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "weighted blankets", Category: "home", Subcategory: "comfort", Intent: model.IntentGeneral, PriceMin: 40, PriceMax: 150, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 2},
	{Keyword: "white noise machines", Category: "home", Subcategory: "comfort", Intent: model.IntentGeneral, PriceMin: 20, PriceMax: 100, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 2},
	{Keyword: "mattress toppers", Category: "home", Subcategory: "comfort", Intent: model.IntentGeneral, PriceMin: 50, PriceMax: 300, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 3},

	// Office
	{Keyword: "standing desks", Category: "furniture", Subcategory: "office", Intent: model.IntentWork, PriceMin: 200, PriceMax: 800, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 5},
	{Keyword: "ergonomic office chairs", Category: "furniture", Subcategory: "office", Intent: model.IntentWork, PriceMin: 150, PriceMax: 1200, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 5},
	{Keyword: "desk lamps", Category: "furniture", Subcategory: "office", Intent: model.IntentWork, PriceMin: 20, PriceMax: 120, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "monitor arms", Category: "furniture", Subcategory: "office", Intent: model.IntentWork, PriceMin: 30, PriceMax: 200, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 3},
	{Keyword: "paper shredders", Category: "furniture", Subcategory: "office", Intent: model.IntentWork, PriceMin: 40, PriceMax: 200, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 2},

	// Fitness
	{Keyword: "fitness trackers", Category: "fitness", Subcategory: "wearables", Intent: model.IntentFitness, PriceMin: 40, PriceMax: 400, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 4},
	{Keyword: "smartwatches for running", Category: "fitness", Subcategory: "wearables", Intent: model.IntentFitness, PriceMin: 150, PriceMax: 800, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 5},
	{Keyword: "adjustable dumbbells", Category: "fitness", Subcategory: "strength", Intent: model.IntentFitness, PriceMin: 100, PriceMax: 600, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 4},
	{Keyword: "resistance bands", Category: "fitness", Subcategory: "strength", Intent: model.IntentFitness, PriceMin: 15, PriceMax: 60, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "exercise bikes", Category: "fitness", Subcategory: "cardio", Intent: model.IntentFitness, PriceMin: 200, PriceMax: 1500, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 5},
	{Keyword: "treadmills under 1000", Category: "fitness", Subcategory: "cardio", Intent: model.IntentFitness, PriceMin: 400, PriceMax: 1000, ReviewCoverage: 4, AmazonDepth: 3, Monetization: 5},
	{Keyword: "massage guns", Category: "fitness", Subcategory: "recovery", Intent: model.IntentFitness, PriceMin: 50, PriceMax: 400, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "foam rollers", Category: "fitness", Subcategory: "recovery", Intent: model.IntentFitness, PriceMin: 15, PriceMax: 80, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "yoga mats", Category: "fitness", Subcategory: "recovery", Intent: model.IntentFitness, PriceMin: 20, PriceMax: 120, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},

	// Travel
	{Keyword: "carry on luggage", Category: "travel", Subcategory: "luggage", Intent: model.IntentTravel, PriceMin: 80, PriceMax: 500, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 4},
	{Keyword: "travel backpacks", Category: "travel", Subcategory: "luggage", Intent: model.IntentTravel, PriceMin: 50, PriceMax: 300, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "packing cubes", Category: "travel", Subcategory: "luggage", Intent: model.IntentTravel, PriceMin: 15, PriceMax: 60, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "travel pillows", Category: "travel", Subcategory: "accessories", Intent: model.IntentTravel, PriceMin: 15, PriceMax: 70, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "portable chargers", Category: "travel", Subcategory: "accessories", Intent: model.IntentTravel, PriceMin: 20, PriceMax: 150, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "travel adapters", Category: "travel", Subcategory: "accessories", Intent: model.IntentTravel, PriceMin: 10, PriceMax: 50, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "noise cancelling earplugs", Category: "travel", Subcategory: "accessories", Intent: model.IntentTravel, PriceMin: 10, PriceMax: 60, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 2},

	// Outdoors
	{Keyword: "camping tents", Category: "outdoors", Subcategory: "camping", Intent: model.IntentTravel, PriceMin: 80, PriceMax: 600, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 4},
	{Keyword: "sleeping bags", Category: "outdoors", Subcategory: "camping", Intent: model.IntentTravel, PriceMin: 40, PriceMax: 400, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 3},
	{Keyword: "camping stoves", Category: "outdoors", Subcategory: "camping", Intent: model.IntentTravel, PriceMin: 30, PriceMax: 200, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 3},
	{Keyword: "hiking boots", Category: "outdoors", Subcategory: "hiking", Intent: model.IntentFitness, PriceMin: 80, PriceMax: 300, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 4},
	{Keyword: "trekking poles", Category: "outdoors", Subcategory: "hiking", Intent: model.IntentFitness, PriceMin: 25, PriceMax: 150, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 2},
	{Keyword: "hydration packs", Category: "outdoors", Subcategory: "hiking", Intent: model.IntentFitness, PriceMin: 25, PriceMax: 150, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 2},
	{Keyword: "electric coolers", Category: "outdoors", Subcategory: "camping", Intent: model.IntentTravel, PriceMin: 150, PriceMax: 800, ReviewCoverage: 3, AmazonDepth: 3, Monetization: 4},

	// Photography and creator
	{Keyword: "mirrorless cameras for beginners", Category: "electronics", Subcategory: "photography", Intent: model.IntentCreative, PriceMin: 500, PriceMax: 1500, ReviewCoverage: 5, AmazonDepth: 3, Monetization: 5},
	{Keyword: "camera tripods", Category: "electronics", Subcategory: "photography", Intent: model.IntentCreative, PriceMin: 30, PriceMax: 300, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "ring lights", Category: "electronics", Subcategory: "photography", Intent: model.IntentCreative, PriceMin: 20, PriceMax: 150, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "drones under 500", Category: "electronics", Subcategory: "photography", Intent: model.IntentCreative, PriceMin: 150, PriceMax: 500, ReviewCoverage: 4, AmazonDepth: 3, Monetization: 5},
	{Keyword: "action cameras", Category: "electronics", Subcategory: "photography", Intent: model.IntentTravel, PriceMin: 150, PriceMax: 550, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 4},

	// Personal care
	{Keyword: "electric toothbrushes", Category: "personal_care", Subcategory: "dental", Intent: model.IntentGeneral, PriceMin: 30, PriceMax: 300, ReviewCoverage: 5, AmazonDepth: 5, Monetization: 4},
	{Keyword: "water flossers", Category: "personal_care", Subcategory: "dental", Intent: model.IntentGeneral, PriceMin: 25, PriceMax: 120, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "hair dryers", Category: "personal_care", Subcategory: "hair", Intent: model.IntentGeneral, PriceMin: 30, PriceMax: 500, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 4},
	{Keyword: "beard trimmers", Category: "personal_care", Subcategory: "grooming", Intent: model.IntentGeneral, PriceMin: 25, PriceMax: 150, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "electric shavers", Category: "personal_care", Subcategory: "grooming", Intent: model.IntentGeneral, PriceMin: 40, PriceMax: 350, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 4},

	// Pets
	{Keyword: "automatic cat feeders", Category: "pets", Subcategory: "cat", Intent: model.IntentGeneral, PriceMin: 40, PriceMax: 200, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 3},
	{Keyword: "dog gps trackers", Category: "pets", Subcategory: "dog", Intent: model.IntentGeneral, PriceMin: 30, PriceMax: 150, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 3},
	{Keyword: "pet cameras", Category: "pets", Subcategory: "dog", Intent: model.IntentGeneral, PriceMin: 40, PriceMax: 250, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 3},
	{Keyword: "dog beds", Category: "pets", Subcategory: "dog", Intent: model.IntentGeneral, PriceMin: 25, PriceMax: 200, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},

	// Baby
	{Keyword: "baby monitors", Category: "baby", Subcategory: "nursery", Intent: model.IntentGeneral, PriceMin: 50, PriceMax: 350, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 4},
	{Keyword: "convertible car seats", Category: "baby", Subcategory: "gear", Intent: model.IntentGeneral, PriceMin: 100, PriceMax: 500, ReviewCoverage: 5, AmazonDepth: 4, Monetization: 4},
	{Keyword: "baby carriers", Category: "baby", Subcategory: "gear", Intent: model.IntentTravel, PriceMin: 40, PriceMax: 200, ReviewCoverage: 4, AmazonDepth: 4, Monetization: 3},
	{Keyword: "bottle warmers", Category: "baby", Subcategory: "feeding", Intent: model.IntentGeneral, PriceMin: 20, PriceMax: 80, ReviewCoverage: 3, AmazonDepth: 4, Monetization: 2},

	// Auto
	{Keyword: "dash cams", Category: "auto", Subcategory: "electronics", Intent: model.IntentGeneral, PriceMin: 50, PriceMax: 300, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 4},
	{Keyword: "car jump starters", Category: "auto", Subcategory: "tools", Intent: model.IntentGeneral, PriceMin: 50, PriceMax: 200, ReviewCoverage: 4, AmazonDepth: 5, Monetization: 3},
	{Keyword: "car vacuum cleaners", Category: "auto", Subcategory: "tools", Intent: model.IntentGeneral, PriceMin: 25, PriceMax: 120, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
	{Keyword: "tire inflators", Category: "auto", Subcategory: "tools", Intent: model.IntentGeneral, PriceMin: 30, PriceMax: 120, ReviewCoverage: 3, AmazonDepth: 5, Monetization: 2},
}

// LoadPool returns DefaultPool, or the YAML pool at path when path is set.
// The file is a top-level list of candidates.
func LoadPool(path string) ([]model.NicheCandidate, error) {
	if path == "" {
		return DefaultPool, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "niche: read pool %s", path)
	}

	var pool []model.NicheCandidate
	if err := yaml.Unmarshal(data, &pool); err != nil {
		return nil, eris.Wrapf(err, "niche: parse pool %s", path)
	}
	if len(pool) == 0 {
		return nil, eris.Errorf("niche: pool %s is empty", path)
	}
	return pool, nil
}
