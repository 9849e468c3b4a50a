package model

import "math/rand/v2"

var adjectives = []string{
	"swift", "bright", "quiet", "bold", "cool", "calm", "wild", "deep",
	"keen", "wise", "pure", "warm", "fresh", "smooth", "sharp", "clear",
}

var nouns = []string{
	"fox", "hawk", "wolf", "bear", "lynx", "eagle", "raven", "otter",
	"spark", "wave", "node", "pixel", "cloud", "forge", "vertex", "prism",
}

// RandomName generates a session name like "swift-fox" or "bright-node".
func RandomName() string {
	return adjectives[rand.IntN(len(adjectives))] + "-" + nouns[rand.IntN(len(nouns))]
}
