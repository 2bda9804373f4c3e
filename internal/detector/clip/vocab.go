package clip

// toolVocabulary is the canonical label set for zero-shot classification.
// Scores are computed per phrasing and reduced back to these labels.
var toolVocabulary = []string{
	"hammer", "drill", "wrench", "screwdriver", "pliers",
	"saw", "measuring tape", "level", "chisel", "clamp",
	"screw", "nail", "bolt", "nut", "cable", "wire",
	"pipe", "tube", "connector", "adapter", "socket",
	"ratchet", "torque wrench", "multimeter", "flashlight",
	"knife", "scissors", "tape measure", "ruler", "protractor",
	"tool", "hand tool", "power tool", "construction tool",
	"workshop tool", "repair tool", "maintenance tool",
	"cutting tool", "measuring tool", "fastening tool",
	"spanner", "mallet", "crowbar", "pry bar", "file", "rasp",
	"vise", "bench vise", "C-clamp", "spring clamp", "bar clamp",
	"drill bit", "screwdriver bit", "hex key", "allen wrench",
	"adjustable wrench", "combination wrench", "box wrench",
	"crescent wrench", "pipe wrench", "monkey wrench",
}

// phrasingTemplates are applied to every label; several phrasings of the
// same label score much more robustly than the bare label text. %s is the
// label.
var phrasingTemplates = []string{
	"a photo of a %s",
	"a %s on a workbench",
	"a %s in someone's hand",
	"a close-up of a %s",
	"a %s tool",
}
