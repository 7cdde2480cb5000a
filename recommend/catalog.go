package recommend

// Song is a catalog entry.
type Song struct {
	Title  string
	Artist string
	Tags   []string
}

var catalog = []Song{
	{"Blinding Lights", "The Weeknd", []string{"pop", "upbeat", "80s", "night", "energetic", "synth"}},
	{"Nights", "Frank Ocean", []string{"rnb", "moody", "late", "reflective", "chill"}},
	{"Mr. Brightside", "The Killers", []string{"rock", "indie", "upbeat", "anthem", "2000s"}},
	{"bad guy", "Billie Eilish", []string{"pop", "dark", "bass", "quirky"}},
	{"Levitating", "Dua Lipa", []string{"pop", "dance", "feelgood", "upbeat"}},
	{"Lose Yourself", "Eminem", []string{"hiphop", "motivational", "intense", "focus"}},
	{"Claire de Lune", "Debussy", []string{"classical", "piano", "calm", "study", "relax"}},
	{"First Love / Late Spring", "Mitski", []string{"indie", "melancholy", "dreamy"}},
	{"Adore You", "Harry Styles", []string{"pop", "warm", "romantic"}},
	{"HUMBLE.", "Kendrick Lamar", []string{"hiphop", "banger", "confident"}},
	{"Weightless", "Marconi Union", []string{"ambient", "relax", "sleep", "calm"}},
	{"Heat Waves", "Glass Animals", []string{"indie", "pop", "nostalgic", "summer"}},
	{"Titanium", "David Guetta ft. Sia", []string{"edm", "empower", "anthem", "energy"}},
	{"Godspeed", "Frank Ocean", []string{"rnb", "tender", "slow", "emotional"}},
}

// keyword maps a trigger word found anywhere in a prompt to the tags it implies.
type keyword struct {
	word string
	tags []string
}

var keywords = []keyword{
	{"happy", []string{"upbeat", "feelgood", "dance", "anthem"}},
	{"sad", []string{"melancholy", "tender", "reflective"}},
	{"chill", []string{"chill", "calm", "relax", "ambient"}},
	{"study", []string{"study", "calm", "piano", "ambient"}},
	{"focus", []string{"focus", "intense"}},
	{"night", []string{"night", "late"}},
	{"romance", []string{"romantic", "tender", "warm"}},
	{"hype", []string{"banger", "energy", "energetic", "anthem"}},
	{"pop", []string{"pop"}},
	{"rock", []string{"rock"}},
	{"indie", []string{"indie"}},
	{"hiphop", []string{"hiphop"}},
	{"edm", []string{"edm"}},
	{"classical", []string{"classical", "piano"}},
	{"rnb", []string{"rnb"}},
	{"ambient", []string{"ambient"}},
	{"80s", []string{"80s", "synth"}},
	{"summer", []string{"summer", "nostalgic"}},
	{"dark", []string{"dark"}},
}

// knownTags is every tag used by the catalog.
var knownTags = func() map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range catalog {
		for _, t := range s.Tags {
			out[t] = struct{}{}
		}
	}
	return out
}()

// Catalog returns a copy of the song catalog in ranking tie-break order.
func Catalog() []Song {
	out := make([]Song, len(catalog))
	for i, s := range catalog {
		s.Tags = append([]string(nil), s.Tags...)
		out[i] = s
	}
	return out
}
