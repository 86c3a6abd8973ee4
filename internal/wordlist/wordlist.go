// Package wordlist builds short, memorable identifiers out of word lists.
// The relay uses it for placeholder display names and the CLI uses it for
// room IDs when the user does not pick one.
package wordlist

import (
	"crypto/rand"
	"log/slog"
	"math/big"
	"strings"
)

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "blue", "red", "green", "bright", "gentle",
	"brave", "calm", "swift", "silent", "noisy", "bouncy", "fuzzy", "plucky", "merry", "peppy",
}

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"chick", "duckling", "fawn", "foal", "lamb", "calf", "porcupine", "raccoon", "skunk", "mole",
	"mouse", "ferret", "weasel", "beaver", "seahorse", "starfish", "dolphin", "whale", "narwhal",
	"penguin", "flamingo", "pelican", "swallow", "sparrow", "robin", "toucan", "parrot", "canary",
}

// places keeps room IDs on theme: people share where they are.
var places = []string{
	"harbor", "summit", "meadow", "canyon", "ridge", "valley", "island", "lagoon", "glacier", "delta",
	"orchard", "plaza", "bridge", "lighthouse", "station", "market", "garden", "forest", "beach", "dune",
	"crossing", "pier", "trail", "grove", "cove", "mesa", "fjord", "prairie", "oasis", "boulevard",
}

var things = []string{
	"sunbeam", "stardust", "pepper", "muffin", "bubble", "sprout", "glimmer", "whisker", "echo", "jelly",
	"marble", "maple", "cocoa", "hazel", "breeze", "willow", "ember", "cinnamon", "lantern", "pebble",
	"poppy", "pixel", "biscuit", "cupcake", "nugget", "toffee", "rocket", "comet", "orbit", "nebula",
}

// DisplayName returns an "adjective-animal" placeholder such as "cozy-otter".
func DisplayName() string {
	return pick(adjectives) + "-" + pick(animals)
}

// RoomID returns a four word identifier (adjective-animal-thing-place). When
// taken is non-nil, generation repeats until taken reports the ID as free.
func RoomID(taken func(string) bool) string {
	for {
		id := strings.Join([]string{pick(adjectives), pick(animals), pick(things), pick(places)}, "-")
		if taken == nil || !taken(id) {
			return id
		}
	}
}

func pick(words []string) string {
	return words[randomIndex(len(words))]
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		slog.Error("random index failed, using first word", "err", err)
		return 0
	}
	return int(n.Int64())
}
