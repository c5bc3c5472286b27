package server

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
)

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "blue", "red", "green", "bright", "gentle",
	"brave", "calm", "swift", "silent", "noisy", "bouncy", "fuzzy", "plucky", "merry", "peppy",
}

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"mouse", "ferret", "weasel", "beaver", "seahorse", "starfish", "dolphin", "whale", "narwhal",
	"penguin", "flamingo", "pelican", "swallow", "sparrow", "robin", "toucan", "parrot", "canary",
}

// generateRoomID creates a memorable room id of the form
// adjective-animal-NNNN, retrying until it does not collide with a live
// room.
func (reg *Registry) generateRoomID() string {
	for {
		adj := adjectives[randomIndex(len(adjectives))]
		animal := animals[randomIndex(len(animals))]
		id := fmt.Sprintf("%s-%s-%04d", adj, animal, randomIndex(10000))

		if _, ok := reg.rooms[id]; !ok {
			return id
		}
	}
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		slog.Error("random source failed", "error", err)
		panic(err)
	}
	return int(n.Int64())
}
