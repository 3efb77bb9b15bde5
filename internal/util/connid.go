package util

import (
	"fmt"
	"math/rand/v2"
)

var (
	connVerbs = []string{
		"climbing", "reversing", "coupling", "shunting", "braking",
		"hauling", "coasting", "signalling", "waiting", "departing",
	}
	connNouns = []string{
		"siding", "spur", "junction", "cutting", "viaduct",
		"platform", "tender", "bogie", "points", "gradient",
	}
)

// GenerateConnID returns a short readable id for correlating a connection's log lines
func GenerateConnID() string {
	noun := connNouns[rand.IntN(len(connNouns))]
	verb := connVerbs[rand.IntN(len(connVerbs))]
	return fmt.Sprintf("%s_%s_%04x", noun, verb, rand.IntN(65536))
}
