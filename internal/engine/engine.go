package engine

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand"
)

var ErrInvalidTeamCount = errors.New("invalid team count")
var ErrNoPlayers = errors.New("no players to assign")

const (
	MinTeams = 2
	MaxTeams = 10

	CodeLength  = 6
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateCode returns a join code of CodeLength uppercase letters and digits.
func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

func ValidTeamCount(n int) error {
	if n < MinTeams || n > MaxTeams {
		return fmt.Errorf("%w: must be between %d and %d, got %d", ErrInvalidTeamCount, MinTeams, MaxTeams, n)
	}
	return nil
}

// TeamName is the display name of the i-th team, counting from zero.
func TeamName(i int) string {
	return fmt.Sprintf("Team %d", i+1)
}

// Assign shuffles players and deals them round-robin into numTeams buckets.
// The input slice is not modified.
func Assign[T any](players []T, numTeams int, rng *mrand.Rand) ([][]T, error) {
	if err := ValidTeamCount(numTeams); err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}

	shuffled := make([]T, len(players))
	copy(shuffled, players)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	buckets := make([][]T, numTeams)
	for i, p := range shuffled {
		buckets[i%numTeams] = append(buckets[i%numTeams], p)
	}
	return buckets, nil
}
