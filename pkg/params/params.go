package params

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/james-see/stablearp/pkg/debug"
)

// Algo selects the note-selection strategy
type Algo int

const (
	AlgoLinear Algo = iota
	AlgoRandom
)

var algoNames = []string{"linear", "random"}

func (a Algo) String() string {
	if a < 0 || int(a) >= len(algoNames) {
		return fmt.Sprintf("Algo(%d)", int(a))
	}
	return algoNames[a]
}

// ParseAlgo parses "linear" or "random"
func ParseAlgo(s string) (Algo, error) {
	for i, name := range algoNames {
		if strings.EqualFold(s, name) {
			return Algo(i), nil
		}
	}
	return 0, fmt.Errorf("unknown algorithm %q (want linear or random)", s)
}

// Algos lists every algorithm
func Algos() []Algo {
	return []Algo{AlgoLinear, AlgoRandom}
}

// Direction of linear traversal
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection parses "up" or "down"
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, fmt.Errorf("unknown direction %q (want up or down)", s)
}

// Speed is the note rate: how many timeline slots fit in one beat
type Speed int

const (
	Sixteenth Speed = iota
	Eighth
	Quarter
	Half
)

var speedNames = []string{"1/16", "1/8", "1/4", "1/2"}

func (s Speed) String() string {
	if s < 0 || int(s) >= len(speedNames) {
		return fmt.Sprintf("Speed(%d)", int(s))
	}
	return speedNames[s]
}

// ParseSpeed accepts "1/16", "16", "sixteenth" and the like
func ParseSpeed(s string) (Speed, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1/16", "16", "16th", "sixteenth":
		return Sixteenth, nil
	case "1/8", "8", "8th", "eighth":
		return Eighth, nil
	case "1/4", "4", "4th", "quarter":
		return Quarter, nil
	case "1/2", "2", "half":
		return Half, nil
	}
	return 0, fmt.Errorf("unknown speed %q (want 1/16, 1/8, 1/4 or 1/2)", s)
}

// Speeds lists every speed, fastest first
func Speeds() []Speed {
	return []Speed{Sixteenth, Eighth, Quarter, Half}
}

// PerBeat returns slots per quarter-note beat
func (s Speed) PerBeat() float64 {
	switch s {
	case Sixteenth:
		return 4
	case Eighth:
		return 2
	case Quarter:
		return 1
	case Half:
		return 0.5
	}
	return 4
}

// Slot converts a position in beats to a timeline slot
func (s Speed) Slot(beats float64) float64 {
	return beats * s.PerBeat()
}

// Beats converts a timeline slot back to beats
func (s Speed) Beats(slot float64) float64 {
	return slot / s.PerBeat()
}

// RandomParameters configure the random strategy
type RandomParameters struct {
	Seed *Value[int64]
}

// PickNewKey replaces the seed with a fresh random value
func (r *RandomParameters) PickNewKey() {
	key := rand.Int64()
	debug.Log("params", "new seed key %d", key)
	r.Seed.Set(key)
}

// LinearParameters configure the linear strategy
type LinearParameters struct {
	Direction *Value[Direction]
	Zigzag    *Value[bool]
}

// Parameters is the full set of arpeggiator settings
type Parameters struct {
	Algorithm *Value[Algo]
	Speed     *Value[Speed]
	Random    RandomParameters
	Linear    LinearParameters
}

// New returns parameters with defaults: random algorithm, 1/16, seed 0, up, no zigzag
func New() *Parameters {
	return &Parameters{
		Algorithm: NewValue(AlgoRandom),
		Speed:     NewValue(Sixteenth),
		Random: RandomParameters{
			Seed: NewValue(int64(0)),
		},
		Linear: LinearParameters{
			Direction: NewValue(Up),
			Zigzag:    NewValue(false),
		},
	}
}

// Snapshot is a plain copy of Parameters, for display and serialization
type Snapshot struct {
	Algorithm Algo
	Speed     Speed
	Seed      int64
	Direction Direction
	Zigzag    bool
}

// Snapshot copies the current values
func (p *Parameters) Snapshot() Snapshot {
	return Snapshot{
		Algorithm: p.Algorithm.Get(),
		Speed:     p.Speed.Get(),
		Seed:      p.Random.Seed.Get(),
		Direction: p.Linear.Direction.Get(),
		Zigzag:    p.Linear.Zigzag.Get(),
	}
}

// Apply sets every value from s, notifying listeners of what changed
func (p *Parameters) Apply(s Snapshot) {
	p.Random.Seed.Set(s.Seed)
	p.Linear.Direction.Set(s.Direction)
	p.Linear.Zigzag.Set(s.Zigzag)
	p.Speed.Set(s.Speed)
	p.Algorithm.Set(s.Algorithm)
}
