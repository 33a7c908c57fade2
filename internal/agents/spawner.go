// Agent spawning — creates arena populations with role-appropriate stat
// spreads and stable ids.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/strategos/internal/decision"
)

// idNamespace anchors deterministic agent ids: the same seed and spawn
// order always produce the same uuids, which keeps whole simulation runs
// reproducible.
var idNamespace = uuid.MustParse("7a1c3b58-9f02-4e4d-8c11-2f6f9be0a5d4")

// Spawner creates agents for the arena.
type Spawner struct {
	rng  *rand.Rand
	seed int64
	seq  uint64
}

// NewSpawner creates an agent spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:  rand.New(rand.NewSource(seed + 300)),
		seed: seed,
	}
}

// SetNextSeq sets the next spawn sequence number (used when restoring from DB).
func (s *Spawner) SetNextSeq(seq uint64) {
	s.seq = seq
}

// SpawnPopulation creates a batch of agents with roles spread evenly across
// the enum.
func (s *Spawner) SpawnPopulation(count int, round uint64) []*Agent {
	out := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		role := decision.Role(s.seq % 5)
		out = append(out, s.spawnOne(role, round))
	}
	return out
}

// SpawnWithRole creates one agent of a specific role.
func (s *Spawner) SpawnWithRole(role decision.Role, round uint64) *Agent {
	return s.spawnOne(role, round)
}

func (s *Spawner) spawnOne(role decision.Role, round uint64) *Agent {
	id := uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%d/%d", s.seed, s.seq))).String()
	s.seq++

	return &Agent{
		ID:        id,
		Name:      s.generateName(),
		Role:      role,
		Stats:     s.statsForRole(role),
		BornRound: round,
		Alive:     true,
	}
}

// statsForRole draws stats from role-shaped ranges: attackers hit hard,
// defenders last longer, movement agents run faster, cores carry deep
// energy reserves.
func (s *Spawner) statsForRole(role decision.Role) Stats {
	base := Stats{
		Health:   60 + s.rng.Float64()*30,
		Energy:   50 + s.rng.Float64()*40,
		Damage:   15 + s.rng.Float64()*15,
		Speed:    10 + s.rng.Float64()*10,
		Position: 3 + s.rng.Float64()*4,
	}

	switch role {
	case decision.RoleAttack:
		base.Damage = 25 + s.rng.Float64()*20
		base.Health = 50 + s.rng.Float64()*25
	case decision.RoleDefense:
		base.Health = 75 + s.rng.Float64()*25
		base.Damage = 10 + s.rng.Float64()*10
	case decision.RoleControl:
		base.Energy = 65 + s.rng.Float64()*35
		base.Position = 5 + s.rng.Float64()*4
	case decision.RoleMovement:
		base.Speed = 18 + s.rng.Float64()*12
		base.Health = 50 + s.rng.Float64()*25
	case decision.RoleCore:
		base.Energy = 70 + s.rng.Float64()*30
		base.Health = 65 + s.rng.Float64()*25
	}
	return base
}

func (s *Spawner) generateName() string {
	first := callsigns[s.rng.Intn(len(callsigns))]
	last := epithets[s.rng.Intn(len(epithets))]
	return first + " " + last
}

// Name pools for procedural generation.
var callsigns = []string{
	"Aldric", "Bram", "Cedra", "Doran", "Erik", "Freya", "Gareth",
	"Halvard", "Iris", "Jasper", "Kael", "Lena", "Magnus", "Nessa",
	"Oswin", "Petra", "Quinn", "Runa", "Stellan", "Thea", "Ulric",
	"Vera", "Wren", "Yorick", "Zara", "Arlen", "Birgit", "Cade",
}

var epithets = []string{
	"Voss", "Thornwood", "Blackwood", "Ashford", "Ironhand", "Dunmore",
	"Stormcrow", "Frostborn", "Ravenmoor", "Wolfsbane", "Stoneheart",
	"Brightwater", "Redforge", "Windholm", "Goldhaven", "Steelworth",
	"Embercroft", "Holloway", "Dawnridge", "Mercer", "Ward", "Cross",
}
