package fuzzing

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"arena-sheets/internal/telemetry"

	"github.com/stretchr/testify/require"
)

type counterTarget struct {
	value int
	steps int
}

func (c *counterTarget) StepIncrement(ctx context.Context, res *Results) error {
	c.value++
	c.steps++
	return nil
}

func (c *counterTarget) StepDouble(ctx context.Context, res *Results) error {
	c.value *= 2
	c.steps++
	if c.value > 1000 {
		res.Fail(fmt.Errorf("value %d is too large", c.value))
	}
	return nil
}

// not a step, wrong signature
func (c *counterTarget) Reset() {
	c.value = 0
}

type counterProvider struct {
	created *[]*counterTarget
}

func (p counterProvider) CreateTarget(tel telemetry.API, rndm *rand.Rand) (Target, error) {
	target := &counterTarget{}
	if p.created != nil {
		*p.created = append(*p.created, target)
	}
	return target, nil
}

func TestGetTargetMethods(t *testing.T) {
	steps, onEnd := getTargetMethods(&counterTarget{})
	require.Nil(t, onEnd)

	var names []string
	for _, s := range steps {
		names = append(names, s.Name)
	}
	require.ElementsMatch(t, []string{"StepDouble", "StepIncrement"}, names)

	_, onEnd = getTargetMethods(&sheetsTarget{})
	require.NotNil(t, onEnd)
}

func TestReplayIsDeterministic(t *testing.T) {
	var created []*counterTarget
	f, err := New(telemetry.NoopAPI{}, counterProvider{created: &created}, 5, 20)
	require.NoError(t, err)

	path := Path{Seed: 42, Steps: 15}
	first, err := f.Replay(context.Background(), telemetry.NoopAPI{}, path)
	require.NoError(t, err)
	second, err := f.Replay(context.Background(), telemetry.NoopAPI{}, path)
	require.NoError(t, err)

	// New creates a target to discover the steps
	require.Len(t, created, 3)
	require.Equal(t, 15, created[1].steps)
	require.Equal(t, created[1].value, created[2].value)
	require.Equal(t, first.Failed(), second.Failed())
}

func TestPathFlag(t *testing.T) {
	var path Path
	require.NoError(t, path.Set("123:45"))
	require.Equal(t, Path{Seed: 123, Steps: 45}, path)
	require.Equal(t, "123:45", path.String())

	require.Error(t, path.Set("123"))
	require.Error(t, path.Set("a:1"))
}

func TestRandomSwitch(t *testing.T) {
	rndm := rand.New(rand.NewSource(1))
	pick := RandomSwitch(1, 3)
	counts := make([]int, 2)
	for range 4000 {
		counts[pick(rndm)]++
	}
	require.InDelta(t, 1000, counts[0], 150)
	require.InDelta(t, 3000, counts[1], 150)

	require.Panics(t, func() { RandomSwitch() })
	require.Panics(t, func() { RandomSwitch(1, 0) })
}

func TestSheetsTarget(t *testing.T) {
	f, err := New(telemetry.NoopAPI{}, SheetsProvider{}, 20, 80)
	require.NoError(t, err)

	for seed := int64(0); seed < 50; seed++ {
		path := f.RandomPath(seed)
		results, err := f.Replay(context.Background(), telemetry.NoopAPI{}, path)
		require.NoError(t, err, path.String())
		require.NoError(t, results.Err(), path.String())
	}
}
