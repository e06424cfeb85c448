// Package fuzzing explores the state space of stateful components by
// running random sequences of steps against them.
package fuzzing

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"arena-sheets/internal/telemetry"
)

// Target is a component wrapped with the state needed to check it. Every
// possible mutation of the target is a "step", fuzzing deterministically
// picks random steps (and their inputs) and checks the invariants of the
// component after each one.
//
// Steps are the exported methods with the signature:
//
// `Step*(ctx context.Context, res *Results) error`
//
// A violated invariant is recorded with res.Fail. A returned error means
// the step could not run at all (ex. the test setup failed) and stops the
// path.
//
// A method with the signature:
//
// `OnEnd(ctx context.Context, res *Results)`
//
// is called at the end of every path.
type Target interface{}

func getTargetMethods(target Target) (steps []reflect.Method, onEnd *reflect.Method) {
	ctxType := reflect.TypeOf((*context.Context)(nil)).Elem()
	resType := reflect.TypeOf(&Results{})
	errType := reflect.TypeOf((*error)(nil)).Elem()

	t := reflect.TypeOf(target)
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		methodType := method.Type

		if methodType.NumIn() != 3 || methodType.In(1) != ctxType || methodType.In(2) != resType {
			continue
		}
		if method.Name == "OnEnd" && methodType.NumOut() == 0 {
			onEnd = &method
			continue
		}
		if !strings.HasPrefix(method.Name, "Step") {
			continue
		}
		if methodType.NumOut() != 1 || methodType.Out(0) != errType {
			continue
		}
		steps = append(steps, method)
	}

	return steps, onEnd
}

// Results collects the invariant violations of a path.
type Results struct {
	failures []error
}

func (r *Results) Fail(err error) {
	r.failures = append(r.failures, err)
}

func (r *Results) Failed() bool {
	return len(r.failures) > 0
}

func (r *Results) Err() error {
	if len(r.failures) == 0 {
		return nil
	}
	var out strings.Builder
	out.WriteString("checks failed:\n")
	for _, err := range r.failures {
		fmt.Fprintf(&out, "\t- %v\n", err)
	}
	return fmt.Errorf("%s", out.String())
}

type TargetProvider interface {
	CreateTarget(tel telemetry.API, rndm *rand.Rand) (Target, error)
}

// Path is a seed and a step count, together they replay a fuzzing run
// exactly.
type Path struct {
	Seed  int64
	Steps int64
}

func (p Path) String() string {
	return fmt.Sprintf("%d:%d", p.Seed, p.Steps)
}

// Set parses "<seed>:<steps>", it lets a Path be used as a command line flag.
func (p *Path) Set(text string) error {
	seed, steps, ok := strings.Cut(text, ":")
	if !ok {
		return fmt.Errorf("parse path %q: expected <seed>:<steps>", text)
	}
	var err error
	p.Seed, err = strconv.ParseInt(seed, 10, 64)
	if err != nil {
		return fmt.Errorf("parse path seed: %w", err)
	}
	p.Steps, err = strconv.ParseInt(steps, 10, 64)
	if err != nil {
		return fmt.Errorf("parse path steps: %w", err)
	}
	return nil
}

func (p *Path) Type() string {
	return "path"
}

// F is a fuzzing job on a given fuzz target.
type F struct {
	tel      telemetry.API
	provider TargetProvider
	steps    []reflect.Method
	onEnd    *reflect.Method

	minSteps int64
	maxSteps int64
}

func New(tel telemetry.API, provider TargetProvider, minSteps, maxSteps int64) (F, error) {
	if minSteps < 1 || maxSteps <= minSteps {
		return F{}, fmt.Errorf("invalid step range [%d, %d)", minSteps, maxSteps)
	}

	target, err := provider.CreateTarget(telemetry.NoopAPI{}, rand.New(rand.NewSource(0)))
	if err != nil {
		return F{}, err
	}
	steps, onEnd := getTargetMethods(target)
	if len(steps) == 0 {
		return F{}, fmt.Errorf("target %T has no steps", target)
	}

	return F{
		tel:      telemetry.NewScopedAPI("fuzzer", tel),
		provider: provider,
		steps:    steps,
		onEnd:    onEnd,
		minSteps: minSteps,
		maxSteps: maxSteps,
	}, nil
}

func (f F) call(method reflect.Method, target Target, ctx context.Context, results *Results) []reflect.Value {
	return method.Func.Call([]reflect.Value{
		reflect.ValueOf(target),
		reflect.ValueOf(ctx),
		reflect.ValueOf(results),
	})
}

// Replay runs a single path, the returned Results hold the violated
// invariants.
func (f F) Replay(ctx context.Context, tel telemetry.API, path Path) (*Results, error) {
	rndm := rand.New(rand.NewSource(path.Seed))
	target, err := f.provider.CreateTarget(tel, rndm)
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}

	results := &Results{}
	for i := int64(0); i < path.Steps; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		step := f.steps[rndm.Intn(len(f.steps))]
		out := f.call(step, target, ctx, results)
		if err, _ := out[0].Interface().(error); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Name, err)
		}
	}
	if f.onEnd != nil {
		f.call(*f.onEnd, target, ctx, results)
	}
	return results, nil
}

// RandomPath derives a path from a seed, the step count is drawn between
// the job's bounds.
func (f F) RandomPath(seed int64) Path {
	rndm := rand.New(rand.NewSource(seed))
	return Path{
		Seed:  seed,
		Steps: f.minSteps + rndm.Int63n(f.maxSteps-f.minSteps),
	}
}

// Explore runs random paths on every cpu until one fails or ctx is done,
// the failing path is returned so it can be replayed.
func (f F) Explore(ctx context.Context) (Path, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		count   uint64
		once    sync.Once
		failed  Path
		failErr error
		wg      sync.WaitGroup
	)

	worker := func() {
		defer wg.Done()
		for ctx.Err() == nil {
			path := f.RandomPath(rand.Int63())
			results, err := f.Replay(ctx, telemetry.NoopAPI{}, path)
			if ctx.Err() != nil {
				return
			}
			if err == nil && results.Failed() {
				err = results.Err()
			}
			if err != nil {
				once.Do(func() {
					failed = path
					failErr = err
					cancel()
				})
				return
			}
			atomic.AddUint64(&count, 1)
		}
	}

	cpus := runtime.NumCPU()
	f.tel.ReportDebug("starting fuzzing on all threads", telemetry.KV{Key: "count", Value: cpus})
	wg.Add(cpus)
	for range cpus {
		go worker()
	}

	ticker := time.NewTicker(time.Second * 5)
	defer ticker.Stop()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			if failErr != nil {
				f.tel.ReportBroken("path-failed", failErr, telemetry.KV{Key: "path", Value: failed.String()})
			}
			return failed, failErr
		case <-ticker.C:
			f.tel.ReportCount("paths", int64(atomic.LoadUint64(&count)))
		}
	}
}
