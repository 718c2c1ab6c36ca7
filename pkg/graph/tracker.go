package graph

import "fmt"

// ReplacedArgs carries the (all-optional) arguments to Tracker.Replaced.
// A nil slice/map for any field means "nothing to remove/add here",
// matching spec.md §4.1's default-absent semantics.
type ReplacedArgs[P comparable, Tg comparable] struct {
	OldPaths       []P
	NewPaths       []P
	OldTasks       []Task[P]
	NewTasks       []Task[P]
	NewTaggedTasks map[Task[P]][]Tg
}

// Tracker is an immutable-by-replacement bipartite graph of paths and
// tasks, with secondary indexes by tag, input path, and output path. The
// zero value is a valid empty Tracker.
type Tracker[P comparable, Tg comparable] struct {
	paths         map[P]struct{}
	tasks         map[Task[P]]struct{}
	tasksByTag    map[Tg]map[Task[P]]struct{}
	tasksByInput  map[P]map[Task[P]]struct{}
	tasksByOutput map[P]map[Task[P]]struct{}
}

// New returns an empty Tracker.
func New[P comparable, Tg comparable]() *Tracker[P, Tg] {
	return &Tracker[P, Tg]{}
}

// Paths returns every path currently tracked.
func (t *Tracker[P, Tg]) Paths() []P {
	out := make([]P, 0, len(t.paths))
	for p := range t.paths {
		out = append(out, p)
	}

	return out
}

// Tasks returns every task currently tracked.
func (t *Tracker[P, Tg]) Tasks() []Task[P] {
	out := make([]Task[P], 0, len(t.tasks))
	for task := range t.tasks {
		out = append(out, task)
	}

	return out
}

// PathCount reports the number of tracked paths.
func (t *Tracker[P, Tg]) PathCount() int { return len(t.paths) }

// TaskCount reports the number of tracked tasks.
func (t *Tracker[P, Tg]) TaskCount() int { return len(t.tasks) }

// HasPath reports whether p is tracked.
func (t *Tracker[P, Tg]) HasPath(p P) bool {
	_, ok := t.paths[p]

	return ok
}

// HasTask reports whether task is tracked.
func (t *Tracker[P, Tg]) HasTask(task Task[P]) bool {
	_, ok := t.tasks[task]

	return ok
}

// TaggedTasks returns a snapshot of the tag index: tag -> tasks carrying
// that tag. Untagged tasks are omitted, matching spec.md §4.1.
func (t *Tracker[P, Tg]) TaggedTasks() map[Tg][]Task[P] {
	out := make(map[Tg][]Task[P], len(t.tasksByTag))
	for tag, tasks := range t.tasksByTag {
		bucket := make([]Task[P], 0, len(tasks))
		for task := range tasks {
			bucket = append(bucket, task)
		}

		out[tag] = bucket
	}

	return out
}

// TasksByTags returns the intersection of the tag buckets named by tags.
// An empty input yields an empty result; a tag with no tasks (or a tag
// never seen) also yields an empty result — no error.
func (t *Tracker[P, Tg]) TasksByTags(tags []Tg) []Task[P] {
	return intersectBuckets(tags, func(tag Tg) map[Task[P]]struct{} {
		return t.tasksByTag[tag]
	})
}

// TasksByInputs returns the intersection, over paths, of the tasks that
// consume each path as an input.
func (t *Tracker[P, Tg]) TasksByInputs(paths []P) []Task[P] {
	return intersectBuckets(paths, func(p P) map[Task[P]]struct{} {
		return t.tasksByInput[p]
	})
}

// TasksByOutputs returns the intersection, over paths, of the tasks that
// produce each path as an output.
func (t *Tracker[P, Tg]) TasksByOutputs(paths []P) []Task[P] {
	return intersectBuckets(paths, func(p P) map[Task[P]]struct{} {
		return t.tasksByOutput[p]
	})
}

// intersectBuckets computes the intersection of bucket(k) over keys,
// returning the empty set for zero keys and the bucket itself, copied,
// for exactly one key.
func intersectBuckets[K comparable, P comparable](keys []K, bucket func(K) map[Task[P]]struct{}) []Task[P] {
	if len(keys) == 0 {
		return nil
	}

	acc := copyTaskSet(bucket(keys[0]))

	for _, k := range keys[1:] {
		next := bucket(k)

		for task := range acc {
			if _, ok := next[task]; !ok {
				delete(acc, task)
			}
		}
	}

	out := make([]Task[P], 0, len(acc))
	for task := range acc {
		out = append(out, task)
	}

	return out
}

func copyTaskSet[P comparable](in map[Task[P]]struct{}) map[Task[P]]struct{} {
	out := make(map[Task[P]]struct{}, len(in))
	for task := range in {
		out[task] = struct{}{}
	}

	return out
}

// Valid reports an error if the Tracker violates one of spec.md §3's
// invariants it checks: every path referenced by a task is tracked, and
// the tag index holds only tracked tasks. The reverse indexes are not
// checked; Replaced rebuilds them from the task set on every call.
func (t *Tracker[P, Tg]) Valid() error {
	for task := range t.tasks {
		for _, p := range task.InputPaths() {
			if _, ok := t.paths[p]; !ok {
				return fmt.Errorf("%w: task input path not tracked", ErrInvalidTracker)
			}
		}

		for _, p := range task.OutputPaths() {
			if _, ok := t.paths[p]; !ok {
				return fmt.Errorf("%w: task output path not tracked", ErrInvalidTracker)
			}
		}
	}

	for tag, tasks := range t.tasksByTag {
		for task := range tasks {
			if _, ok := t.tasks[task]; !ok {
				return fmt.Errorf("%w: tag %v holds untracked task", ErrInvalidTracker, tag)
			}
		}
	}

	return nil
}

// Replaced returns a new Tracker reflecting the requested changes, per
// spec.md §4.1:
//  1. paths = (paths \ OldPaths) ∪ NewPaths
//  2. tasks = (tasks \ OldTasks) ∪ NewTasks ∪ keys(NewTaggedTasks)
//  3. tag index rebuilt: drop OldTasks' occurrences, then insert every
//     (task, tags) pair from NewTaggedTasks; empty buckets are dropped.
//  4. both reverse indexes rebuilt from scratch over the new task/path
//     sets.
//
// Replaced never mutates the receiver.
func (t *Tracker[P, Tg]) Replaced(args ReplacedArgs[P, Tg]) *Tracker[P, Tg] {
	oldPaths := toSet(args.OldPaths)
	oldTasks := toSet(args.OldTasks)

	next := &Tracker[P, Tg]{
		paths: make(map[P]struct{}, len(t.paths)+len(args.NewPaths)),
	}

	for p := range t.paths {
		if _, removed := oldPaths[p]; !removed {
			next.paths[p] = struct{}{}
		}
	}

	for _, p := range args.NewPaths {
		next.paths[p] = struct{}{}
	}

	next.tasks = make(map[Task[P]]struct{}, len(t.tasks)+len(args.NewTasks))

	for task := range t.tasks {
		if _, removed := oldTasks[task]; !removed {
			next.tasks[task] = struct{}{}
		}
	}

	for _, task := range args.NewTasks {
		next.tasks[task] = struct{}{}
	}

	for task := range args.NewTaggedTasks {
		next.tasks[task] = struct{}{}
	}

	next.tasksByTag = make(map[Tg]map[Task[P]]struct{}, len(t.tasksByTag))

	for tag, tasks := range t.tasksByTag {
		bucket := make(map[Task[P]]struct{}, len(tasks))

		for task := range tasks {
			if _, removed := oldTasks[task]; removed {
				continue
			}

			bucket[task] = struct{}{}
		}

		if len(bucket) > 0 {
			next.tasksByTag[tag] = bucket
		}
	}

	for task, tags := range args.NewTaggedTasks {
		for _, tag := range tags {
			bucket, ok := next.tasksByTag[tag]
			if !ok {
				bucket = make(map[Task[P]]struct{})
				next.tasksByTag[tag] = bucket
			}

			bucket[task] = struct{}{}
		}
	}

	next.tasksByInput = make(map[P]map[Task[P]]struct{}, len(next.paths))
	next.tasksByOutput = make(map[P]map[Task[P]]struct{}, len(next.paths))

	for p := range next.paths {
		next.tasksByInput[p] = make(map[Task[P]]struct{})
		next.tasksByOutput[p] = make(map[Task[P]]struct{})
	}

	for task := range next.tasks {
		for _, p := range task.InputPaths() {
			if bucket, ok := next.tasksByInput[p]; ok {
				bucket[task] = struct{}{}
			}
		}

		for _, p := range task.OutputPaths() {
			if bucket, ok := next.tasksByOutput[p]; ok {
				bucket[task] = struct{}{}
			}
		}
	}

	return next
}

func toSet[T comparable](items []T) map[T]struct{} {
	if len(items) == 0 {
		return nil
	}

	out := make(map[T]struct{}, len(items))
	for _, v := range items {
		out[v] = struct{}{}
	}

	return out
}
