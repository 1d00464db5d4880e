// Package logging annotates goroutines with pprof labels so that long-lived
// workers, such as the mbox framer's message pump, are attributable in
// profiles.
package logging

import (
	"context"
	"fmt"
	"runtime"
	"runtime/pprof"
	"strconv"
)

// Labels are additional pprof labels to annotate a goroutine with.
type Labels = map[string]any

// GoAnnotate starts fn in a new goroutine annotated with the caller's
// function, file and line, plus any additional labels.
func GoAnnotate(ctx context.Context, fn func(context.Context), labels ...Labels) {
	go pprof.Do(ctx, getLabels(labels...), fn)
}

func getLabels(labelMap ...Labels) pprof.LabelSet {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		panic("failed to get caller's stack frame")
	}

	fnName := runtime.FuncForPC(pc).Name()

	labels := []string{"fn", fnName, "file", file, "line", strconv.Itoa(line)}

	for _, labelMap := range labelMap {
		for key, val := range labelMap {
			labels = append(labels, key, fmt.Sprintf("%v", val))
		}
	}

	return pprof.Labels(labels...)
}
