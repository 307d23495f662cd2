package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/woozymasta/pathrules"
)

// verifyResult is the outcome of re-encoding one container.
type verifyResult struct {
	path      string
	identical bool // re-encoding reproduced the input bytes
	ambiguous bool
	err       error
}

func runVerify() error {
	matcher, err := newMatcher()
	if err != nil {
		return err
	}

	paths, err := collectFiles(inputPath, matcher)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No files selected")
		return nil
	}

	n := workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	n = min(n, len(paths))

	results := make([]verifyResult, len(paths))
	tasks := make(chan int, len(paths))
	for i := range paths {
		tasks <- i
	}
	close(tasks)

	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			for i := range tasks {
				results[i] = verifyFile(paths[i])
			}
		})
	}
	wg.Wait()

	var failed, rewritten, ambiguous int
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			fmt.Printf("FAIL %s: %v\n", r.path, r.err)
		case !r.identical:
			rewritten++
			fmt.Printf("DIFF %s: re-encoded bytes differ from input\n", r.path)
		}
		if r.ambiguous {
			ambiguous++
			fmt.Printf("WARN %s: ambiguous submodel layout\n", r.path)
		}
	}
	fmt.Printf("Verified %d files: %d failed, %d rewritten, %d ambiguous\n", len(results), failed, rewritten, ambiguous)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to round-trip", failed, len(results))
	}
	return nil
}

// verifyFile checks that a container survives decode, encode, decode and
// that the second encode is stable.
func verifyFile(path string) verifyResult {
	r := verifyResult{path: path}

	c, err := loadFile(path)
	if err != nil {
		r.err = err
		return r
	}
	if c.model != nil {
		r.ambiguous = c.model.LayoutAmbiguous
	}

	first, err := c.encode()
	if err != nil {
		r.err = fmt.Errorf("encode: %w", err)
		return r
	}
	again := &container{path: path, raw: first, kind: c.kind, format: c.format}
	if err := again.decode(); err != nil {
		r.err = fmt.Errorf("decode re-encoded container: %w", err)
		return r
	}
	second, err := again.encode()
	if err != nil {
		r.err = fmt.Errorf("re-encode: %w", err)
		return r
	}
	if !bytes.Equal(first, second) {
		r.err = fmt.Errorf("encoding is not stable (%d vs %d bytes)", len(first), len(second))
		return r
	}

	r.identical = bytes.Equal(first, c.raw)
	return r
}

// newMatcher compiles the -include and -exclude patterns. It returns nil
// when no patterns are given; with no include patterns every file not
// excluded is selected.
func newMatcher() (*pathrules.Matcher, error) {
	include := splitPatterns(includeRules)
	exclude := splitPatterns(excludeRules)
	if len(include) == 0 && len(exclude) == 0 {
		return nil, nil
	}

	var rules []pathrules.Rule
	defaultAction := pathrules.ActionInclude
	if len(include) > 0 {
		defaultAction = pathrules.ActionExclude
	}
	for _, p := range include {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: p})
	}
	for _, p := range exclude {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: p})
	}

	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   defaultAction,
	})
	if err != nil {
		return nil, fmt.Errorf("compile path rules: %w", err)
	}
	return matcher, nil
}

// collectFiles lists the regular files under root selected by matcher, or
// all of them when matcher is nil. A single file is returned as is.
func collectFiles(root string, matcher *pathrules.Matcher) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if path == root {
			paths = append(paths, path)
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matcher == nil || matcher.Included(filepath.ToSlash(rel), false) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return paths, nil
}
