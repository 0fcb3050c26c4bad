// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// FrameworkReport is stage 2's advisory output.
type FrameworkReport struct {
	Primary    string         `json:"primary"`
	Confidence string         `json:"confidence"`
	Scores     map[string]int `json:"scores"`
}

var pytestConfigFiles = []string{"pytest.ini", "pyproject.toml", "setup.cfg", "tox.ini"}

// DetectFramework (stage 2) scores pytest vs. unittest usage across the
// project root and every parsed file's imports. Advisory only: nothing
// downstream depends on its result being correct.
func (p *Pipeline) DetectFramework(parsed []parsedFile) FrameworkReport {
	scores := map[string]int{"pytest": 0, "unittest": 0}

	for _, name := range pytestConfigFiles {
		path := filepath.Join(p.ProjectRoot, name)
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if name == "pytest.ini" || strings.Contains(string(content), "[tool.pytest") || strings.Contains(string(content), "[tool:pytest") {
			scores["pytest"] += 3
		}
	}

	conftest := filepath.Join(p.ProjectRoot, "conftest.py")
	if content, err := os.ReadFile(conftest); err == nil {
		scores["pytest"] += 2
		if strings.Contains(string(content), "import pytest") {
			scores["pytest"] += 1
		}
	}

	for _, pf := range parsed {
		for _, imp := range pf.Lang.ExtractImports(pf.File).AllImports {
			switch {
			case imp == "pytest" || strings.HasPrefix(imp, "pytest."):
				scores["pytest"]++
			case imp == "unittest" || strings.HasPrefix(imp, "unittest."):
				scores["unittest"]++
			}
		}
		for _, fn := range pf.Lang.ExtractFunctions(pf.File) {
			for _, dec := range fn.Decorators {
				if strings.Contains(dec, "pytest.mark") || strings.Contains(dec, "fixture") {
					scores["pytest"]++
				}
			}
		}
		for _, cls := range pf.Lang.ExtractClasses(pf.File) {
			for _, base := range cls.Bases {
				if strings.Contains(base, "TestCase") {
					scores["unittest"]++
				}
			}
		}
	}

	primary := "pytest"
	if scores["unittest"] > scores["pytest"] {
		primary = "unittest"
	}

	diff := scores["pytest"] - scores["unittest"]
	if diff < 0 {
		diff = -diff
	}
	confidence := "low"
	switch {
	case diff >= 5:
		confidence = "high"
	case diff >= 2:
		confidence = "medium"
	}

	report := FrameworkReport{Primary: primary, Confidence: confidence, Scores: scores}
	_ = writeArtifact(p.ArtifactDir, 2, report)
	return report
}
