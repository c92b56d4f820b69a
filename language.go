package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// LanguageInfo holds the parts of a linguist-style language entry used for
// file detection.
type LanguageInfo struct {
	Type       string   `yaml:"type"`
	Extensions []string `yaml:"extensions"`
	Filenames  []string `yaml:"filenames"`
}

// LanguageMap maps language names (e.g. "Go") to their details.
type LanguageMap map[string]LanguageInfo

// LoadedLanguageData is a parsed language map with lookup indexes.
type LoadedLanguageData struct {
	Langs        LanguageMap
	extensionMap map[string]string // ".go" -> "Go"
	filenameMap  map[string]string // "Makefile" -> "Makefile"
}

// defaultLanguagesFile returns the languages.yml looked up when none is
// configured.
func defaultLanguagesFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "codebase", "languages.yml")
}

// loadLanguageData parses the languages file at langFilePath.
func loadLanguageData(langFilePath string) (*LoadedLanguageData, error) {
	yamlFile, err := os.ReadFile(langFilePath)
	if err != nil {
		return nil, fmt.Errorf("reading language file %s: %w", langFilePath, err)
	}

	var langs LanguageMap
	if err := yaml.Unmarshal(yamlFile, &langs); err != nil {
		return nil, fmt.Errorf("parsing language file %s: %w", langFilePath, err)
	}

	data := &LoadedLanguageData{
		Langs:        langs,
		extensionMap: make(map[string]string),
		filenameMap:  make(map[string]string),
	}

	// Map iteration is random; sort names so shared extensions resolve the
	// same way every run.
	names := make([]string, 0, len(langs))
	for name := range langs {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		info := langs[name]
		for _, ext := range info.Extensions {
			lowerExt := strings.ToLower(ext)
			if data.extensionMap[lowerExt] == "" {
				data.extensionMap[lowerExt] = name
			}
		}
		for _, fname := range info.Filenames {
			if data.filenameMap[fname] == "" {
				data.filenameMap[fname] = name
			}
		}
	}
	return data, nil
}

// GetLanguageForFile determines the language for a slash-separated path.
// Exact filenames win over extensions.
func (ld *LoadedLanguageData) GetLanguageForFile(filePath string) (string, bool) {
	if ld == nil {
		return "", false
	}

	baseName := path.Base(filePath)
	if lang, ok := ld.filenameMap[baseName]; ok {
		return lang, true
	}
	if ext := strings.ToLower(path.Ext(baseName)); ext != "" {
		if lang, ok := ld.extensionMap[ext]; ok {
			return lang, true
		}
	}
	return "", false
}

// LanguageCount is one row of a language breakdown.
type LanguageCount struct {
	Language string
	Files    int
}

// languageBreakdown buckets paths by language, most files first, ties by
// name. Unknown files are reported as "Other".
func (ld *LoadedLanguageData) languageBreakdown(paths []string) []LanguageCount {
	counts := make(map[string]int)
	for _, p := range paths {
		lang, ok := ld.GetLanguageForFile(p)
		if !ok {
			lang = "Other"
		}
		counts[lang]++
	}

	rows := make([]LanguageCount, 0, len(counts))
	for lang, n := range counts {
		rows = append(rows, LanguageCount{Language: lang, Files: n})
	}
	slices.SortFunc(rows, func(a, b LanguageCount) int {
		if a.Files != b.Files {
			return b.Files - a.Files
		}
		return strings.Compare(a.Language, b.Language)
	})
	return rows
}
