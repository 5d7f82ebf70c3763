package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/payloadschema"
)

type validateResult struct {
	Scanned int
	Valid   int
	Invalid int
}

func runValidate(args []string) int {
	flags := flag.NewFlagSet("validate", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	appConfig := flags.String("config", "", "App config YAML to validate (default: $APP_CONFIG_FILE or config.yml)")
	dir := flags.String("dir", "", "Directory of scraped item .json files to validate")
	recursive := flags.Bool("recursive", true, "Recursively scan subdirectories")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	configPath := strings.TrimSpace(*appConfig)
	if configPath == "" {
		configPath = strings.TrimSpace(os.Getenv("APP_CONFIG_FILE"))
	}
	if configPath == "" {
		configPath = "config.yml"
	}

	failed := false
	appCfg, err := config.LoadApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", configPath, err)
		failed = true
	} else {
		fmt.Printf("config %s ok: sources=%d reviewers=%d\n", configPath, len(appCfg.Sources()), len(appCfg.Reviewers()))
	}

	if root := strings.TrimSpace(*dir); root != "" {
		result, err := validateItemDir(root, *recursive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation setup failed: %v\n", err)
			return 1
		}
		fmt.Printf("validate scanned=%d valid=%d invalid=%d dir=%s recursive=%t\n", result.Scanned, result.Valid, result.Invalid, root, *recursive)
		if result.Scanned == 0 {
			fmt.Fprintf(os.Stderr, "Validation failed: no .json files found under %s\n", root)
			failed = true
		}
		if result.Invalid > 0 {
			failed = true
		}
	}

	if failed {
		return 1
	}
	return 0
}

func validateItemDir(root string, recursive bool) (validateResult, error) {
	files, err := collectJSONFiles(root, recursive)
	if err != nil {
		return validateResult{}, err
	}

	result := validateResult{}
	for _, path := range files {
		result.Scanned++

		raw, err := os.ReadFile(path)
		if err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: read failed: %v\n", path, err)
			continue
		}
		if !json.Valid(raw) {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: malformed JSON\n", path)
			continue
		}
		if _, err := payloadschema.ValidateScrapedItem(json.RawMessage(raw)); err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
			continue
		}
		result.Valid++
	}
	return result, nil
}

func collectJSONFiles(root string, recursive bool) ([]string, error) {
	cleanRoot := strings.TrimSpace(root)
	if cleanRoot == "" {
		return nil, fmt.Errorf("directory path is empty")
	}

	info, err := os.Stat(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cleanRoot)
	}

	var files []string
	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path == cleanRoot {
				return nil
			}
			if !recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", cleanRoot, err)
	}

	sort.Strings(files)
	return files, nil
}
