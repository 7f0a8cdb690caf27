package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultGroupSize         = 2
	DefaultModel             = "doubao-seed-1-6-251015"
	DefaultProvider          = "ark"
	DefaultTemplateNameMatch = "上架模板"
	DefaultModelTableFile    = "型号.xlsx"
)

// ErrInvalidConfig marks configuration problems that must stop the run before any stage starts.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is built once at startup and handed to every stage.
type Config struct {
	Root string

	ImageFolder     string
	ResultFolder    string
	FailureFolder   string
	ReferenceFolder string
	PromptFile      string

	GroupSize  int
	Model      string
	Provider   string
	APIBaseURL string
	APIKey     string

	// 0 leaves the provider's own default
	Temperature float64

	TemplateNameMatch string
	ModelTableFile    string
	ColumnLayoutFile  string
}

// Load reads a KEY=VALUE configuration file. Relative folder paths resolve against root.
func Load(root, path string) (*Config, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root = wd
	}
	if path == "" {
		path = filepath.Join(root, "config.txt")
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read config file %s: %v", ErrInvalidConfig, path, err)
	}

	cfg := &Config{
		Root:              root,
		ImageFolder:       values["IMAGE_FOLDER_PATH"],
		ResultFolder:      values["RESULT_FOLDER_PATH"],
		FailureFolder:     values["FAILURE_FOLDER_PATH"],
		ReferenceFolder:   values["REFERENCE_FOLDER_PATH"],
		PromptFile:        values["PROMPT_FILE"],
		Model:             values["MODEL_NAME"],
		Provider:          strings.ToLower(values["PROVIDER"]),
		APIBaseURL:        values["API_BASE_URL"],
		TemplateNameMatch: values["TEMPLATE_NAME_MATCH"],
		ModelTableFile:    values["MODEL_TABLE_FILE"],
		ColumnLayoutFile:  values["COLUMN_LAYOUT_FILE"],
		GroupSize:         DefaultGroupSize,
	}

	if raw, ok := values["PARENT_CLASS_GROUP_SIZE"]; ok && raw != "" {
		size, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || size < 1 {
			slog.Warn("Invalid PARENT_CLASS_GROUP_SIZE, using default", "value", raw, "default", DefaultGroupSize)
		} else {
			cfg.GroupSize = size
		}
	}

	if raw, ok := values["TEMPERATURE"]; ok && raw != "" {
		temp, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || temp < 0 {
			slog.Warn("Invalid TEMPERATURE, using provider default", "value", raw)
		} else {
			cfg.Temperature = temp
		}
	}

	cfg.applyDefaults()
	slog.Debug("Loaded configuration",
		"path", path,
		"image_folder", cfg.ImageFolder,
		"result_folder", cfg.ResultFolder,
		"group_size", cfg.GroupSize,
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", cfg.Temperature)

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ResultFolder == "" {
		c.ResultFolder = "Result"
	}
	if c.FailureFolder == "" {
		c.FailureFolder = "Failure"
	}
	if c.ReferenceFolder == "" {
		c.ReferenceFolder = "reference"
	}
	if c.PromptFile == "" {
		c.PromptFile = "prompt.txt"
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.TemplateNameMatch == "" {
		c.TemplateNameMatch = DefaultTemplateNameMatch
	}
	if c.ModelTableFile == "" {
		c.ModelTableFile = DefaultModelTableFile
	}

	c.ResultFolder = c.resolve(c.ResultFolder)
	c.FailureFolder = c.resolve(c.FailureFolder)
	c.ReferenceFolder = c.resolve(c.ReferenceFolder)
	c.PromptFile = c.resolve(c.PromptFile)
	if c.ImageFolder != "" {
		c.ImageFolder = c.resolve(c.ImageFolder)
	}
	if c.ColumnLayoutFile != "" {
		c.ColumnLayoutFile = c.resolve(c.ColumnLayoutFile)
	}
	if !filepath.IsAbs(c.ModelTableFile) {
		c.ModelTableFile = filepath.Join(c.ReferenceFolder, c.ModelTableFile)
	}
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// APIKeyEnv names the environment variable holding the credential for a provider.
// Providers that need no credential return "".
func APIKeyEnv(provider string) string {
	switch provider {
	case "ark":
		return "DOUBAO_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// ValidateForTitles checks everything the title stage needs before the pipeline starts.
func (c *Config) ValidateForTitles() error {
	if c.ImageFolder == "" {
		return fmt.Errorf("%w: IMAGE_FOLDER_PATH is not set", ErrInvalidConfig)
	}
	info, err := os.Stat(c.ImageFolder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: image folder does not exist: %s", ErrInvalidConfig, c.ImageFolder)
	}

	switch c.Provider {
	case "ark", "openai", "ollama", "gemini":
	default:
		return fmt.Errorf("%w: unsupported provider: %s", ErrInvalidConfig, c.Provider)
	}

	if env := APIKeyEnv(c.Provider); env != "" {
		c.APIKey = os.Getenv(env)
		if c.APIKey == "" {
			return fmt.Errorf("%w: %s environment variable not set", ErrInvalidConfig, env)
		}
	}

	if _, err := os.Stat(c.PromptFile); err != nil {
		return fmt.Errorf("%w: prompt file not found: %s", ErrInvalidConfig, c.PromptFile)
	}
	return nil
}

// Prompt returns the prompt file contents, trimmed.
func (c *Config) Prompt() (string, error) {
	data, err := os.ReadFile(c.PromptFile)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// EnsureFolders creates the result and failure folders.
func (c *Config) EnsureFolders() error {
	for _, dir := range []string{c.ResultFolder, c.FailureFolder} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", dir, err)
		}
	}
	return nil
}
