package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// BuildEngineYAMLConfig represents the complete buildengine.yaml file structure.
type BuildEngineYAMLConfig struct {
	StageCatalog map[string]WorkflowCatalogConfig `yaml:"workflow_catalog"`
	Defaults     *Defaults                        `yaml:"defaults"`
	Queue        *QueueConfig                     `yaml:"queue"`
	Blob         *BlobConfig                      `yaml:"blob"`
	LLM          *LLMConfig                       `yaml:"llm"`
	Retention    *RetentionConfig                 `yaml:"retention"`
	Deploy       *DeployConfig                    `yaml:"deploy"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load buildengine.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined stage catalog
//  5. Apply default values
//  6. Validate all configuration
//  7. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"workflow_types", stats.WorkflowTypes,
		"stages", stats.Stages)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	userConfig, err := loader.loadBuildEngineYAML()
	if err != nil {
		return nil, NewLoadError("buildengine.yaml", err)
	}

	builtin := GetBuiltinConfig()

	stageCatalog := mergeStageCatalog(builtin.StageCatalog, userConfig.StageCatalog)
	stageCatalogRegistry := NewStageCatalogRegistry(stageCatalog)

	defaults := userConfig.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.DefaultWorkflowType == "" {
		defaults.DefaultWorkflowType = builtin.DefaultWorkflowType
	}
	if defaults.MaxIterations == nil {
		maxIter := builtin.DefaultMaxIterations
		defaults.MaxIterations = &maxIter
	}
	if defaults.SuccessPolicy == "" {
		defaults.SuccessPolicy = SuccessPolicyAny
	}
	if defaults.MaxRetryCount == 0 {
		defaults.MaxRetryCount = builtin.DefaultMaxRetryCount
	}

	queueConfig := DefaultQueueConfig()
	if userConfig.Queue != nil {
		if err := mergo.Merge(queueConfig, userConfig.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	retentionConfig := DefaultRetentionConfig()
	if userConfig.Retention != nil {
		if err := mergo.Merge(retentionConfig, userConfig.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	deployConfig := DefaultDeployConfig()
	if userConfig.Deploy != nil {
		if err := mergo.Merge(deployConfig, userConfig.Deploy, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge deploy config: %w", err)
		}
	}

	return &Config{
		configDir:    configDir,
		Defaults:     defaults,
		Queue:        queueConfig,
		Blob:         userConfig.Blob,
		LLM:          userConfig.LLM,
		Retention:    retentionConfig,
		Deploy:       deployConfig,
		StageCatalog: stageCatalogRegistry,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand ${VAR}/$VAR environment references before parsing so secrets
	// never need to be committed to the YAML file itself.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadBuildEngineYAML() (*BuildEngineYAMLConfig, error) {
	var cfg BuildEngineYAMLConfig
	cfg.StageCatalog = make(map[string]WorkflowCatalogConfig)

	if err := l.loadYAML("buildengine.yaml", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
